package session

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/domain/repositories"
)

// Tool names declared to the remote model. The set is closed.
const (
	toolOpenApplication   = "openApplication"
	toolSendMessage       = "sendMessage"
	toolPerformSystemScan = "performSystemScan"
	toolShowSystemView    = "showSystemView"
)

// NavigateFunc is invoked synchronously when the model requests a UI
// navigation. highlight may be empty.
type NavigateFunc func(view, highlight string)

// ScanFunc performs (or simulates) a system scan of the given type.
type ScanFunc func(scanType string) error

// toolDispatcher turns remote tool-call requests into local effects and
// correlated results, enforcing the profile's capability gates.
type toolDispatcher struct {
	perms      entities.Permissions
	logs       repositories.LogSink
	onNavigate NavigateFunc
	scan       ScanFunc
	logger     *zap.Logger
}

func newToolDispatcher(perms entities.Permissions, logs repositories.LogSink, onNavigate NavigateFunc, scan ScanFunc, logger *zap.Logger) *toolDispatcher {
	return &toolDispatcher{
		perms:      perms,
		logs:       logs,
		onNavigate: onNavigate,
		scan:       scan,
		logger:     logger,
	}
}

// Dispatch processes every call in arrival order, each independently: one
// log entry and one correlated result per request, and a failure sending
// one response never blocks the rest.
func (d *toolDispatcher) Dispatch(sess repositories.LiveSession, calls []entities.ToolCallRequest) {
	for _, call := range calls {
		payload, entry := d.handle(call)
		d.logs.Append(entry)

		result := entities.ToolCallResult{ID: call.ID, Name: call.Name, Payload: payload}
		if err := sess.SendToolResult(result); err != nil {
			d.logger.Error("Failed to send tool result",
				zap.String("tool", call.Name),
				zap.String("callID", call.ID),
				zap.Error(err))
		}
	}
}

// handle evaluates a single call and returns the result payload plus its
// audit entry. Denials and validation failures are business outcomes, not
// system errors.
func (d *toolDispatcher) handle(call entities.ToolCallRequest) (string, entities.SystemLogEntry) {
	switch call.Name {
	case toolOpenApplication:
		appName, err := requireArg(call, "appName")
		if err != nil {
			return invalidArgs(call, err)
		}
		if !d.perms.AppControl {
			return entities.ToolResultDenied,
				entities.NewLogEntry(entities.LogError, fmt.Sprintf("Access Denied: Open %s", appName))
		}
		return entities.ToolResultOK,
			entities.NewLogEntry(entities.LogCommand, fmt.Sprintf("Opening application: %s", appName))

	case toolSendMessage:
		platform, err := requireArg(call, "platform")
		if err != nil {
			return invalidArgs(call, err)
		}
		recipient, err := requireArg(call, "recipient")
		if err != nil {
			return invalidArgs(call, err)
		}
		if _, err := requireArg(call, "message"); err != nil {
			return invalidArgs(call, err)
		}
		if !d.perms.Messaging {
			return entities.ToolResultDenied,
				entities.NewLogEntry(entities.LogError, "Access Denied: Send Message")
		}
		return entities.ToolResultOK,
			entities.NewLogEntry(entities.LogCommand, fmt.Sprintf("Sending %s message to %s", platform, recipient))

	case toolPerformSystemScan:
		scanType, err := requireArg(call, "scanType")
		if err != nil {
			return invalidArgs(call, err)
		}
		if !d.perms.Diagnostics {
			return entities.ToolResultDenied,
				entities.NewLogEntry(entities.LogError, "Access Denied: System Scan")
		}
		if d.scan != nil {
			if err := d.scan(scanType); err != nil {
				d.logger.Warn("System scan reported an error", zap.Error(err))
			}
		}
		return entities.ToolResultOK,
			entities.NewLogEntry(entities.LogCommand, fmt.Sprintf("Performing %s system diagnostic scan...", scanType))

	case toolShowSystemView:
		view, err := requireArg(call, "view")
		if err != nil {
			return invalidArgs(call, err)
		}
		highlight := call.Args["highlight"]
		if d.onNavigate != nil {
			d.onNavigate(view, highlight)
		}
		message := fmt.Sprintf("Navigating to %s", view)
		if highlight != "" {
			message = fmt.Sprintf("Navigating to %s [Highlight: %s]", view, highlight)
		}
		return entities.ToolResultOK, entities.NewLogEntry(entities.LogCommand, message)

	default:
		// Not expected: the declared set is closed. Treat as a no-op
		// success rather than a fatal condition.
		return entities.ToolResultOK,
			entities.NewLogEntry(entities.LogInfo, fmt.Sprintf("Unrecognized tool call: %s", call.Name))
	}
}

func requireArg(call entities.ToolCallRequest, name string) (string, error) {
	value := call.Args[name]
	if value == "" {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	return value, nil
}

func invalidArgs(call entities.ToolCallRequest, err error) (string, entities.SystemLogEntry) {
	return fmt.Sprintf("Error: Invalid Arguments: %v", err),
		entities.NewLogEntry(entities.LogError, fmt.Sprintf("Rejected %s call: %v", call.Name, err))
}
