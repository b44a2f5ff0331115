package entities

// ToolParameter describes one named parameter of a declared tool.
type ToolParameter struct {
	Name        string
	Description string
	Required    bool
}

// ToolDeclaration is the schema for one tool offered to the remote model.
// The set of declarations is static and passed verbatim into the session
// configuration.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  []ToolParameter
}

// ToolCallRequest arrives from the remote endpoint and is consumed exactly
// once by the tool dispatcher.
type ToolCallRequest struct {
	ID   string
	Name string
	Args map[string]string
}

// ToolCallResult is reported back over the session exactly once per
// request, carrying the originating correlation id.
type ToolCallResult struct {
	ID      string
	Name    string
	Payload string
}

// Success reports whether the result payload is the success token.
func (r ToolCallResult) Success() bool {
	return r.Payload == ToolResultOK
}

// Result payload tokens. The remote endpoint only distinguishes success
// from error text, so these stay plain strings on the wire.
const (
	ToolResultOK     = "ok"
	ToolResultDenied = "Error: Permission Denied"
)
