package entities

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultBaseVoice is the synthesis model used when a custom voice does not
// declare a usable base model. Custom-voice identity is a local labeling
// concept and is never transmitted to the remote endpoint.
const DefaultBaseVoice = "Fenrir"

// ProcessingMode selects where the user believes processing happens.
type ProcessingMode string

const (
	ProcessingModeCloud ProcessingMode = "cloud"
	ProcessingModeLocal ProcessingMode = "local"
)

// Permissions are the capability flags gating tool execution.
type Permissions struct {
	AppControl  bool `json:"app_control"`
	Messaging   bool `json:"messaging"`
	Diagnostics bool `json:"diagnostics"`
}

// CustomVoice is a user-defined cloned voice built on top of a standard
// synthesis model.
type CustomVoice struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BaseModel string    `json:"base_model"`
	CreatedAt time.Time `json:"created_at"`
}

// UserProfile holds the persona and permission configuration the session
// manager reads when opening a voice session.
type UserProfile struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`

	Name   string `json:"name"`
	AIName string `json:"ai_name"`

	Language      string `json:"language"`
	VoiceName     string `json:"voice_name"`
	IsCustomVoice bool   `json:"is_custom_voice"`

	CustomVoices []CustomVoice `json:"custom_voices"`

	ProcessingMode ProcessingMode `json:"processing_mode"`

	Permissions Permissions `json:"permissions"`
}

// Validate checks the fields the session manager depends on.
func (p *UserProfile) Validate() error {
	if p.ID == "" {
		return errors.New("profile id is required")
	}
	if p.Name == "" {
		return errors.New("user name is required")
	}
	if p.AIName == "" {
		return errors.New("ai name is required")
	}
	if p.VoiceName == "" {
		return errors.New("voice name is required")
	}
	return nil
}

// FindCustomVoice looks a custom voice up by id.
func (p *UserProfile) FindCustomVoice(id string) (CustomVoice, bool) {
	for _, v := range p.CustomVoices {
		if v.ID == id {
			return v, true
		}
	}
	return CustomVoice{}, false
}

// ResolveVoice returns the synthesis voice to send over the wire. A custom
// voice resolves to its declared base model, falling back to
// DefaultBaseVoice when the id has no matching entry. Standard voices pass
// through unchanged.
func (p *UserProfile) ResolveVoice() string {
	if !p.IsCustomVoice {
		return p.VoiceName
	}
	if custom, ok := p.FindCustomVoice(p.VoiceName); ok && custom.BaseModel != "" {
		return custom.BaseModel
	}
	return DefaultBaseVoice
}

// PersonaInstruction builds the system instruction sent once per session.
// The text is derived from the profile snapshot at connect time; a later
// profile edit requires a reconnect to take effect.
func (p *UserProfile) PersonaInstruction() string {
	voiceContext := fmt.Sprintf("Voice Model: Standard %s.", p.VoiceName)
	if p.IsCustomVoice {
		name := "Unknown"
		if custom, ok := p.FindCustomVoice(p.VoiceName); ok {
			name = custom.Name
		}
		voiceContext = fmt.Sprintf(
			"You are mimicking a cloned custom voice named %q. Adopt the persona implied by this name/voice.", name)
	}

	mode := "ONLINE/CLOUD"
	if p.ProcessingMode == ProcessingModeLocal {
		mode = "OFFLINE/LOCAL (Simulated)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a highly advanced AI system interface.\n", p.AIName)
	fmt.Fprintf(&b, "Current User: %s\n", p.Name)
	fmt.Fprintf(&b, "Preferred Language: %s (Speak this language primarily).\n", p.Language)
	fmt.Fprintf(&b, "Operation Mode: %s.\n", mode)
	b.WriteString(voiceContext)
	b.WriteString("\n\nYour Capabilities:\n")
	fmt.Fprintf(&b, "- App Control: %s\n", enabledWord(p.Permissions.AppControl))
	fmt.Fprintf(&b, "- Messaging: %s\n", enabledWord(p.Permissions.Messaging))
	fmt.Fprintf(&b, "- System Scans: %s\n", enabledWord(p.Permissions.Diagnostics))
	b.WriteString("- UI Navigation: You can open reports and highlight data using 'showSystemView'.\n")
	b.WriteString("\nOperational Guidelines:\n")
	b.WriteString("1. When asked for reports/stats, use 'showSystemView' to navigate and highlight the specific data (cpu, memory, network).\n")
	b.WriteString("2. If asked to open settings or profile, use 'showSystemView' with view='profile'.\n")
	b.WriteString("3. Be concise, professional, and helpful.\n")
	return b.String()
}

func enabledWord(on bool) string {
	if on {
		return "ENABLED"
	}
	return "DISABLED"
}
