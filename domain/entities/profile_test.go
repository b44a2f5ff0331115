package entities

import (
	"strings"
	"testing"
)

func baseProfile() *UserProfile {
	return &UserProfile{
		ID:             "p-1",
		Name:           "Morgan",
		AIName:         "VESPER",
		Language:       "English",
		VoiceName:      "Puck",
		ProcessingMode: ProcessingModeCloud,
	}
}

func TestProfileValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*UserProfile)
		wantErr bool
	}{
		{"valid profile", func(p *UserProfile) {}, false},
		{"missing id", func(p *UserProfile) { p.ID = "" }, true},
		{"missing user name", func(p *UserProfile) { p.Name = "" }, true},
		{"missing ai name", func(p *UserProfile) { p.AIName = "" }, true},
		{"missing voice", func(p *UserProfile) { p.VoiceName = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseProfile()
			tt.mutate(p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveVoiceStandard(t *testing.T) {
	p := baseProfile()
	if got := p.ResolveVoice(); got != "Puck" {
		t.Errorf("Standard voice should pass through, got %q", got)
	}
}

func TestResolveVoiceCustom(t *testing.T) {
	p := baseProfile()
	p.IsCustomVoice = true
	p.VoiceName = "cv-7"
	p.CustomVoices = []CustomVoice{
		{ID: "cv-3", Name: "Old Clone", BaseModel: "Kore"},
		{ID: "cv-7", Name: "Friday", BaseModel: "Charon"},
	}

	if got := p.ResolveVoice(); got != "Charon" {
		t.Errorf("Custom voice should resolve to its base model, got %q", got)
	}

	// The custom id itself must never be the resolved value.
	if got := p.ResolveVoice(); got == "cv-7" {
		t.Error("Resolved voice must not be the local custom voice id")
	}
}

func TestResolveVoiceCustomFallback(t *testing.T) {
	p := baseProfile()
	p.IsCustomVoice = true
	p.VoiceName = "cv-gone"

	if got := p.ResolveVoice(); got != DefaultBaseVoice {
		t.Errorf("Unmatched custom voice should fall back to %q, got %q", DefaultBaseVoice, got)
	}
}

func TestPersonaInstruction(t *testing.T) {
	p := baseProfile()
	p.Permissions = Permissions{AppControl: true, Diagnostics: true}

	text := p.PersonaInstruction()
	for _, want := range []string{
		"You are VESPER",
		"Current User: Morgan",
		"Preferred Language: English",
		"ONLINE/CLOUD",
		"Voice Model: Standard Puck.",
		"- App Control: ENABLED",
		"- Messaging: DISABLED",
		"- System Scans: ENABLED",
		"showSystemView",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Persona instruction missing %q", want)
		}
	}
}

func TestPersonaInstructionCustomVoice(t *testing.T) {
	p := baseProfile()
	p.IsCustomVoice = true
	p.VoiceName = "cv-1"
	p.CustomVoices = []CustomVoice{{ID: "cv-1", Name: "Friday", BaseModel: "Charon"}}
	p.ProcessingMode = ProcessingModeLocal

	text := p.PersonaInstruction()
	if !strings.Contains(text, `cloned custom voice named "Friday"`) {
		t.Error("Custom voice persona should reference the clone name")
	}
	if !strings.Contains(text, "OFFLINE/LOCAL (Simulated)") {
		t.Error("Local mode should be reflected in the persona text")
	}
}
