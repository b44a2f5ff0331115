package session

import (
	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/domain/repositories"
)

// Fixed processing rates for the two audio contexts. The wire protocol
// expects 16 kHz PCM upstream and delivers 24 kHz PCM downstream.
const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000

	// captureFrameSize is the number of samples per outbound frame.
	captureFrameSize = 4096
)

// BuildConfig derives the immutable session configuration from a profile
// snapshot. A profile edit after connect has no effect until the next
// session.
func BuildConfig(profile *entities.UserProfile) repositories.SessionConfig {
	return repositories.SessionConfig{
		SystemInstruction: profile.PersonaInstruction(),
		Voice:             profile.ResolveVoice(),
		Language:          profile.Language,
		Tools:             Declarations(),
	}
}

// Declarations returns the closed set of tools offered to the remote
// model. The set is static; dispatch treats anything outside it as a
// no-op.
func Declarations() []entities.ToolDeclaration {
	return []entities.ToolDeclaration{
		{
			Name:        toolOpenApplication,
			Description: "Opens a specific application on the computer.",
			Parameters: []entities.ToolParameter{
				{Name: "appName", Description: "The name of the application to open (e.g., Chrome, Spotify).", Required: true},
			},
		},
		{
			Name:        toolSendMessage,
			Description: "Sends a text message via a specified platform.",
			Parameters: []entities.ToolParameter{
				{Name: "platform", Description: "The platform (e.g., WhatsApp, Discord, SMS).", Required: true},
				{Name: "recipient", Description: "Name of the recipient.", Required: true},
				{Name: "message", Description: "The content of the message.", Required: true},
			},
		},
		{
			Name:        toolPerformSystemScan,
			Description: "Scans the system for errors, viruses, or performance issues.",
			Parameters: []entities.ToolParameter{
				{Name: "scanType", Description: `Type of scan: "quick", "deep", or "diagnostic".`, Required: true},
			},
		},
		{
			Name:        toolShowSystemView,
			Description: "Navigates to a specific UI view and optionally highlights a section.",
			Parameters: []entities.ToolParameter{
				{Name: "view", Description: `The view to open: "monitor" (System Stats), "terminal" (Logs), "profile" (Settings/Voice), "manual" (Help).`, Required: true},
				{Name: "highlight", Description: `Element to highlight: "cpu", "memory", "network", "logs", "voice_lab".`},
			},
		},
	}
}
