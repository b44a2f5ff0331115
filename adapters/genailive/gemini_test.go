package genailive

import (
	"encoding/base64"
	"testing"

	"google.golang.org/genai"

	"github.com/avalonlabs/vesper/internal/session"
)

func TestTranslateMessageToolCalls(t *testing.T) {
	msg := &genai.LiveServerMessage{
		ToolCall: &genai.LiveServerToolCall{
			FunctionCalls: []*genai.FunctionCall{
				{ID: "fc-1", Name: "openApplication", Args: map[string]any{"appName": "Chrome"}},
				{ID: "fc-2", Name: "performSystemScan", Args: map[string]any{"scanType": "deep", "depth": 3}},
			},
		},
	}

	out := translateMessage(msg)
	if len(out.ToolCalls) != 2 {
		t.Fatalf("Expected 2 tool calls, got %d", len(out.ToolCalls))
	}
	if out.ToolCalls[0].ID != "fc-1" || out.ToolCalls[0].Args["appName"] != "Chrome" {
		t.Errorf("First call mistranslated: %+v", out.ToolCalls[0])
	}
	// Non-string arguments are stringified, not dropped.
	if out.ToolCalls[1].Args["depth"] != "3" {
		t.Errorf("Expected stringified numeric arg, got %q", out.ToolCalls[1].Args["depth"])
	}
}

func TestTranslateMessageAudioAndInterruption(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	msg := &genai.LiveServerMessage{
		ServerContent: &genai.LiveServerContent{
			ModelTurn: &genai.Content{
				Parts: []*genai.Part{
					{Text: "thinking"},
					{InlineData: &genai.Blob{Data: pcm, MIMEType: "audio/pcm"}},
				},
			},
			Interrupted: true,
		},
	}

	out := translateMessage(msg)
	if out.AudioChunk != base64.StdEncoding.EncodeToString(pcm) {
		t.Errorf("Audio chunk should be the base64 envelope of the inline data, got %q", out.AudioChunk)
	}
	if !out.Interrupted {
		t.Error("Interruption flag should carry through")
	}
}

func TestTranslateMessageEmpty(t *testing.T) {
	out := translateMessage(&genai.LiveServerMessage{})
	if len(out.ToolCalls) != 0 || out.AudioChunk != "" || out.Interrupted {
		t.Errorf("Empty server message should translate to an empty event, got %+v", out)
	}
}

func TestDeclarationsToGenai(t *testing.T) {
	decls := declarationsToGenai(session.Declarations())
	if len(decls) != 4 {
		t.Fatalf("Expected 4 function declarations, got %d", len(decls))
	}

	byName := map[string]*genai.FunctionDeclaration{}
	for _, d := range decls {
		byName[d.Name] = d
	}

	open, ok := byName["openApplication"]
	if !ok {
		t.Fatal("openApplication declaration missing")
	}
	if open.Parameters.Type != genai.TypeObject {
		t.Errorf("Expected object parameter schema, got %v", open.Parameters.Type)
	}
	if len(open.Parameters.Required) != 1 || open.Parameters.Required[0] != "appName" {
		t.Errorf("Expected appName required, got %v", open.Parameters.Required)
	}

	nav, ok := byName["showSystemView"]
	if !ok {
		t.Fatal("showSystemView declaration missing")
	}
	if len(nav.Parameters.Required) != 1 || nav.Parameters.Required[0] != "view" {
		t.Errorf("highlight must stay optional, required = %v", nav.Parameters.Required)
	}
}
