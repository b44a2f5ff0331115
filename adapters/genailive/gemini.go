// Package genailive implements the live transport against Google's
// Gemini Live API.
package genailive

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/avalonlabs/vesper/domain/entities"
	"github.com/avalonlabs/vesper/domain/repositories"
)

const defaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

// inputMIMEType declares the upstream PCM format to the endpoint.
const inputMIMEType = "audio/pcm;rate=16000"

// GeminiTransport opens realtime sessions against the Gemini Live API.
type GeminiTransport struct {
	apiKey string
	model  string
	logger *zap.Logger
}

// NewGeminiTransport creates a transport. The API key is required.
func NewGeminiTransport(apiKey string, logger *zap.Logger) (*GeminiTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	return &GeminiTransport{
		apiKey: apiKey,
		model:  defaultModel,
		logger: logger,
	}, nil
}

// WithModel overrides the default live model.
func (t *GeminiTransport) WithModel(model string) *GeminiTransport {
	if model != "" {
		t.model = model
	}
	return t
}

// Open dials the live endpoint and starts a receive loop that feeds the
// callbacks. Callbacks are invoked sequentially from that loop, per the
// LiveTransport contract.
func (t *GeminiTransport) Open(ctx context.Context, config repositories.SessionConfig, callbacks repositories.SessionCallbacks) (repositories.LiveSession, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  t.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	liveConfig := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction:  genai.NewContentFromText(config.SystemInstruction, genai.RoleUser),
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: config.Voice},
			},
		},
		Tools: []*genai.Tool{{FunctionDeclarations: declarationsToGenai(config.Tools)}},
	}

	raw, err := client.Live.Connect(ctx, t.model, liveConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open live session: %w", err)
	}

	sess := &geminiSession{raw: raw, logger: t.logger}
	go sess.receiveLoop(callbacks)
	return sess, nil
}

type geminiSession struct {
	raw    *genai.Session
	logger *zap.Logger
}

func (s *geminiSession) SendAudioFrame(frame string) error {
	data, err := base64.StdEncoding.DecodeString(frame)
	if err != nil {
		return fmt.Errorf("invalid outbound frame envelope: %w", err)
	}
	return s.raw.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: data, MIMEType: inputMIMEType},
	})
}

func (s *geminiSession) SendToolResult(result entities.ToolCallResult) error {
	return s.raw.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: []*genai.FunctionResponse{{
			ID:       result.ID,
			Name:     result.Name,
			Response: map[string]any{"result": result.Payload},
		}},
	})
}

func (s *geminiSession) Close() error {
	return s.raw.Close()
}

// receiveLoop pumps server messages until the stream ends. The session
// counts as open as soon as the loop starts, mirroring the handshake
// already having succeeded in Open.
func (s *geminiSession) receiveLoop(callbacks repositories.SessionCallbacks) {
	if callbacks.OnOpen != nil {
		callbacks.OnOpen()
	}
	for {
		message, err := s.raw.Receive()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if callbacks.OnClose != nil {
					callbacks.OnClose()
				}
				return
			}
			if callbacks.OnError != nil {
				callbacks.OnError(err)
			}
			return
		}
		if callbacks.OnMessage != nil {
			callbacks.OnMessage(translateMessage(message))
		}
	}
}

// translateMessage flattens one live server message into the transport's
// neutral event shape.
func translateMessage(message *genai.LiveServerMessage) repositories.ServerMessage {
	var out repositories.ServerMessage

	if message.ToolCall != nil {
		for _, fc := range message.ToolCall.FunctionCalls {
			out.ToolCalls = append(out.ToolCalls, entities.ToolCallRequest{
				ID:   fc.ID,
				Name: fc.Name,
				Args: stringifyArgs(fc.Args),
			})
		}
	}

	if content := message.ServerContent; content != nil {
		if content.ModelTurn != nil {
			for _, part := range content.ModelTurn.Parts {
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					out.AudioChunk = base64.StdEncoding.EncodeToString(part.InlineData.Data)
					break
				}
			}
		}
		out.Interrupted = content.Interrupted
	}

	return out
}

func stringifyArgs(args map[string]any) map[string]string {
	out := make(map[string]string, len(args))
	for key, value := range args {
		switch v := value.(type) {
		case string:
			out[key] = v
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

func declarationsToGenai(tools []entities.ToolDeclaration) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		properties := make(map[string]*genai.Schema, len(tool.Parameters))
		var required []string
		for _, param := range tool.Parameters {
			properties[param.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: param.Description,
			}
			if param.Required {
				required = append(required, param.Name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: properties,
				Required:   required,
			},
		})
	}
	return out
}
