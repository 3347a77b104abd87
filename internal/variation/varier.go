// Package variation rewrites outreach messages so recipients in one batch do
// not receive byte-identical texts. Previews are side-effect free; only the
// dispatch path sends anything.
package variation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/mverde/consola/internal/backend"
	"github.com/mverde/consola/internal/models"
)

// Varier produces a reworded variant of a message for one recipient.
type Varier interface {
	Vary(ctx context.Context, message, contactName string) (string, error)
	Close() error
}

// GeminiVarier rewrites messages through the Gemini API.
type GeminiVarier struct {
	client *genai.Client
	model  string
}

// NewGeminiVarier creates a Gemini-backed varier.
func NewGeminiVarier(ctx context.Context, apiKey, model string) (*GeminiVarier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiVarier{client: client, model: model}, nil
}

// Vary asks the model for one reworded variant. Meaning, language and any
// links or placeholders must survive untouched.
func (v *GeminiVarier) Vary(ctx context.Context, message, contactName string) (string, error) {
	model := v.client.GenerativeModel(v.model)
	model.SetTemperature(0.8)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(message, contactName)))
	if err != nil {
		return "", fmt.Errorf("failed to generate variation: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Close releases the underlying client.
func (v *GeminiVarier) Close() error {
	return v.client.Close()
}

func buildPrompt(message, contactName string) string {
	var b strings.Builder
	b.WriteString("Reescribe el siguiente mensaje con otras palabras, manteniendo el mismo idioma, el mismo significado y el mismo tono informal.\n")
	b.WriteString("No cambies enlaces, números de teléfono, fechas ni nada entre llaves o corchetes.\n")
	b.WriteString("Responde solo con el mensaje reescrito, sin explicaciones.\n")
	if contactName != "" {
		fmt.Fprintf(&b, "El mensaje va dirigido a %s.\n", contactName)
	}
	b.WriteString("\nMensaje:\n")
	b.WriteString(message)
	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text in model response")
	}
	return b.String(), nil
}

// PreviewBackend is the slice of the backend the remote varier needs.
type PreviewBackend interface {
	PreviewVariedMessages(ctx context.Context, req *backend.PreviewRequest) (*backend.PreviewResponse, error)
}

// RemoteVarier delegates rewording to the evaluator backend's preview
// endpoint. Used when variation is enabled without a local model key.
type RemoteVarier struct {
	backend PreviewBackend
}

// NewRemoteVarier creates a backend-delegating varier.
func NewRemoteVarier(b PreviewBackend) *RemoteVarier {
	return &RemoteVarier{backend: b}
}

func (v *RemoteVarier) Vary(ctx context.Context, message, contactName string) (string, error) {
	resp, err := v.backend.PreviewVariedMessages(ctx, &backend.PreviewRequest{
		Template:    message,
		Contacts:    []models.PendingItem{{ContactName: contactName}},
		NumPreviews: 1,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Previews) == 0 {
		return "", fmt.Errorf("backend returned no varied message")
	}
	return strings.TrimSpace(resp.Previews[0].VariedMessage), nil
}

func (v *RemoteVarier) Close() error { return nil }

// NopVarier returns messages unchanged. Used when variation is disabled; the
// preview then shows what the plain send path would deliver.
type NopVarier struct{}

func (NopVarier) Vary(ctx context.Context, message, contactName string) (string, error) {
	return message, nil
}

func (NopVarier) Close() error { return nil }
