package transcribe

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/laurindocbenjamim/voxscribe/internal/config"
)

type geminiProvider struct {
	client   *genai.Client
	model    string
	language string
}

// NewGeminiProvider builds the Gemini backend used for both audio
// transcription (inline WAV part) and text operations.
func NewGeminiProvider(cfg config.TranscriberConfig) (Provider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiProvider{
		client:   client,
		model:    cfg.Model,
		language: cfg.Language,
	}, nil
}

func (g *geminiProvider) Transcribe(ctx context.Context, wavData []byte, mimeType string) (string, error) {
	prompt := "Transcribe this audio verbatim. Return only the transcript text."
	if g.language != "" {
		prompt = fmt.Sprintf("Transcribe this audio verbatim in %s. Return only the transcript text.", g.language)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(wavData, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini transcription: %w", err)
	}
	return resp.Text(), nil
}

func (g *geminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	return resp.Text(), nil
}
