package speech

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/laurindocbenjamim/voxscribe/internal/config"
)

// geminiSynthesizer calls the Gemini TTS models. The API returns raw
// 16-bit little-endian PCM at 24000 Hz as inline data.
type geminiSynthesizer struct {
	client *genai.Client
	model  string
}

func newGeminiSynthesizer(cfg config.SpeechConfig) (Synthesizer, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiSynthesizer{client: client, model: cfg.Model}, nil
}

func (g *geminiSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	genCfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini synthesis: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini synthesis: response carried no audio")
}
