package transcribe

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/laurindocbenjamim/voxscribe/internal/config"
)

type openaiProvider struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAIProvider builds the Whisper-backed transcription backend with
// chat completions for text operations.
func NewOpenAIProvider(cfg config.TranscriberConfig) Provider {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &openaiProvider{
		client:   openai.NewClient(cfg.APIKey),
		model:    model,
		language: cfg.Language,
	}
}

func (o *openaiProvider) Transcribe(ctx context.Context, wavData []byte, _ string) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "chunk.wav",
		Reader:   bytes.NewReader(wavData),
		Language: o.language,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return resp.Text, nil
}

func (o *openaiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
