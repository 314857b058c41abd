package transcribe

import (
	"context"
	"fmt"
)

type mockProvider struct{}

// NewMockProvider returns a provider for development and tests.
func NewMockProvider() Provider {
	return &mockProvider{}
}

func (m *mockProvider) Transcribe(_ context.Context, wavData []byte, _ string) (string, error) {
	return fmt.Sprintf("[transcript bytes=%d]", len(wavData)), nil
}

func (m *mockProvider) Complete(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf("[completion length=%d]", len(prompt)), nil
}
