package speech

import (
	"context"
	"encoding/binary"
	"math"
)

// mockSynthesizer emits a short sine tone so the pipeline can run
// end to end without credentials.
type mockSynthesizer struct {
	sampleRate int
}

func (m *mockSynthesizer) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	// 50ms of tone per character, capped at 2s.
	n := m.sampleRate / 20 * len(text)
	if max := m.sampleRate * 2; n > max {
		n = max
	}
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := int16(math.Sin(2*math.Pi*440*float64(i)/float64(m.sampleRate)) * 8192)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm, nil
}
