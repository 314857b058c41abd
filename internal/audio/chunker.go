package audio

// DefaultMaxChunkSeconds bounds the duration of a single provider request.
const DefaultMaxChunkSeconds = 300

// Chunk is a contiguous sub-range of a decoded buffer. Samples alias the
// parent buffer, which is never mutated after decode, so chunks are safe to
// share without copying.
type Chunk struct {
	Index      int
	Samples    []float32
	SampleRate int
	Start      float64
	End        float64
}

// Duration returns the chunk length in seconds.
func (c Chunk) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Split slices a buffer into maxSeconds-bounded chunks in time order.
// Boundaries are sample-index-exact: second i*maxSeconds maps to sample
// floor(i*maxSeconds*rate). The final chunk may be shorter; an empty buffer
// yields no chunks.
func Split(b Buffer, maxSeconds float64) []Chunk {
	if len(b.Samples) == 0 || b.SampleRate <= 0 || maxSeconds <= 0 {
		return nil
	}

	var chunks []Chunk
	total := len(b.Samples)
	for i := 0; ; i++ {
		start := int(float64(i) * maxSeconds * float64(b.SampleRate))
		if start >= total {
			break
		}
		end := int(float64(i+1) * maxSeconds * float64(b.SampleRate))
		if end > total {
			end = total
		}
		chunks = append(chunks, Chunk{
			Index:      i,
			Samples:    b.Samples[start:end],
			SampleRate: b.SampleRate,
			Start:      float64(start) / float64(b.SampleRate),
			End:        float64(end) / float64(b.SampleRate),
		})
	}
	return chunks
}
