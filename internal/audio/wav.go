package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// headerSize is the fixed size of the canonical PCM WAV header.
const headerSize = 44

// wavHeader mirrors the canonical 44-byte RIFF/WAVE header layout.
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + Subchunk2Size
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 = PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // payload bytes
}

// Info describes a parsed WAV container.
type Info struct {
	SampleRate    int     `json:"sample_rate"`
	Channels      int     `json:"channels"`
	BitsPerSample int     `json:"bits_per_sample"`
	DataSize      int     `json:"data_size_bytes"`
	Duration      float64 `json:"duration_seconds"`
}

// EncodeWAV serializes float samples into a 16-bit mono PCM WAV buffer.
// Samples are clamped and quantized with the asymmetric Quantize mapping.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = Quantize(s)
	}
	return EncodePCM16(pcm, sampleRate)
}

// EncodePCM16 serializes already-quantized 16-bit samples into a WAV buffer.
// Used for synthesized speech, which arrives as raw PCM from the provider.
func EncodePCM16(samples []int16, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(samples) * 2)
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("write wav data: %w", err)
	}

	out := buf.Bytes()
	if len(out) != headerSize+int(dataSize) {
		return nil, fmt.Errorf("wav size invariant violated: header declares %d data bytes, wrote %d total", dataSize, len(out))
	}
	return out, nil
}

// DecodeWAV parses a WAV buffer produced by EncodeWAV (or any 16-bit mono
// PCM WAV) back into float samples and the declared sample rate.
func DecodeWAV(data []byte) (Buffer, error) {
	header, err := parseHeader(data)
	if err != nil {
		return Buffer{}, err
	}
	if header.AudioFormat != 1 {
		return Buffer{}, fmt.Errorf("unsupported audio format %d: only PCM is supported", header.AudioFormat)
	}
	if header.BitsPerSample != 16 {
		return Buffer{}, fmt.Errorf("unsupported bit depth %d: only 16-bit is supported", header.BitsPerSample)
	}
	if header.NumChannels != 1 {
		return Buffer{}, fmt.Errorf("unsupported channel count %d: only mono is supported", header.NumChannels)
	}
	if int(header.Subchunk2Size) != len(data)-headerSize {
		return Buffer{}, fmt.Errorf("wav size invariant violated: header declares %d data bytes, buffer carries %d", header.Subchunk2Size, len(data)-headerSize)
	}

	count := int(header.Subchunk2Size) / 2
	samples := make([]float32, count)
	for i := 0; i < count; i++ {
		v := int16(binary.LittleEndian.Uint16(data[headerSize+i*2:]))
		samples[i] = Dequantize(v)
	}
	return Buffer{Samples: samples, SampleRate: int(header.SampleRate)}, nil
}

// ValidateWAV checks the container markers without touching the payload.
func ValidateWAV(data []byte) error {
	_, err := parseHeader(data)
	return err
}

// WAVInfo extracts container metadata.
func WAVInfo(data []byte) (Info, error) {
	header, err := parseHeader(data)
	if err != nil {
		return Info{}, err
	}
	if header.SampleRate == 0 {
		return Info{}, fmt.Errorf("invalid wav: sample rate is zero")
	}
	bytesPerSample := int(header.BitsPerSample) / 8
	if bytesPerSample == 0 {
		return Info{}, fmt.Errorf("invalid wav: bits per sample is zero")
	}
	if header.NumChannels == 0 {
		return Info{}, fmt.Errorf("invalid wav: channel count is zero")
	}
	frames := int(header.Subchunk2Size) / bytesPerSample / int(header.NumChannels)
	return Info{
		SampleRate:    int(header.SampleRate),
		Channels:      int(header.NumChannels),
		BitsPerSample: int(header.BitsPerSample),
		DataSize:      int(header.Subchunk2Size),
		Duration:      float64(frames) / float64(header.SampleRate),
	}, nil
}

func parseHeader(data []byte) (wavHeader, error) {
	var header wavHeader
	if len(data) < headerSize {
		return header, fmt.Errorf("wav data too short: need at least %d bytes, got %d", headerSize, len(data))
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return header, fmt.Errorf("read wav header: %w", err)
	}
	if string(header.ChunkID[:]) != "RIFF" {
		return header, fmt.Errorf("invalid wav: missing RIFF marker")
	}
	if string(header.Format[:]) != "WAVE" {
		return header, fmt.Errorf("invalid wav: missing WAVE marker")
	}
	if string(header.Subchunk1ID[:]) != "fmt " {
		return header, fmt.Errorf("invalid wav: missing fmt chunk")
	}
	if string(header.Subchunk2ID[:]) != "data" {
		return header, fmt.Errorf("invalid wav: missing data chunk")
	}
	return header, nil
}
