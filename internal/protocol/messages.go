package protocol

import "time"

// Progress reports pipeline status for one processing session, published
// after each stage transition and after every completed chunk so clients can
// render "chunk N of M".
type Progress struct {
	SessionID  string    `json:"session_id"`
	Stage      string    `json:"stage"`
	ChunkIndex int       `json:"chunk_index"`
	ChunkCount int       `json:"chunk_count"`
	Timestamp  time.Time `json:"timestamp"`
}

// TranscriptReady announces a finished transcription.
type TranscriptReady struct {
	SessionID    string    `json:"session_id"`
	TranscriptID string    `json:"transcript_id"`
	Duration     float64   `json:"duration_seconds"`
	Timestamp    time.Time `json:"timestamp"`
}

// Pipeline stages carried in Progress messages.
const (
	StageDecoding     = "decoding"
	StageTranscribing = "transcribing"
	StageAssembling   = "assembling"
	StageDone         = "done"
	StageFailed       = "failed"
)

const (
	SubjectProgressPrefix  = "voxscribe.progress"
	SubjectTranscriptReady = "voxscribe.transcript.ready"
)

// ProgressSubject returns the per-session progress subject.
func ProgressSubject(sessionID string) string {
	return SubjectProgressPrefix + "." + sessionID
}
