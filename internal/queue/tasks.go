package queue

import "github.com/nikhilbhutani/ttsserver/internal/tts"

const (
	TypeSynthesize = "tts:synthesize"
)

type SynthesizePayload struct {
	JobID   string      `json:"job_id"`
	Request tts.Request `json:"request"`
}
