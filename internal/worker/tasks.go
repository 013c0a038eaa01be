package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeProcessMinutes = "minutes:process"
)

// ProcessMinutesPayload references archived audio; the bytes never travel
// through the queue. Jobs only use server-side credentials.
type ProcessMinutesPayload struct {
	JobID                 string `json:"job_id"`
	AudioKey              string `json:"audio_key"`
	FileName              string `json:"file_name"`
	MimeType              string `json:"mime_type"`
	Language              string `json:"language,omitempty"`
	TranscriptionProvider string `json:"transcription_provider,omitempty"`
	AIProvider            string `json:"ai_provider,omitempty"`
}

func NewProcessMinutesTask(payload ProcessMinutesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProcessMinutes, data), nil
}
