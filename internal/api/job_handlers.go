package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/records"
	"github.com/gijiroku/minutes/internal/services/storage"
	"github.com/gijiroku/minutes/internal/worker"
)

type CreateJobResponse struct {
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// HandleCreateJob archives the upload and queues the full pipeline. The
// finished record is saved under the job id.
func (s *Server) HandleCreateJob(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readAudioUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(upload.audio.Data) == 0 {
		s.writeError(w, r, errors.NewMissingInputError("audio file is empty", "MISSING_AUDIO"))
		return
	}

	jobID := uuid.New().String()
	key := storage.AudioKey(jobID, upload.audio.FileName, time.Now())

	if err := s.archive.Put(r.Context(), key, upload.audio.Data, upload.audio.MimeType); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Recorded before enqueueing so a fast worker's updates are never
	// overwritten by this one.
	s.jobs.Set(r.Context(), jobID, worker.StatusQueued, "")

	err = s.queue.EnqueueMinutes(r.Context(), worker.ProcessMinutesPayload{
		JobID:                 jobID,
		AudioKey:              key,
		FileName:              upload.audio.FileName,
		MimeType:              upload.audio.MimeType,
		Language:              r.FormValue("language"),
		TranscriptionProvider: r.FormValue("provider"),
		AIProvider:            r.FormValue("aiProvider"),
	})
	if err != nil {
		if delErr := s.archive.Delete(r.Context(), key); delErr != nil {
			s.logger.WarnContext(r.Context(), "Failed to remove archived audio", "key", key, "error", delErr)
		}
		s.jobs.Set(r.Context(), jobID, worker.StatusFailed, "failed to queue job")
		s.writeError(w, r, errors.NewStorageError("failed to queue job", "JOB_ENQUEUE_FAILED", err))
		return
	}

	s.logger.InfoContext(r.Context(), "Job queued", "job_id", jobID, "size", len(upload.audio.Data))
	writeJSON(w, http.StatusAccepted, CreateJobResponse{JobID: jobID, Status: worker.StatusQueued})
}

type JobStatusResponse struct {
	JobID     string               `json:"jobId"`
	Status    string               `json:"status"`
	Message   string               `json:"message,omitempty"`
	UpdatedAt *time.Time           `json:"updatedAt,omitempty"`
	Record    *records.AudioRecord `json:"record,omitempty"`
}

// HandleJobStatus returns the saved record once the job completed, otherwise
// the last state the worker reported. Failed jobs stay failed.
func (s *Server) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if rec, ok := s.store.Get(r.Context(), id); ok {
		writeJSON(w, http.StatusOK, JobStatusResponse{JobID: id, Status: worker.StatusCompleted, Record: &rec})
		return
	}
	state, ok := s.jobs.Get(r.Context(), id)
	if !ok {
		s.writeError(w, r, errors.NewNotFoundError("job not found", "JOB_NOT_FOUND", "Check the job id returned by POST /jobs."))
		return
	}
	writeJSON(w, http.StatusOK, JobStatusResponse{
		JobID:     id,
		Status:    state.Status,
		Message:   state.Message,
		UpdatedAt: &state.UpdatedAt,
	})
}
