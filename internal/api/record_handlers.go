package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/records"
	"github.com/gijiroku/minutes/internal/services/minutes"
	"github.com/gijiroku/minutes/internal/validation"
)

type SaveRecordRequest struct {
	ID         string          `json:"id" validate:"omitempty,max=64"`
	FileName   string          `json:"fileName" validate:"required,max=255"`
	Transcript string          `json:"transcript"`
	Minutes    *minutes.Record `json:"minutes"`
	// RawText is a model draft; it is parsed when Minutes is absent.
	RawText string `json:"rawText"`
}

type RecordsResponse struct {
	Records []records.AudioRecord `json:"records"`
}

func (s *Server) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RecordsResponse{Records: s.store.List(r.Context())})
}

func (s *Server) HandleSaveRecord(w http.ResponseWriter, r *http.Request) {
	var req SaveRecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		s.writeError(w, r, err)
		return
	}

	rec := records.AudioRecord{
		ID:         req.ID,
		FileName:   req.FileName,
		Transcript: req.Transcript,
		CreatedAt:  time.Now().UTC(),
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if req.Minutes != nil {
		rec.Minutes = *req.Minutes
		if rec.Minutes.MainPoints == nil {
			rec.Minutes.MainPoints = []string{}
		}
	} else {
		rec.Minutes = s.extractor.Extract(req.RawText)
	}

	s.store.Save(r.Context(), rec)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Get(r.Context(), pathParam(r, "id"))
	if !ok {
		s.writeError(w, r, recordNotFound())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if !s.store.Delete(r.Context(), pathParam(r, "id")) {
		s.writeError(w, r, recordNotFound())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandleClearRecords(w http.ResponseWriter, r *http.Request) {
	s.store.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func recordNotFound() error {
	return errors.NewNotFoundError("record not found", "RECORD_NOT_FOUND", "List /records for available ids.")
}
