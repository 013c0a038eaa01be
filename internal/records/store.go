// Package records keeps the most recent processed recordings. The whole list
// is stored as one JSON blob; backend failures are logged and never surface
// to callers.
package records

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/metrics"
	"github.com/gijiroku/minutes/internal/services/minutes"
)

const (
	DefaultKey = "audioRecords"
	MaxRecords = 100
)

type AudioRecord struct {
	ID         string         `json:"id"`
	FileName   string         `json:"fileName"`
	Transcript string         `json:"transcript"`
	Minutes    minutes.Record `json:"minutes"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Backend persists a single blob under a key. Load returns nil, nil when the
// key does not exist.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, data []byte) error
}

type Store struct {
	mu      sync.Mutex
	backend Backend
	key     string
	logger  *slog.Logger
}

func NewStore(backend Backend, key string, logger *slog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{backend: backend, key: key, logger: logger}
}

// List returns the records, most recent first.
func (s *Store) List(ctx context.Context) []AudioRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (AudioRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.load(ctx) {
		if r.ID == id {
			return r, true
		}
	}
	return AudioRecord{}, false
}

// Save replaces the record with the same id in place, or prepends it. The
// list is then cut to MaxRecords, dropping the oldest.
func (s *Store) Save(ctx context.Context, rec AudioRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(ctx)
	replaced := false
	for i := range list {
		if list[i].ID == rec.ID {
			list[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		list = append([]AudioRecord{rec}, list...)
	}
	if len(list) > MaxRecords {
		list = list[:MaxRecords]
	}
	s.store(ctx, "save", list)
}

// Delete removes the record with id. It reports whether one was removed.
func (s *Store) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load(ctx)
	for i := range list {
		if list[i].ID == id {
			list = append(list[:i], list[i+1:]...)
			s.store(ctx, "delete", list)
			return true
		}
	}
	return false
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(ctx, "clear", []AudioRecord{})
}

func (s *Store) load(ctx context.Context) []AudioRecord {
	data, err := s.backend.Load(ctx, s.key)
	if err != nil {
		s.fail(ctx, "load", errors.NewStorageError("failed to load records", "RECORDS_LOAD_FAILED", err))
		return []AudioRecord{}
	}
	if len(data) == 0 {
		return []AudioRecord{}
	}

	var list []AudioRecord
	if err := json.Unmarshal(data, &list); err != nil {
		s.fail(ctx, "decode", errors.NewStorageError("stored records are not valid JSON", "RECORDS_CORRUPT", err))
		return []AudioRecord{}
	}
	if list == nil {
		list = []AudioRecord{}
	}
	return list
}

func (s *Store) store(ctx context.Context, op string, list []AudioRecord) {
	data, err := json.Marshal(list)
	if err != nil {
		s.fail(ctx, op, errors.NewStorageError("failed to encode records", "RECORDS_ENCODE_FAILED", err))
		return
	}
	if err := s.backend.Store(ctx, s.key, data); err != nil {
		s.fail(ctx, op, errors.NewStorageError("failed to store records", "RECORDS_STORE_FAILED", err))
	}
}

func (s *Store) fail(ctx context.Context, op string, err error) {
	metrics.RecordStoreFailure(ctx, op)
	s.logger.WarnContext(ctx, "Record store operation failed", "operation", op, "error", err)
}
