// Package storage archives uploaded audio so background jobs can fetch it.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gijiroku/minutes/internal/errors"
)

// Archive stores audio blobs by key.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// AudioKey builds the object key for a job's audio, bucketed by day.
func AudioKey(jobID, fileName string, now time.Time) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" || len(ext) > 6 {
		ext = ".bin"
	}
	return fmt.Sprintf("audio/%s/%s%s", now.UTC().Format("2006/01/02"), jobID, ext)
}

// MemoryArchive keeps blobs in process memory. It only works when the server
// and the worker run in the same process.
type MemoryArchive struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{blobs: make(map[string][]byte)}
}

func (m *MemoryArchive) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryArchive) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, errors.NewNotFoundError("archived audio not found", "AUDIO_NOT_FOUND", "Upload the recording again.")
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryArchive) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}
