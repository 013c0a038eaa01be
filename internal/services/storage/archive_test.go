package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gijiroku/minutes/internal/config"
	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/httpclient"
)

func TestAudioKey(t *testing.T) {
	now := time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "audio/2025/03/14/job-1.webm", AudioKey("job-1", "Meeting.WEBM", now))
	assert.Equal(t, "audio/2025/03/14/job-1.bin", AudioKey("job-1", "noext", now))
}

func TestMemoryArchive(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryArchive()

	require.NoError(t, a.Put(ctx, "k", []byte("audio"), "audio/webm"))
	data, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("audio"), data)

	require.NoError(t, a.Delete(ctx, "k"))
	_, err = a.Get(ctx, "k")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

// fakeSupabase serves the storage object endpoints from a map.
func fakeSupabase(t *testing.T) *httptest.Server {
	var mu sync.Mutex
	objects := make(map[string][]byte)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer service-key" {
			t.Errorf("Expected service key, got '%s'", got)
		}
		mu.Lock()
		defer mu.Unlock()

		switch r.Method {
		case http.MethodPost:
			if r.Header.Get("x-upsert") != "true" {
				t.Errorf("Expected x-upsert header")
			}
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = body
			w.Write([]byte(`{"Key":"ok"}`))
		case http.MethodGet:
			data, ok := objects[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":"not_found"}`))
				return
			}
			w.Write(data)
		case http.MethodDelete:
			delete(objects, r.URL.Path)
			w.Write([]byte(`[]`))
		}
	}))
}

func TestSupabaseArchive(t *testing.T) {
	server := fakeSupabase(t)
	defer server.Close()

	ctx := context.Background()
	a := NewSupabaseArchive(server.URL, "service-key", "recordings", httpclient.NewInstrumentedClient(0))

	key := AudioKey("job-1", "m.webm", time.Now())
	require.NoError(t, a.Put(ctx, key, []byte("audio-bytes"), "audio/webm"))

	data, err := a.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("audio-bytes"), data)

	require.NoError(t, a.Delete(ctx, key))
	_, err = a.Get(ctx, key)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestSupabaseArchive_UploadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a := NewSupabaseArchive(server.URL, "service-key", "recordings", httpclient.NewInstrumentedClient(0))
	err := a.Put(context.Background(), "k", []byte("x"), "")
	assert.True(t, errors.IsType(err, errors.ErrorTypeStorage))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	a, err := Open(ctx, &config.Config{Archive: config.ArchiveConfig{Backend: "none"}}, nil)
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = Open(ctx, &config.Config{
		SupabaseURL:            "https://example.supabase.co",
		SupabaseServiceRoleKey: "service",
		Archive:                config.ArchiveConfig{Backend: "supabase", Bucket: "audio"},
	}, httpclient.NewInstrumentedClient(0))
	require.NoError(t, err)
	assert.IsType(t, &SupabaseArchive{}, a)
}
