package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/providers"
)

// fakeVoskServer answers each binary frame with a partial result and the eof
// message with the given final results, then closes.
func fakeVoskServer(t *testing.T, finals ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"partial": "..."}`))
				continue
			}
			if strings.Contains(string(msg), "eof") {
				for _, f := range finals {
					_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"text": "`+f+`"}`))
				}
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestVoskProvider_Transcribe(t *testing.T) {
	server := fakeVoskServer(t, "来月 も 継続", "以上 です")
	defer server.Close()

	audio := Audio{Data: make([]byte, 3*voskChunkBytes+10)}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	text, err := NewVoskProvider().Transcribe(ctx, audio, Options{}, providers.Credential{Endpoint: wsURL(server)})
	require.NoError(t, err)
	assert.Equal(t, "来月 も 継続 以上 です", text)
}

// A server that sends one result and then goes quiet must not turn the
// deadline into a truncated success.
func TestVoskProvider_StallAfterResultIsTimeout(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"text": "途中 まで"}`))
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	text, err := NewVoskProvider().Transcribe(ctx, Audio{Data: make([]byte, 100)}, Options{}, providers.Credential{Endpoint: wsURL(server)})
	assert.Empty(t, text)
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, errors.ErrorTypeTimeout, appErr.Type)
}

func TestVoskProvider_Probe(t *testing.T) {
	server := fakeVoskServer(t)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, NewVoskProvider().Probe(ctx, providers.Credential{Endpoint: wsURL(server)}))
}

func TestVoskProvider_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	err := NewVoskProvider().Probe(context.Background(), providers.Credential{Endpoint: wsURL(server)})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Details["upstreamStatus"])
}
