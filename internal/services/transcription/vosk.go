package transcription

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/metrics"
	"github.com/gijiroku/minutes/internal/providers"
)

// voskChunkBytes is the size of each binary frame sent to the server.
const voskChunkBytes = 8000

// VoskProvider talks to a self-hosted vosk-server over websocket. It needs
// an endpoint instead of an API key and expects 16 kHz mono PCM/WAV audio.
type VoskProvider struct {
	dialer     *websocket.Dialer
	sampleRate int
}

// NewVoskProvider creates a new offline transcription provider
func NewVoskProvider() *VoskProvider {
	return &VoskProvider{
		dialer:     websocket.DefaultDialer,
		sampleRate: 16000,
	}
}

type voskResult struct {
	Text    string `json:"text"`
	Partial string `json:"partial"`
}

func (p *VoskProvider) ID() providers.ID {
	return providers.Vosk
}

func (p *VoskProvider) Transcribe(ctx context.Context, audio Audio, opts Options, cred providers.Credential) (string, error) {
	start := time.Now()
	defer metrics.RecordExternalCall(ctx, string(providers.Vosk), "transcribe", start)

	conn, err := p.dial(ctx, cred.Endpoint)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	config := map[string]any{"config": map[string]any{"sample_rate": p.sampleRate}}
	if err := conn.WriteJSON(config); err != nil {
		return "", errors.NewTransportError(string(providers.Vosk), err)
	}

	// Read results concurrently so the server never blocks on a full buffer
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		var parts []string
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				switch {
				case isFinalClose(err):
					done <- outcome{text: strings.Join(parts, " ")}
				case errors.IsTimeout(err) || ctx.Err() != nil:
					done <- outcome{err: errors.NewTimeoutError(string(providers.Vosk), err)}
				case len(parts) > 0:
					done <- outcome{text: strings.Join(parts, " ")}
				default:
					done <- outcome{err: errors.NewTransportError(string(providers.Vosk), err)}
				}
				return
			}
			var res voskResult
			if err := json.Unmarshal(message, &res); err != nil {
				done <- outcome{err: errors.NewMalformedResponseError(string(providers.Vosk), message, err)}
				return
			}
			if t := strings.TrimSpace(res.Text); t != "" {
				parts = append(parts, t)
			}
		}
	}()

	for offset := 0; offset < len(audio.Data); offset += voskChunkBytes {
		end := min(offset+voskChunkBytes, len(audio.Data))
		if err := conn.WriteMessage(websocket.BinaryMessage, audio.Data[offset:end]); err != nil {
			return "", writeError(ctx, err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return "", writeError(ctx, err)
	}

	select {
	case <-ctx.Done():
		return "", errors.NewTimeoutError(string(providers.Vosk), ctx.Err())
	case out := <-done:
		// The read deadline and ctx expire together; a result racing the
		// deadline is still a timeout.
		if out.err == nil && ctx.Err() != nil {
			return "", errors.NewTimeoutError(string(providers.Vosk), ctx.Err())
		}
		return out.text, out.err
	}
}

func writeError(ctx context.Context, err error) error {
	if errors.IsTimeout(err) || ctx.Err() != nil {
		return errors.NewTimeoutError(string(providers.Vosk), err)
	}
	return errors.NewTransportError(string(providers.Vosk), err)
}

// Probe opens a session and immediately ends it.
func (p *VoskProvider) Probe(ctx context.Context, cred providers.Credential) error {
	conn, err := p.dial(ctx, cred.Endpoint)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return errors.NewTransportError(string(providers.Vosk), err)
	}
	if _, _, err := conn.ReadMessage(); err != nil && !isFinalClose(err) {
		return errors.NewTransportError(string(providers.Vosk), err)
	}
	return nil
}

func (p *VoskProvider) dial(ctx context.Context, endpoint string) (*websocket.Conn, error) {
	conn, resp, err := p.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, errors.NewUpstreamError(string(providers.Vosk), resp.StatusCode, nil)
		}
		return nil, errors.NewTransportError(string(providers.Vosk), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}
	return conn, nil
}

func isFinalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
