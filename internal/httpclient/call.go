package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/metrics"
)

// Call performs exactly one round trip to a provider API and classifies the
// outcome. A nil error guarantees a 2xx response.
func Call(ctx context.Context, client *http.Client, providerID, operation string, req *http.Request) (*Response, error) {
	start := time.Now()
	req = req.WithContext(WithProvider(req.Context(), providerID))

	resp, err := Do(client, req)
	metrics.RecordExternalCall(ctx, providerID, operation, start)
	if err != nil {
		return nil, errors.NewTransportError(providerID, err)
	}
	if !resp.OK() {
		return resp, errors.NewUpstreamError(providerID, resp.StatusCode, resp.Body)
	}
	return resp, nil
}
