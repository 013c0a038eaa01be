package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gijiroku/minutes/internal/errors"
	"github.com/gijiroku/minutes/internal/httpclient"
)

// SupabaseArchive stores audio in a Supabase Storage bucket.
type SupabaseArchive struct {
	supabaseURL string
	serviceKey  string
	bucket      string
	httpClient  *http.Client
}

func NewSupabaseArchive(supabaseURL, serviceKey, bucket string, httpClient *http.Client) *SupabaseArchive {
	return &SupabaseArchive{
		supabaseURL: supabaseURL,
		serviceKey:  serviceKey,
		bucket:      bucket,
		httpClient:  httpClient,
	}
}

func (c *SupabaseArchive) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.supabaseURL, c.bucket, key)
}

func (c *SupabaseArchive) newRequest(ctx context.Context, method, key string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.objectURL(key), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	return req, nil
}

func (c *SupabaseArchive) Put(ctx context.Context, key string, data []byte, contentType string) error {
	req, err := c.newRequest(ctx, http.MethodPost, key, data)
	if err != nil {
		return errors.NewStorageError("failed to create upload request", "ARCHIVE_UPLOAD_FAILED", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	if _, err := httpclient.Call(ctx, c.httpClient, "supabase", "upload", req); err != nil {
		return errors.NewStorageError("failed to upload audio", "ARCHIVE_UPLOAD_FAILED", err)
	}
	return nil
}

func (c *SupabaseArchive) Get(ctx context.Context, key string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, key, nil)
	if err != nil {
		return nil, errors.NewStorageError("failed to create download request", "ARCHIVE_DOWNLOAD_FAILED", err)
	}

	resp, err := httpclient.Call(ctx, c.httpClient, "supabase", "download", req)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, errors.NewNotFoundError("archived audio not found", "AUDIO_NOT_FOUND", "Upload the recording again.")
		}
		return nil, errors.NewStorageError("failed to download audio", "ARCHIVE_DOWNLOAD_FAILED", err)
	}
	return resp.Body, nil
}

func (c *SupabaseArchive) Delete(ctx context.Context, key string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, key, nil)
	if err != nil {
		return errors.NewStorageError("failed to create delete request", "ARCHIVE_DELETE_FAILED", err)
	}
	if _, err := httpclient.Call(ctx, c.httpClient, "supabase", "delete", req); err != nil {
		return errors.NewStorageError("failed to delete audio", "ARCHIVE_DELETE_FAILED", err)
	}
	return nil
}
