package storage

import (
	"context"
	"net/http"

	"github.com/gijiroku/minutes/internal/config"
)

// Open returns the configured archive, or nil when archiving is disabled.
func Open(ctx context.Context, cfg *config.Config, httpClient *http.Client) (Archive, error) {
	switch cfg.Archive.Backend {
	case "s3":
		a, err := NewS3Archive(ctx, cfg.Archive)
		if err != nil {
			return nil, err
		}
		return a, nil
	case "supabase":
		return NewSupabaseArchive(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.Archive.Bucket, httpClient), nil
	default:
		return nil, nil
	}
}
