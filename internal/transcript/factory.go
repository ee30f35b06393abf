package transcript

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// NewStore creates a postgres-backed store when configured, otherwise the
// JSON file store.
func NewStore(ctx context.Context, databaseURL, filePath string, log zerolog.Logger) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewFileStore(filePath, log), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
