package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/SAP-F-2025/quiz-service/internal/gateway"
	"github.com/SAP-F-2025/quiz-service/internal/storage"
)

// loadFiles reads attachment objects for a gateway call. Without a store the
// attachments are skipped and only text is sent.
func loadFiles(ctx context.Context, store storage.BlobStore, keys []string, logger *slog.Logger) ([]gateway.File, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if store == nil {
		logger.Warn("Attachments present but no blob store configured", "count", len(keys))
		return nil, nil
	}

	files := make([]gateway.File, 0, len(keys))
	for _, key := range keys {
		content, err := storage.ReadAll(ctx, store, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", key, err)
		}
		files = append(files, gateway.File{
			Name:     path.Base(key),
			MimeType: storage.ContentType(key),
			Content:  content,
		})
	}
	return files, nil
}
