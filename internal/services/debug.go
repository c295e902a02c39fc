package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Lllllllleong/noticeflow/internal/notice"
)

// WriteBatchJSON saves the batch envelope as indented JSON at path, creating
// parent directories as needed.
func WriteBatchJSON(b *notice.Batch, path string) error {
	slog.Info("Saving batch JSON.", "path", path, "records", b.Len())
	data, err := json.MarshalIndent(b.Envelope(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode batch: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
