package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName returns the backup file name for a given day,
// electripro-backup-YYYY-MM-DD.json.
func FileName(t time.Time) string {
	return "electripro-backup-" + t.Format(time.DateOnly) + ".json"
}

// WriteFile writes data to path atomically via a temp file in the same
// directory. Parent directories are created as needed.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ReadFile reads a backup document from path.
func ReadFile(path string) ([]byte, error) {
	// #nosec G304 - controlled path from CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	return data, nil
}
