package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"ricardo-scout/models"
)

// ResultWriter stages rendered result files under an output directory.
type ResultWriter struct {
	dir string
}

func NewResultWriter(dir string) *ResultWriter {
	return &ResultWriter{dir: dir}
}

// Write saves the result set's content under its deterministic file
// name and returns the full path. The output directory is created on
// demand.
func (w *ResultWriter) Write(rs models.ResultSet) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create output dir: %w", err)
	}

	path := filepath.Join(w.dir, rs.Filename)
	if err := os.WriteFile(path, rs.Content, 0o644); err != nil {
		return "", fmt.Errorf("could not write result file: %w", err)
	}
	return path, nil
}
