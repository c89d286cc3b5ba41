// Package fs reads snapshot files and writes report artifacts on the local
// filesystem.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/opendata-summary/internal/domain"
)

// Reader loads snapshot files. It implements domain.SnapshotReader.
type Reader struct{}

// ReadSnapshot returns the raw bytes of path. Any failure to open or read the
// file wraps domain.ErrInputNotFound.
func (Reader) ReadSnapshot(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w: %w", path, domain.ErrInputNotFound, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("read snapshot %q: %w: is a directory", path, domain.ErrInputNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %q: %w: %w", path, domain.ErrInputNotFound, err)
	}
	return data, nil
}

// ArtifactWriter persists the JSON and Markdown renderings of a result.
// An empty path skips that artifact. It implements pipeline.Publisher.
type ArtifactWriter struct {
	JSONPath     string
	MarkdownPath string
}

// Publish writes the JSON artifact, then the Markdown artifact, creating
// parent directories as needed.
func (w ArtifactWriter) Publish(_ context.Context, a domain.Artifact) error {
	if err := WriteFile(w.JSONPath, a.JSON); err != nil {
		return err
	}
	return WriteFile(w.MarkdownPath, []byte(a.Markdown))
}

// WriteFile writes data to path, creating parent directories. An empty path
// is a no-op.
func WriteFile(path string, data []byte) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %q: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}
