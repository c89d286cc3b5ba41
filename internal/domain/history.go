package domain

import (
	"context"
	"errors"
	"fmt"
)

// VersionControl reads earlier revisions of a tracked snapshot file.
type VersionControl interface {
	// ReadPreviousRevision returns the file as of the previous revision. When
	// no such revision exists the error wraps ErrHistoryUnavailable.
	ReadPreviousRevision(ctx context.Context, path string) ([]byte, error)
}

// SnapshotReader loads a snapshot file. A missing or unreadable file wraps
// ErrInputNotFound.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, path string) ([]byte, error)
}

// HistorySource records where a previous snapshot was found.
type HistorySource string

const (
	HistoryNone HistorySource = ""
	HistoryFile HistorySource = "file"
	HistoryVCS  HistorySource = "vcs"
)

// Comparison is a snapshot's row count measured against its predecessor.
// Delta is nil when no predecessor was found, which is distinct from a
// delta of zero. Unavailable explains a failed lookup and wraps
// ErrHistoryUnavailable; it stays nil when no lookup was requested.
type Comparison struct {
	Source        HistorySource
	PreviousCount int
	Delta         *int
	Unavailable   error
}

// HistoryComparator resolves the previous snapshot and computes the delta.
type HistoryComparator struct {
	files SnapshotReader
	vcs   VersionControl
}

// NewHistoryComparator creates a comparator. A nil vcs disables
// version-control lookups.
func NewHistoryComparator(files SnapshotReader, vcs VersionControl) *HistoryComparator {
	return &HistoryComparator{files: files, vcs: vcs}
}

// Compare measures current against the previous snapshot of input. An
// existing prev file wins; otherwise, if useVCS is set, the previous revision
// of input is read from version control. Only the previous row count is kept.
func (h *HistoryComparator) Compare(ctx context.Context, current int, input, prev string, useVCS bool) (Comparison, error) {
	var missing error
	if prev != "" && h.files != nil {
		data, err := h.files.ReadSnapshot(ctx, prev)
		switch {
		case err == nil:
			return compareBytes(current, data, HistoryFile)
		case !errors.Is(err, ErrInputNotFound):
			return Comparison{}, fmt.Errorf("read previous snapshot %q: %w", prev, err)
		}
		missing = fmt.Errorf("previous snapshot %q: %w", prev, ErrHistoryUnavailable)
	}

	if !useVCS || h.vcs == nil {
		return Comparison{Unavailable: missing}, nil
	}

	data, err := h.vcs.ReadPreviousRevision(ctx, input)
	if err != nil {
		if errors.Is(err, ErrHistoryUnavailable) {
			return Comparison{Unavailable: err}, nil
		}
		return Comparison{}, fmt.Errorf("read previous revision of %q: %w", input, err)
	}
	return compareBytes(current, data, HistoryVCS)
}

func compareBytes(current int, data []byte, source HistorySource) (Comparison, error) {
	text, err := Decode(data)
	if err != nil {
		return Comparison{}, err
	}
	previous := Parse(text.Text).Len()
	delta := current - previous
	return Comparison{Source: source, PreviousCount: previous, Delta: &delta}, nil
}
