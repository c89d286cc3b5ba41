package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/couchcryptid/opendata-summary/internal/domain"
)

// ReportPrinter writes the Markdown report to w, typically stdout.
type ReportPrinter struct {
	w io.Writer
}

// NewReportPrinter creates a ReportPrinter for w.
func NewReportPrinter(w io.Writer) *ReportPrinter {
	return &ReportPrinter{w: w}
}

// Publish prints the report followed by a newline.
func (p *ReportPrinter) Publish(_ context.Context, a domain.Artifact) error {
	if _, err := fmt.Fprintln(p.w, a.Markdown); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	return nil
}
