package domain

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// DefaultReportTitle heads the Markdown report when no title is configured.
const DefaultReportTitle = "Decide Madrid – Proposals summary"

// Result is the structured summary artifact.
type Result struct {
	Metrics            Metrics `json:"metrics"`
	DeltaVsPreviousDay *int    `json:"delta_vs_previous_day"`
	SourceFile         string  `json:"source_file"`
}

// NewResult assembles the artifact for a snapshot read from source.
func NewResult(m Metrics, cmp Comparison, source string) Result {
	return Result{
		Metrics:            m,
		DeltaVsPreviousDay: cmp.Delta,
		SourceFile:         source,
	}
}

// RenderJSON serializes a result with two-space indentation and a trailing
// newline. Non-ASCII text and HTML characters are written unescaped.
func RenderJSON(r Result) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("render summary json: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderMarkdown produces the human-readable report. Lines for nil metrics
// are omitted rather than printed as null.
func RenderMarkdown(title string, r Result) string {
	if title == "" {
		title = DefaultReportTitle
	}
	m := r.Metrics

	lines := []string{"# " + title, ""}

	proposals := fmt.Sprintf("- Proposals: %d", m.ProposalsCount)
	if r.DeltaVsPreviousDay != nil {
		proposals += fmt.Sprintf(" (Δ %+d)", *r.DeltaVsPreviousDay)
	}
	lines = append(lines, proposals)

	if m.CachedVotesTotalSum != nil {
		lines = append(lines, fmt.Sprintf("- Votes (total): %d", *m.CachedVotesTotalSum))
		if m.CachedVotesTotalMean != nil {
			lines = append(lines, fmt.Sprintf("- Mean votes (total): %.3f", *m.CachedVotesTotalMean))
		}
	}

	lines = append(lines, fmt.Sprintf("- Votes (cached_votes_up sum): %d", m.CachedVotesUpSum))
	if m.CachedVotesUpMean != nil {
		lines = append(lines, fmt.Sprintf("- Mean cached_votes_up: %.3f", *m.CachedVotesUpMean))
	}

	if m.ConfidenceScoreMean != nil {
		lines = append(lines, fmt.Sprintf("- Mean confidence_score: %.6f", *m.ConfidenceScoreMean))
	}

	lines = append(lines, fmt.Sprintf("- Retired count: %d", m.RetiredCount), "")
	return strings.Join(lines, "\n")
}

// Artifact is a rendered result ready for publishing.
type Artifact struct {
	Result   Result
	JSON     []byte
	Markdown string
	Encoding Encoding
	RunID    string
}

// Render produces both renderings of r.
func Render(title string, r Result) (Artifact, error) {
	js, err := RenderJSON(r)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Result: r, JSON: js, Markdown: RenderMarkdown(title, r)}, nil
}
