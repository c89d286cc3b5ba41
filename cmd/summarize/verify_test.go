package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/opendata-summary/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const latestCSV = "id,confidence_score,cached_votes_up,retired_at\n" +
	"1,0.8,5,\n" +
	"2,0.6,3,2024-05-01\n" +
	"3,,2,\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeSummary renders the result the summarizer would have produced.
func writeSummary(t *testing.T, dir, input string, delta *int) string {
	t.Helper()
	m := domain.Aggregate(domain.Parse(latestCSV).Rows())
	js, err := domain.RenderJSON(domain.NewResult(m, domain.Comparison{Delta: delta}, input))
	require.NoError(t, err)
	return writeFile(t, dir, "summary.json", string(js))
}

func TestRunVerify_Passes(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "latest.csv", latestCSV)
	summary := writeSummary(t, dir, in, nil)

	var out bytes.Buffer
	require.NoError(t, runVerify(context.Background(), &out, in, summary, ""))
	assert.Contains(t, out.String(), "All verifications passed.")
	assert.NotContains(t, out.String(), "Phase 3")
}

func TestRunVerify_DeltaPhase(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "latest.csv", latestCSV)
	prev := writeFile(t, dir, "prev.csv", "id\n1\n")
	delta := 2
	summary := writeSummary(t, dir, in, &delta)

	var out bytes.Buffer
	require.NoError(t, runVerify(context.Background(), &out, in, summary, prev))
	assert.Contains(t, out.String(), "Phase 3: Delta vs previous day")
}

func TestRunVerify_DetectsMismatches(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "latest.csv", latestCSV+"4,0.1,1,\n")
	prev := writeFile(t, dir, "prev.csv", "id\n1\n")
	summary := writeSummary(t, dir, "elsewhere.csv", nil)

	var out bytes.Buffer
	err := runVerify(context.Background(), &out, in, summary, prev)
	require.ErrorIs(t, err, errVerifyFailed)

	s := out.String()
	assert.Contains(t, s, "Verification FAILED.")
	assert.Contains(t, s, "proposals_count: expected 4, got 3")
	assert.Contains(t, s, `source_file: expected "`+in+`", got "elsewhere.csv"`)
	assert.Contains(t, s, "delta_vs_previous_day: expected +3, got null")
}

func TestRunVerify_MissingSnapshot(t *testing.T) {
	dir := t.TempDir()
	summary := writeSummary(t, dir, "latest.csv", nil)

	var out bytes.Buffer
	err := runVerify(context.Background(), &out, filepath.Join(dir, "latest.csv"), summary, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInputNotFound))
}

func TestRunVerify_MalformedSummary(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "latest.csv", latestCSV)
	summary := writeFile(t, dir, "summary.json", "{not json")

	var out bytes.Buffer
	err := runVerify(context.Background(), &out, in, summary, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errVerifyFailed)
}

func TestVerifyMetrics_NullAware(t *testing.T) {
	half := 0.5
	almostHalf := 0.5 + 1e-12
	total := int64(3)

	assert.True(t, verifyMetrics(domain.Metrics{ConfidenceScoreMean: &half}, domain.Metrics{ConfidenceScoreMean: &almostHalf}).passed())
	assert.False(t, verifyMetrics(domain.Metrics{ConfidenceScoreMean: &half}, domain.Metrics{}).passed())
	assert.False(t, verifyMetrics(domain.Metrics{}, domain.Metrics{CachedVotesTotalSum: &total}).passed())
	assert.True(t, verifyMetrics(domain.Metrics{}, domain.Metrics{}).passed())
}

func TestVerifyDelta(t *testing.T) {
	two, three := 2, 3
	assert.True(t, verifyDelta(5, 3, &two).passed())
	assert.False(t, verifyDelta(5, 3, &three).passed())
	assert.False(t, verifyDelta(5, 3, nil).passed())
}
