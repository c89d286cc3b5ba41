package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/opendata-summary/internal/domain"
	"github.com/couchcryptid/opendata-summary/internal/observability"
	"github.com/couchcryptid/opendata-summary/internal/pipeline"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockFiles map[string][]byte

func (m mockFiles) ReadSnapshot(_ context.Context, path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("read snapshot %q: %w", path, domain.ErrInputNotFound)
	}
	return data, nil
}

type mockVCS struct {
	data []byte
	err  error
}

func (m *mockVCS) ReadPreviousRevision(context.Context, string) ([]byte, error) {
	return m.data, m.err
}

type mockPublisher struct {
	name      string
	err       error
	published []domain.Artifact
	order     *[]string
}

func (m *mockPublisher) Publish(_ context.Context, a domain.Artifact) error {
	if m.order != nil {
		*m.order = append(*m.order, m.name)
	}
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, a)
	return nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func metricValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Histogram != nil:
		return float64(m.Histogram.GetSampleCount())
	}
	t.Fatalf("unsupported metric type")
	return 0
}

const snapshot = "id,confidence_score,cached_votes_up,cached_votes_total,retired_at\n" +
	"1,0.8,5,10,\n" +
	"2,0.6,3,20,2024-05-01\n"

// --- tests ---

func TestSummarizer_Run_HappyPath(t *testing.T) {
	pub := &mockPublisher{}
	metrics := newTestMetrics()
	s := pipeline.NewSummarizer(mockFiles{"in.csv": []byte(snapshot)}, nil, "", discardLogger(), metrics, pub)

	summary, err := s.Run(context.Background(), pipeline.Job{Input: "in.csv"})
	require.NoError(t, err)

	m := summary.Result.Metrics
	assert.Equal(t, 2, m.ProposalsCount)
	assert.Equal(t, int64(8), m.CachedVotesUpSum)
	require.NotNil(t, m.CachedVotesTotalSum)
	assert.Equal(t, int64(30), *m.CachedVotesTotalSum)
	assert.Equal(t, 1, m.RetiredCount)
	assert.Nil(t, summary.Result.DeltaVsPreviousDay)
	assert.Equal(t, "in.csv", summary.Result.SourceFile)
	assert.Equal(t, domain.EncodingUTF8, summary.Encoding)
	assert.Contains(t, summary.Markdown, "- Proposals: 2\n")
	assert.Contains(t, string(summary.JSON), `"source_file": "in.csv"`)

	_, err = uuid.Parse(summary.RunID)
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.Equal(t, summary.Artifact, pub.published[0])

	assert.InDelta(t, 1, metricValue(t, metrics.Runs.WithLabelValues(observability.OutcomeSuccess)), 0)
	assert.InDelta(t, 2, metricValue(t, metrics.RowsParsed), 0)
	assert.InDelta(t, 1, metricValue(t, metrics.HistoryLookups.WithLabelValues(observability.HistorySkipped)), 0)
	assert.InDelta(t, 1, metricValue(t, metrics.RunDuration), 0)
}

func TestSummarizer_Run_DeltaFromVCS(t *testing.T) {
	prev := "id\n1\n"
	metrics := newTestMetrics()
	s := pipeline.NewSummarizer(mockFiles{"in.csv": []byte(snapshot)}, &mockVCS{data: []byte(prev)}, "", discardLogger(), metrics)

	summary, err := s.Run(context.Background(), pipeline.Job{Input: "in.csv", CompareGit: true})
	require.NoError(t, err)
	require.NotNil(t, summary.Result.DeltaVsPreviousDay)
	assert.Equal(t, 1, *summary.Result.DeltaVsPreviousDay)
	assert.Equal(t, domain.HistoryVCS, summary.History.Source)
	assert.Contains(t, summary.Markdown, "- Proposals: 2 (Δ +1)")
	assert.InDelta(t, 1, metricValue(t, metrics.HistoryLookups.WithLabelValues(observability.HistoryFound)), 0)
}

func TestSummarizer_Run_HistoryUnavailable(t *testing.T) {
	vcs := &mockVCS{err: fmt.Errorf("no previous commit: %w", domain.ErrHistoryUnavailable)}
	metrics := newTestMetrics()
	s := pipeline.NewSummarizer(mockFiles{"in.csv": []byte(snapshot)}, vcs, "", discardLogger(), metrics)

	summary, err := s.Run(context.Background(), pipeline.Job{Input: "in.csv", CompareGit: true})
	require.NoError(t, err)
	assert.Nil(t, summary.Result.DeltaVsPreviousDay)
	assert.Contains(t, string(summary.JSON), `"delta_vs_previous_day": null`)
	assert.InDelta(t, 1, metricValue(t, metrics.HistoryLookups.WithLabelValues(observability.HistoryUnavailable)), 0)
}

func TestSummarizer_Run_PrevFile(t *testing.T) {
	files := mockFiles{
		"in.csv":   []byte(snapshot),
		"prev.csv": []byte("id\n1\n2\n3\n"),
	}
	s := pipeline.NewSummarizer(files, nil, "", discardLogger(), newTestMetrics())

	summary, err := s.Run(context.Background(), pipeline.Job{Input: "in.csv", Prev: "prev.csv"})
	require.NoError(t, err)
	require.NotNil(t, summary.Result.DeltaVsPreviousDay)
	assert.Equal(t, -1, *summary.Result.DeltaVsPreviousDay)
	assert.Equal(t, domain.HistoryFile, summary.History.Source)
}

func TestSummarizer_Run_InputNotFound(t *testing.T) {
	pub := &mockPublisher{}
	metrics := newTestMetrics()
	s := pipeline.NewSummarizer(mockFiles{}, nil, "", discardLogger(), metrics, pub)

	_, err := s.Run(context.Background(), pipeline.Job{Input: "missing.csv"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInputNotFound)
	assert.Empty(t, pub.published)
	assert.InDelta(t, 1, metricValue(t, metrics.Runs.WithLabelValues(observability.OutcomeInputNotFound)), 0)
	assert.InDelta(t, 0, metricValue(t, metrics.Runs.WithLabelValues(observability.OutcomeSuccess)), 0)
}

func TestSummarizer_Run_CP1252Fallback(t *testing.T) {
	raw := []byte("id,title\n1,Caf\xe9 \x80\n")
	metrics := newTestMetrics()
	s := pipeline.NewSummarizer(mockFiles{"in.csv": raw}, nil, "", discardLogger(), metrics)

	summary, err := s.Run(context.Background(), pipeline.Job{Input: "in.csv"})
	require.NoError(t, err)
	assert.Equal(t, domain.EncodingCP1252, summary.Encoding)
	assert.Equal(t, 1, summary.Result.Metrics.ProposalsCount)
	assert.InDelta(t, 1, metricValue(t, metrics.DecodeFallbacks), 0)
}

func TestSummarizer_Run_PublishersInOrderFirstErrorAborts(t *testing.T) {
	var order []string
	first := &mockPublisher{name: "files", order: &order}
	failing := &mockPublisher{name: "kafka", order: &order, err: errors.New("broker down")}
	last := &mockPublisher{name: "stdout", order: &order}
	metrics := newTestMetrics()

	s := pipeline.NewSummarizer(mockFiles{"in.csv": []byte(snapshot)}, nil, "", discardLogger(), metrics, first, failing, last)

	_, err := s.Run(context.Background(), pipeline.Job{Input: "in.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, []string{"files", "kafka"}, order)
	assert.Len(t, first.published, 1)
	assert.Empty(t, last.published)
	assert.InDelta(t, 1, metricValue(t, metrics.Runs.WithLabelValues(observability.OutcomeError)), 0)
}

func TestSummarizer_Run_CustomTitle(t *testing.T) {
	s := pipeline.NewSummarizer(mockFiles{"in.csv": []byte(snapshot)}, nil, "Resumen diario", discardLogger(), newTestMetrics())

	summary, err := s.Run(context.Background(), pipeline.Job{Input: "in.csv"})
	require.NoError(t, err)
	assert.Contains(t, summary.Markdown, "# Resumen diario\n")
}

func TestSummarizer_Run_DurationUsesClock(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 6, 0, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})
	metrics := newTestMetrics()
	s := pipeline.NewSummarizer(mockFiles{"in.csv": []byte(snapshot)}, nil, "", discardLogger(), metrics)

	summary, err := s.Run(context.Background(), pipeline.Job{Input: "in.csv"})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), summary.Duration)
	assert.InDelta(t, float64(fakeClock.Now().Unix()), metricValue(t, metrics.LastSuccessTimestamp), 0)
}

func TestSummarizer_Run_Idempotent(t *testing.T) {
	s := pipeline.NewSummarizer(mockFiles{"in.csv": []byte(snapshot)}, nil, "", discardLogger(), newTestMetrics())

	a, err := s.Run(context.Background(), pipeline.Job{Input: "in.csv"})
	require.NoError(t, err)
	b, err := s.Run(context.Background(), pipeline.Job{Input: "in.csv"})
	require.NoError(t, err)

	assert.Equal(t, a.JSON, b.JSON)
	assert.Equal(t, a.Markdown, b.Markdown)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestReportPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := pipeline.NewReportPrinter(&buf)

	require.NoError(t, p.Publish(context.Background(), domain.Artifact{Markdown: "# Title\n\n- Proposals: 1\n"}))
	assert.Equal(t, "# Title\n\n- Proposals: 1\n\n", buf.String())
}
