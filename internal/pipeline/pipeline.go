package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/opendata-summary/internal/domain"
	"github.com/couchcryptid/opendata-summary/internal/observability"
	"github.com/google/uuid"
)

// Publisher delivers a rendered summary somewhere: files, a topic, stdout.
type Publisher interface {
	Publish(ctx context.Context, a domain.Artifact) error
}

// Job names the snapshot to summarize and how to find its predecessor.
type Job struct {
	Input      string
	Prev       string
	CompareGit bool
}

// Summary is the outcome of one successful run.
type Summary struct {
	domain.Artifact
	History  domain.Comparison
	Duration time.Duration
}

// Summarizer runs the read, decode, parse, aggregate, compare, render and
// publish steps over one snapshot.
type Summarizer struct {
	files      domain.SnapshotReader
	history    *domain.HistoryComparator
	publishers []Publisher
	title      string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewSummarizer creates a Summarizer. A nil vcs disables version-control
// history lookups. Publishers run in the order given.
func NewSummarizer(files domain.SnapshotReader, vcs domain.VersionControl, title string, logger *slog.Logger, metrics *observability.Metrics, publishers ...Publisher) *Summarizer {
	return &Summarizer{
		files:      files,
		history:    domain.NewHistoryComparator(files, vcs),
		publishers: publishers,
		title:      title,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run summarizes job.Input. A missing input wraps domain.ErrInputNotFound.
// The first publisher error aborts the run; earlier publishers have already
// delivered by then.
func (s *Summarizer) Run(ctx context.Context, job Job) (Summary, error) {
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	start := domain.Now()

	logger.Info("summary run started", "input", job.Input, "prev", job.Prev, "compare_git", job.CompareGit)

	summary, err := s.run(ctx, logger, runID, job)
	if err != nil {
		outcome := observability.OutcomeError
		if errors.Is(err, domain.ErrInputNotFound) {
			outcome = observability.OutcomeInputNotFound
		}
		s.metrics.Runs.WithLabelValues(outcome).Inc()
		logger.Error("summary run failed", "error", err, "outcome", outcome)
		return Summary{}, err
	}

	summary.Duration = domain.Since(start)
	s.metrics.Runs.WithLabelValues(observability.OutcomeSuccess).Inc()
	s.metrics.RowsParsed.Set(float64(summary.Result.Metrics.ProposalsCount))
	s.metrics.RunDuration.Observe(summary.Duration.Seconds())
	s.metrics.LastSuccessTimestamp.Set(float64(domain.Now().Unix()))

	logger.Info("summary run complete",
		"proposals", summary.Result.Metrics.ProposalsCount,
		"retired", summary.Result.Metrics.RetiredCount,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (s *Summarizer) run(ctx context.Context, logger *slog.Logger, runID string, job Job) (Summary, error) {
	raw, err := s.files.ReadSnapshot(ctx, job.Input)
	if err != nil {
		return Summary{}, err
	}

	decoded, err := domain.Decode(raw)
	if err != nil {
		return Summary{}, err
	}
	if decoded.Encoding == domain.EncodingCP1252 {
		s.metrics.DecodeFallbacks.Inc()
		logger.Warn("snapshot is not valid utf-8, decoded as cp1252", "input", job.Input, "bytes", len(raw))
	} else {
		logger.Debug("snapshot decoded", "encoding", decoded.Encoding, "bytes", len(raw))
	}

	table := domain.Parse(decoded.Text)
	metrics := domain.Aggregate(table.Rows())

	cmp, err := s.history.Compare(ctx, metrics.ProposalsCount, job.Input, job.Prev, job.CompareGit)
	if err != nil {
		return Summary{}, err
	}
	s.recordHistory(logger, cmp)

	artifact, err := domain.Render(s.title, domain.NewResult(metrics, cmp, job.Input))
	if err != nil {
		return Summary{}, err
	}
	artifact.Encoding = decoded.Encoding
	artifact.RunID = runID

	for i, p := range s.publishers {
		if err := p.Publish(ctx, artifact); err != nil {
			return Summary{}, fmt.Errorf("publisher %d: %w", i, err)
		}
	}

	return Summary{Artifact: artifact, History: cmp}, nil
}

func (s *Summarizer) recordHistory(logger *slog.Logger, cmp domain.Comparison) {
	switch {
	case cmp.Delta != nil:
		s.metrics.HistoryLookups.WithLabelValues(observability.HistoryFound).Inc()
		logger.Info("previous snapshot found", "source", cmp.Source, "previous_count", cmp.PreviousCount, "delta", *cmp.Delta)
	case cmp.Unavailable != nil:
		s.metrics.HistoryLookups.WithLabelValues(observability.HistoryUnavailable).Inc()
		logger.Info("previous snapshot unavailable", "reason", cmp.Unavailable)
	default:
		s.metrics.HistoryLookups.WithLabelValues(observability.HistorySkipped).Inc()
	}
}
