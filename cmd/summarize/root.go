package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/opendata-summary/internal/adapter/fs"
	"github.com/couchcryptid/opendata-summary/internal/adapter/git"
	httpadapter "github.com/couchcryptid/opendata-summary/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/opendata-summary/internal/adapter/kafka"
	"github.com/couchcryptid/opendata-summary/internal/config"
	"github.com/couchcryptid/opendata-summary/internal/domain"
	"github.com/couchcryptid/opendata-summary/internal/observability"
	"github.com/couchcryptid/opendata-summary/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const defaultInput = "decide-madrid/proposals_latest.csv"

var (
	inPath          string
	prevPath        string
	compareGit      bool
	outJSON         string
	outMarkdown     string
	scheduleFlag    string
	titleFlag       string
	metricsTextfile string
)

var rootCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a Decide Madrid proposals CSV snapshot",
	Long: `Summarize a Decide Madrid proposals CSV snapshot.

Computes proposal counts, vote sums and means, the mean confidence score and
the number of retired proposals, plus the change in proposal count since the
previous snapshot. The Markdown report is always printed to stdout.

Examples:
  summarize --in decide-madrid/proposals_latest.csv --compare-git
  summarize --prev yesterday.csv --out-json out/summary.json --out-md out/summary.md
  summarize --compare-git --schedule "0 6 * * *"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	rootCmd.Flags().StringVar(&inPath, "in", defaultInput, "Path to the latest CSV snapshot")
	rootCmd.Flags().StringVar(&prevPath, "prev", "", "Optional path to the previous-day CSV snapshot")
	rootCmd.Flags().BoolVar(&compareGit, "compare-git", false, "Compare the proposal count against the previous committed version of --in")
	rootCmd.Flags().StringVar(&outJSON, "out-json", "", "Optional path to write the JSON summary")
	rootCmd.Flags().StringVar(&outMarkdown, "out-md", "", "Optional path to write the Markdown summary")
	rootCmd.Flags().StringVar(&scheduleFlag, "schedule", "", "Cron expression; runs repeatedly instead of once (overrides SUMMARY_SCHEDULE)")
	rootCmd.Flags().StringVar(&titleFlag, "title", "", "Markdown report heading (overrides REPORT_TITLE)")
	rootCmd.Flags().StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after each run (overrides METRICS_TEXTFILE)")
}

func runRoot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	applyFlagOverrides(cfg)

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	job := pipeline.Job{Input: inPath, Prev: prevPath, CompareGit: compareGit}

	publishers, closePublishers := newPublishers(cfg, cmd.OutOrStdout(), logger)
	defer closePublishers()

	var vcs domain.VersionControl
	if compareGit {
		vcs = git.NewClient(cfg.GitRepoDir, cfg.GitPreviousRev, cfg.GitTimeout, logger)
	}

	summarizer := pipeline.NewSummarizer(fs.Reader{}, vcs, cfg.ReportTitle, logger, metrics, publishers...)
	exportMetrics := func(pipeline.Summary, error) {
		if err := observability.WriteTextfile(cfg.MetricsTextfile, prometheus.DefaultGatherer); err != nil {
			logger.Error("metrics textfile export failed", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule == "" {
		return runOnce(ctx, summarizer, job, exportMetrics)
	}
	return runScheduled(ctx, cfg, summarizer, job, logger, metrics, exportMetrics)
}

// newPublishers builds the publish chain. Local outputs come first so a
// broker outage cannot suppress the files or the printed report.
func newPublishers(cfg *config.Config, stdout io.Writer, logger *slog.Logger) ([]pipeline.Publisher, func()) {
	publishers := []pipeline.Publisher{
		fs.ArtifactWriter{JSONPath: outJSON, MarkdownPath: outMarkdown},
		pipeline.NewReportPrinter(stdout),
	}
	if !cfg.KafkaEnabled() {
		return publishers, func() {}
	}

	publisher := kafkaadapter.NewPublisher(cfg, logger)
	logger.Info("kafka publishing enabled", "topic", cfg.KafkaSummaryTopic)
	return append(publishers, publisher), func() {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
}

// applyFlagOverrides lets explicitly set flags win over the environment.
func applyFlagOverrides(cfg *config.Config) {
	if scheduleFlag != "" {
		cfg.Schedule = scheduleFlag
	}
	if titleFlag != "" {
		cfg.ReportTitle = titleFlag
	}
	if metricsTextfile != "" {
		cfg.MetricsTextfile = metricsTextfile
	}
}

func runOnce(ctx context.Context, runner pipeline.Runner, job pipeline.Job, afterRun func(pipeline.Summary, error)) error {
	summary, err := runner.Run(ctx, job)
	afterRun(summary, err)
	return err
}

func runScheduled(ctx context.Context, cfg *config.Config, runner pipeline.Runner, job pipeline.Job, logger *slog.Logger, metrics *observability.Metrics, afterRun func(pipeline.Summary, error)) error {
	sched, err := pipeline.NewScheduler(cfg.Schedule, runner, job, logger, metrics, afterRun)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		return err
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, sched, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Blocks until a shutdown signal and any in-flight run has finished.
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
