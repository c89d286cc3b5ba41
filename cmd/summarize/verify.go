package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/couchcryptid/opendata-summary/internal/adapter/fs"
	"github.com/couchcryptid/opendata-summary/internal/domain"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	verifyIn   string
	verifyJSON string
	verifyPrev string
)

var errVerifyFailed = errors.New("verification failed")

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a persisted JSON summary against its CSV snapshot",
	Long: `Recompute the metrics for a CSV snapshot and compare them with a
previously written JSON summary.

Phases: metrics equality, source file, and (with --prev) the proposal count
delta. Exits non-zero when any phase fails.

Examples:
  summarize verify --in decide-madrid/proposals_latest.csv --json out/summary.json
  summarize verify --in latest.csv --prev yesterday.csv --json out/summary.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runVerify(cmd.Context(), cmd.OutOrStdout(), verifyIn, verifyJSON, verifyPrev)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyIn, "in", defaultInput, "Path to the CSV snapshot the summary was built from")
	verifyCmd.Flags().StringVar(&verifyJSON, "json", "", "Path to the JSON summary to check")
	verifyCmd.Flags().StringVar(&verifyPrev, "prev", "", "Optional previous-day CSV used for the delta")
	_ = verifyCmd.MarkFlagRequired("json")
	rootCmd.AddCommand(verifyCmd)
}

// phase tracks pass/fail for a verification phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func runVerify(ctx context.Context, w io.Writer, inPath, jsonPath, prevPath string) error {
	printf(w, "=== Summary Verification ===\n\n")

	current, err := loadMetrics(ctx, inPath)
	if err != nil {
		printf(os.Stderr, "FATAL: load snapshot: %v\n", err)
		return err
	}

	artifact, err := loadResult(jsonPath)
	if err != nil {
		printf(os.Stderr, "FATAL: load summary: %v\n", err)
		return err
	}

	phases := []*phase{
		verifyMetrics(current, artifact.Metrics),
		verifySource(inPath, artifact.SourceFile),
	}
	if prevPath != "" {
		previous, err := loadMetrics(ctx, prevPath)
		if err != nil {
			printf(os.Stderr, "FATAL: load previous snapshot: %v\n", err)
			return err
		}
		phases = append(phases, verifyDelta(current.ProposalsCount, previous.ProposalsCount, artifact.DeltaVsPreviousDay))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		printf(w, "  %-36s %s\n", p.name, status)
	}

	printf(w, "\nRows: %d in %s\n", current.ProposalsCount, inPath)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		printf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			printf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		printf(w, "\nAll verifications passed.\n")
		return nil
	}
	printf(w, "\nVerification FAILED.\n")
	return errVerifyFailed
}

// ── Data loading ──

func loadMetrics(ctx context.Context, path string) (domain.Metrics, error) {
	raw, err := fs.Reader{}.ReadSnapshot(ctx, path)
	if err != nil {
		return domain.Metrics{}, err
	}
	text, err := domain.Decode(raw)
	if err != nil {
		return domain.Metrics{}, err
	}
	return domain.Aggregate(domain.Parse(text.Text).Rows()), nil
}

func loadResult(path string) (domain.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Result{}, err
	}
	var r domain.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.Result{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return r, nil
}

// ── Phase 1: Metrics ──

func verifyMetrics(want, got domain.Metrics) *phase {
	p := &phase{name: "Phase 1: Metrics"}

	if want.ProposalsCount != got.ProposalsCount {
		p.errorf("proposals_count: expected %d, got %d", want.ProposalsCount, got.ProposalsCount)
	}
	if want.CachedVotesUpSum != got.CachedVotesUpSum {
		p.errorf("cached_votes_up_sum: expected %d, got %d", want.CachedVotesUpSum, got.CachedVotesUpSum)
	}
	if !ptrIntEq(want.CachedVotesTotalSum, got.CachedVotesTotalSum) {
		p.errorf("cached_votes_total_sum: expected %s, got %s", fmtPtr(want.CachedVotesTotalSum), fmtPtr(got.CachedVotesTotalSum))
	}
	if want.RetiredCount != got.RetiredCount {
		p.errorf("retired_count: expected %d, got %d", want.RetiredCount, got.RetiredCount)
	}

	means := []struct {
		name      string
		want, got *float64
	}{
		{"confidence_score_mean", want.ConfidenceScoreMean, got.ConfidenceScoreMean},
		{"cached_votes_up_mean", want.CachedVotesUpMean, got.CachedVotesUpMean},
		{"cached_votes_total_mean", want.CachedVotesTotalMean, got.CachedVotesTotalMean},
	}
	for _, m := range means {
		if !ptrFloatEq(m.want, m.got) {
			p.errorf("%s: expected %s, got %s", m.name, fmtPtr(m.want), fmtPtr(m.got))
		}
	}
	return p
}

// ── Phase 2: Source ──

func verifySource(want, got string) *phase {
	p := &phase{name: "Phase 2: Source file"}
	if want != got {
		p.errorf("source_file: expected %q, got %q", want, got)
	}
	return p
}

// ── Phase 3: Delta ──

func verifyDelta(current, previous int, got *int) *phase {
	p := &phase{name: "Phase 3: Delta vs previous day"}
	want := current - previous
	switch {
	case got == nil:
		p.errorf("delta_vs_previous_day: expected %+d, got null", want)
	case *got != want:
		p.errorf("delta_vs_previous_day: expected %+d, got %+d", want, *got)
	}
	return p
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func ptrFloatEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return floatEq(*a, *b)
}

func ptrIntEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func fmtPtr[T any](v *T) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(*v)
}

// printf writes to w, ignoring errors like fmt.Printf does.
func printf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...) //nolint:errcheck // best-effort console output
}
