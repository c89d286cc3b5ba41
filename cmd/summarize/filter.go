package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/opendata-summary/internal/adapter/fs"
	"github.com/couchcryptid/opendata-summary/internal/domain"
	"github.com/spf13/cobra"
)

const dateFlagLayout = "2006-01-02"

var (
	filterIn   string
	filterOut  string
	filterDrop []string
	filterFrom string
	filterTo   string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter a proposals CSV by creation date and drop columns",
	Long: `Keep the proposals whose created_at date (dd/mm/yyyy) falls within an
inclusive date range and write them as UTF-8 CSV. Rows without a readable
date are dropped.

Examples:
  summarize filter --in proposals.csv --out 2020.csv --from-date 2020-01-01 --to-date 2020-12-31
  summarize filter --in proposals.csv --out recent.csv --from-date 2024-01-01 --drop-column summary --drop-column description`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFilter(cmd.Context(), cmd.OutOrStdout(), filterIn, filterOut, filterFrom, filterTo, filterDrop)
	},
}

func init() {
	filterCmd.Flags().StringVar(&filterIn, "in", defaultInput, "Input CSV path")
	filterCmd.Flags().StringVar(&filterOut, "out", "", "Output CSV path")
	filterCmd.Flags().StringArrayVar(&filterDrop, "drop-column", nil, "Column to drop (repeatable)")
	filterCmd.Flags().StringVar(&filterFrom, "from-date", "", "Inclusive lower bound (YYYY-MM-DD)")
	filterCmd.Flags().StringVar(&filterTo, "to-date", "", "Inclusive upper bound (YYYY-MM-DD)")
	_ = filterCmd.MarkFlagRequired("out")
	_ = filterCmd.MarkFlagRequired("from-date")
	rootCmd.AddCommand(filterCmd)
}

func runFilter(ctx context.Context, w io.Writer, in, out, from, to string, drop []string) error {
	r, err := parseDateRange(from, to)
	if err != nil {
		return err
	}

	raw, err := fs.Reader{}.ReadSnapshot(ctx, in)
	if err != nil {
		return err
	}
	decoded, err := domain.Decode(raw)
	if err != nil {
		return err
	}

	filtered := domain.Filter(domain.Parse(decoded.Text), domain.FilterOptions{Range: r, Drop: drop})
	data, err := filtered.CSV()
	if err != nil {
		return fmt.Errorf("encode filtered csv: %w", err)
	}
	if err := fs.WriteFile(out, data); err != nil {
		return err
	}

	printf(w, "Wrote %d rows (%d columns) to %s\n", len(filtered.Records), len(filtered.Header), out)
	return nil
}

func parseDateRange(from, to string) (domain.DateRange, error) {
	var r domain.DateRange
	var err error
	if r.From, err = time.Parse(dateFlagLayout, from); err != nil {
		return r, fmt.Errorf("invalid --from-date %q: %w", from, err)
	}
	if to == "" {
		return r, nil
	}
	if r.To, err = time.Parse(dateFlagLayout, to); err != nil {
		return r, fmt.Errorf("invalid --to-date %q: %w", to, err)
	}
	return r, nil
}
