// Command summarize turns a Decide Madrid proposals CSV snapshot into a JSON
// artifact and a Markdown report, optionally comparing it against the
// previous day's snapshot. With a schedule it runs repeatedly and serves
// health, readiness and metrics endpoints.
//
// Usage:
//
//	go run ./cmd/summarize \
//	  --in decide-madrid/proposals_latest.csv \
//	  --compare-git \
//	  --out-json reports/decide-madrid/summary.json \
//	  --out-md reports/decide-madrid/summary.md
//
//	go run ./cmd/summarize verify \
//	  --in decide-madrid/proposals_latest.csv \
//	  --json reports/decide-madrid/summary.json
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
