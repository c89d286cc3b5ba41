package domain

import (
	"iter"
	"math"
	"strconv"
	"strings"
)

// Column names read by Aggregate.
const (
	ColumnConfidenceScore  = "confidence_score"
	ColumnCachedVotesUp    = "cached_votes_up"
	ColumnCachedVotesTotal = "cached_votes_total"
)

// retiredColumns lists the retirement alias columns in priority order.
var retiredColumns = []string{"retire_at", "retired_at", "retired_on"}

// Metrics is the immutable aggregate of one snapshot. Nil pointers are
// "no valid samples" and serialize as null.
type Metrics struct {
	ProposalsCount       int      `json:"proposals_count"`
	ConfidenceScoreMean  *float64 `json:"confidence_score_mean"`
	CachedVotesUpSum     int64    `json:"cached_votes_up_sum"`
	CachedVotesUpMean    *float64 `json:"cached_votes_up_mean"`
	CachedVotesTotalSum  *int64   `json:"cached_votes_total_sum"`
	CachedVotesTotalMean *float64 `json:"cached_votes_total_mean"`
	RetiredCount         int      `json:"retired_count"`
}

// Aggregate computes snapshot metrics in a single pass over rows.
//
// Vote columns are truncated to integers per value before summing. Sums
// saturate at the int64 bounds; means come from a float64 running total and
// stay accurate past that point. The cached_votes_up sum defaults to 0 while
// the cached_votes_total sum is nil without samples.
func Aggregate(rows iter.Seq[Row]) Metrics {
	var (
		count            int
		confSum          float64
		confN            int
		upSum, upN       int64
		totalSum, totalN int64
		upAcc, totalAcc  float64
		retired          int
	)

	for row := range rows {
		count++

		if v, ok := ParseNumber(row.Value(ColumnConfidenceScore)); ok {
			confSum += v
			confN++
		}
		if v, ok := parseInteger(row.Value(ColumnCachedVotesUp)); ok {
			upSum = addSaturating(upSum, v)
			upAcc += float64(v)
			upN++
		}
		if v, ok := parseInteger(row.Value(ColumnCachedVotesTotal)); ok {
			totalSum = addSaturating(totalSum, v)
			totalAcc += float64(v)
			totalN++
		}
		if IsRetired(row) {
			retired++
		}
	}

	m := Metrics{
		ProposalsCount:   count,
		CachedVotesUpSum: upSum,
		RetiredCount:     retired,
	}
	if confN > 0 {
		m.ConfidenceScoreMean = ptr(confSum / float64(confN))
	}
	if upN > 0 {
		m.CachedVotesUpMean = ptr(upAcc / float64(upN))
	}
	if totalN > 0 {
		m.CachedVotesTotalSum = ptr(totalSum)
		m.CachedVotesTotalMean = ptr(totalAcc / float64(totalN))
	}
	return m
}

// ParseNumber applies the snapshot coercion rule: trimmed "" or "null" (any
// case) is missing, and so is anything that does not parse to a finite
// decimal number.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || isHexLiteral(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// parseInteger truncates a parsed number toward zero. Values outside the
// int64 range count as missing.
func parseInteger(s string) (int64, bool) {
	v, ok := ParseNumber(s)
	if !ok {
		return 0, false
	}
	t := math.Trunc(v)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, false
	}
	return int64(t), true
}

// addSaturating adds v to sum, clamping at the int64 bounds instead of
// wrapping.
func addSaturating(sum, v int64) int64 {
	switch {
	case v > 0 && sum > math.MaxInt64-v:
		return math.MaxInt64
	case v < 0 && sum < math.MinInt64-v:
		return math.MinInt64
	}
	return sum + v
}

// isHexLiteral rejects the hexadecimal float syntax strconv accepts.
func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// IsRetired reports whether a retirement alias column carries a real value.
// Aliases are checked in priority order and the first qualifying one decides,
// so a row counts once however many aliases it fills.
func IsRetired(row Row) bool {
	for _, col := range retiredColumns {
		v, ok := row.Get(col)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if v != "" && !strings.EqualFold(v, "null") && !strings.EqualFold(v, "none") {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T {
	return &v
}
