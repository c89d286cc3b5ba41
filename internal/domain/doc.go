// Package domain models daily CSV snapshots of the Decide Madrid proposals
// open-data feed and the summary derived from each snapshot.
//
// # Data Source
//
// Snapshots are produced by scheduled fetch jobs that download the feed and
// commit the file to version control when it changes byte-for-byte. This
// package never fetches and never decides whether a snapshot is persisted; it
// only summarizes a buffer it is handed and, optionally, the previous revision
// of the same file.
//
// # Encoding
//
// The portal serves either UTF-8 or Windows-1252 depending on the export path.
// [Decode] accepts a buffer only when it is strictly valid UTF-8; anything else
// is mapped byte-for-byte through the CP1252 table:
//
//	0x00–0x7F, 0xA0–0xFF  →  same code point (Latin-1 transparent range)
//	0x80–0x9F             →  27-entry substitution table, e.g. 0x80 → U+20AC (€)
//	                         unmapped bytes (0x81, 0x8D, 0x8F, 0x90, 0x9D) → same code point
//
// The result is normalized to NFC so that "é" written as e + U+0301 and as
// U+00E9 compare equal downstream.
//
// # CSV Conventions
//
// Comma separated, double-quote quoting, a doubled quote inside a quoted field
// is a literal quote. Line endings may be CRLF, CR or LF. The first record is
// the header; ragged records are padded with empty strings or truncated to the
// header width. All values stay strings until [Aggregate] reads them.
//
// # Null Semantics
//
// Numeric columns use "" and "null" (any case) as missing-value sentinels.
// Unparseable and non-finite values are treated the same way. Aggregates
// with no valid samples are nil, not zero, with one inherited exception:
// cached_votes_up_sum is always a number (0 when empty) while
// cached_votes_total_sum is nil when empty.
//
// # Retirement Columns
//
// The feed has renamed its retirement timestamp over time. A row is retired
// when any of retire_at, retired_at, retired_on (checked in that order) is in
// the header and holds a value other than "", "null" or "none" (any case).
package domain
