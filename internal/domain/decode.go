package domain

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Encoding tags the character set a snapshot was decoded from.
type Encoding string

const (
	EncodingUTF8   Encoding = "utf8"
	EncodingCP1252 Encoding = "cp1252"
)

// DecodedText is NFC-normalized snapshot text and the encoding it came from.
type DecodedText struct {
	Text     string
	Encoding Encoding
}

// cp1252Controls holds the Windows-1252 substitutions for 0x80–0x9F.
// Bytes missing from the table keep their Latin-1 code point.
var cp1252Controls = map[byte]rune{
	0x80: '\u20ac', // €
	0x82: '\u201a', // ‚
	0x83: '\u0192', // ƒ
	0x84: '\u201e', // „
	0x85: '\u2026', // …
	0x86: '\u2020', // †
	0x87: '\u2021', // ‡
	0x88: '\u02c6', // ˆ
	0x89: '\u2030', // ‰
	0x8A: '\u0160', // Š
	0x8B: '\u2039', // ‹
	0x8C: '\u0152', // Œ
	0x8E: '\u017d', // Ž
	0x91: '\u2018', // ‘
	0x92: '\u2019', // ’
	0x93: '\u201c', // “
	0x94: '\u201d', // ”
	0x95: '\u2022', // •
	0x96: '\u2013', // –
	0x97: '\u2014', // —
	0x98: '\u02dc', // ˜
	0x99: '\u2122', // ™
	0x9A: '\u0161', // š
	0x9B: '\u203a', // ›
	0x9C: '\u0153', // œ
	0x9E: '\u017e', // ž
	0x9F: '\u0178', // Ÿ
}

// Decode turns a raw snapshot buffer into text. Strictly valid UTF-8 is used
// as-is; any other buffer is mapped through CP1252. The error return exists
// for callers that handle ErrDecodeFailure, but the fallback is total.
func Decode(raw []byte) (DecodedText, error) {
	if utf8.Valid(raw) {
		return DecodedText{Text: normalizeText(string(raw)), Encoding: EncodingUTF8}, nil
	}
	return DecodedText{Text: normalizeText(decodeCP1252(raw)), Encoding: EncodingCP1252}, nil
}

func decodeCP1252(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw) + len(raw)/2)
	for _, c := range raw {
		if r, ok := cp1252Controls[c]; ok {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(rune(c))
	}
	return b.String()
}

// normalizeText composes the text to NFC and drops a leading byte-order mark.
func normalizeText(s string) string {
	return strings.TrimPrefix(norm.NFC.String(s), "\ufeff")
}
