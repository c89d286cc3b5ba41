package domain

import "errors"

var (
	// ErrInputNotFound reports that the current snapshot is missing or unreadable.
	ErrInputNotFound = errors.New("input snapshot not found")

	// ErrDecodeFailure reports that a buffer could not be turned into text.
	// The CP1252 fallback covers every byte, so Decode never returns it today.
	ErrDecodeFailure = errors.New("snapshot could not be decoded")

	// ErrHistoryUnavailable reports that no previous revision of a snapshot exists.
	ErrHistoryUnavailable = errors.New("previous snapshot unavailable")
)
