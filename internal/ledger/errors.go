package ledger

import "errors"

var (
	// Category is not in the configured set. Caller input error,
	// surfaced to the user, never retried.
	ErrInvalidCategory = errors.New("invalid strike category")

	// The store could not be read or written.
	ErrStorageUnavailable = errors.New("strike store unavailable")

	// The store file exists but its content does not parse. Kept
	// separate from ErrStorageUnavailable so mutations can refuse to
	// overwrite data that might still be recoverable.
	ErrCorruptStore = errors.New("strike store corrupt")
)
