package roster

import "errors"

// Sentinel kinds for roster import errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported roster format")
	ErrMissingColumn     = errors.New("missing roster column")
	ErrEmptyRoster       = errors.New("roster has no players")
)
