package squad

import "errors"

// Sentinel kinds for squad errors.
var (
	ErrPlayerNotFound = errors.New("player not found on team")
)
