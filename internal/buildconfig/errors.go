package buildconfig

import "errors"

var (
	// ErrUnknownEnvironmentMode indicates a mode outside development and production (strict resolution only)
	ErrUnknownEnvironmentMode = errors.New("unknown environment mode")
	// ErrInvalidPattern indicates a rule matcher that is not a valid regular expression
	ErrInvalidPattern = errors.New("invalid rule pattern")
)
