package strategy

import "errors"

// Sentinel errors for strategy construction.
var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidParams   = errors.New("invalid strategy parameters")
)
