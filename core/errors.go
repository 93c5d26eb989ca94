package core

import "errors"

var (
	// ErrValidation marks caller-correctable request problems: counts,
	// durations, intervals and malformed routes.
	ErrValidation = errors.New("validation failed")
	// ErrDegenerateRoute is returned when an open route has coincident
	// origin and destination.
	ErrDegenerateRoute = errors.New("degenerate route")
)
