package core

import "errors"

// Errors
var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidPrice    = errors.New("invalid price")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidTif      = errors.New("invalid TIF")

	// Corruption errors. A book that returns one of these must be taken
	// out of service; its state can no longer be trusted.
	ErrCrossedBook      = errors.New("crossed book")
	ErrNegativeQuantity = errors.New("negative remaining quantity")
)
