package fieldsim

import "errors"

// All operation errors are recoverable: the session rejects the request and
// leaves its state unchanged.
var (
	ErrOutOfRange           = errors.New("cell coordinates out of range")
	ErrOperationRunning     = errors.New("operation already in progress")
	ErrInsufficientResource = errors.New("insufficient pesticide in tank")
	ErrInvalidAmount        = errors.New("spray amount must be positive")
)
