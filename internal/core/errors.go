package core

import "errors"

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrExceedsRemaining  = errors.New("payment exceeds remaining allocation")
	ErrUnknownAllocation = errors.New("unknown allocation type")
)

// ValidationError is returned when a payment is rejected before any state changes.
// Message is safe to show to the user.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "validation failed"
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
