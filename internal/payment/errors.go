package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrBookingNotFound means the booking the payment targets does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrAlreadyPaid means the booking already holds a completed payment.
	ErrAlreadyPaid = errors.New("booking has already been paid for")

	// ErrConcurrentInitiation means another pending attempt for the same
	// booking won the race to persist.
	ErrConcurrentInitiation = errors.New("a payment attempt is already pending for this booking")
)

// InitiationError wraps a gateway failure during initiate. No local state
// was persisted when this is returned.
type InitiationError struct {
	Err error
}

func (e *InitiationError) Error() string {
	return fmt.Sprintf("payment initiation failed: %v", e.Err)
}

func (e *InitiationError) Unwrap() error { return e.Err }
