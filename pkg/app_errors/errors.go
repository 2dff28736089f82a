package apperrors

import "errors"

var (
	// Seat accounting
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrEventClosed      = errors.New("event is not open for booking")

	// State machines
	ErrInvalidTransition = errors.New("invalid transition")
	ErrOfferExpired      = errors.New("waitlist offer expired")
	ErrAlreadyOnWaitlist = errors.New("contact already on waitlist")

	// External collaborators
	ErrPaymentFailed = errors.New("payment failed")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrEventNotFound         = errors.New("event not found")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")
	ErrTransactionNotFound   = errors.New("transaction not found")

	// Coordination
	ErrLockTimeout = errors.New("lock acquisition timed out")
	ErrQueueFull   = errors.New("queue is full")

	ErrInternalServerError = errors.New("internal server error")
)

// IsConflict reports whether err is a recoverable per-request conflict that
// the caller can resolve by retrying or choosing a different action.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrOfferExpired) ||
		errors.Is(err, ErrEventClosed) ||
		errors.Is(err, ErrAlreadyOnWaitlist)
}
