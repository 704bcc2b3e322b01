package ledger

import "errors"

var (
	// ErrSlotConflict is returned when a confirmed booking already occupies
	// the same (doctor, date, start time).
	ErrSlotConflict = errors.New("slot already booked")

	// ErrBookingNotFound is returned when no booking matches the token.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrAlreadyCancelled is returned when cancelling a booking that is not
	// confirmed.
	ErrAlreadyCancelled = errors.New("booking already cancelled")

	// ErrDuplicateBooking is returned when a booking id or confirmation code
	// is reused.
	ErrDuplicateBooking = errors.New("duplicate booking identifier")
)
