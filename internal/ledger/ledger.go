// Package ledger is the authoritative record of confirmed and cancelled
// bookings. All mutations are serialized; the no-double-booking invariant is
// enforced here and revalidated by the booking transaction.
package ledger

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/schedule"
)

// Status is a booking's lifecycle state.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Booking is a persisted reservation of a specific doctor/date/start time.
type Booking struct {
	ID               string             `json:"booking_id"`
	ConfirmationCode string             `json:"confirmation_code"`
	DoctorID         int                `json:"doctor_id"`
	Date             time.Time          `json:"date"`
	Start            schedule.TimeOfDay `json:"start_time"`
	End              schedule.TimeOfDay `json:"end_time"`
	AppointmentType  string             `json:"appointment_type"`
	PatientName      string             `json:"patient_name"`
	PatientPhone     string             `json:"patient_phone"`
	PatientEmail     string             `json:"patient_email"`
	Reason           string             `json:"reason"`
	Status           Status             `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
}

// Ledger records bookings. Insert and Cancel are atomic and mutually
// exclusive; reads may run concurrently with writes.
type Ledger interface {
	// Insert records a confirmed booking, failing with ErrSlotConflict when
	// another confirmed booking occupies the same (doctor, date, start).
	Insert(ctx context.Context, b *Booking) error

	// OccupiedStarts returns the start times of confirmed bookings for a
	// doctor on a date.
	OccupiedStarts(ctx context.Context, doctorID int, date time.Time) (map[schedule.TimeOfDay]struct{}, error)

	// FindByToken resolves a booking by id or confirmation code.
	FindByToken(ctx context.Context, token string) (*Booking, error)

	// HasCode reports whether a confirmation code is already taken.
	HasCode(ctx context.Context, code string) (bool, error)

	// Cancel marks a confirmed booking cancelled. Cancelling twice fails
	// with ErrAlreadyCancelled and leaves the record untouched.
	Cancel(ctx context.Context, bookingID string) (*Booking, error)
}

type slotKey struct {
	doctorID int
	date     string
	start    schedule.TimeOfDay
}

// MemoryLedger is the single-process ledger authority. A plain mutex
// serializes mutations; the dataset for a small clinic never outgrows it.
type MemoryLedger struct {
	mu     sync.RWMutex
	byID   map[string]*Booking
	byCode map[string]string  // confirmation code (upper) -> booking id
	bySlot map[slotKey]string // confirmed occupancy -> booking id
	now    func() time.Time
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		byID:   make(map[string]*Booking),
		byCode: make(map[string]string),
		bySlot: make(map[slotKey]string),
		now:    time.Now,
	}
}

func keyFor(b *Booking) slotKey {
	return slotKey{doctorID: b.DoctorID, date: schedule.DateKey(b.Date), start: b.Start}
}

// Insert records a confirmed booking atomically.
func (l *MemoryLedger) Insert(ctx context.Context, b *Booking) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byID[b.ID]; exists {
		return ErrDuplicateBooking
	}
	code := strings.ToUpper(b.ConfirmationCode)
	if _, exists := l.byCode[code]; exists {
		return ErrDuplicateBooking
	}
	key := keyFor(b)
	if _, occupied := l.bySlot[key]; occupied {
		return ErrSlotConflict
	}

	stored := *b
	stored.Status = StatusConfirmed
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = l.now().UTC()
	}

	l.byID[stored.ID] = &stored
	l.byCode[code] = stored.ID
	l.bySlot[key] = stored.ID
	return nil
}

// OccupiedStarts returns confirmed start times for a doctor/date.
func (l *MemoryLedger) OccupiedStarts(ctx context.Context, doctorID int, date time.Time) (map[schedule.TimeOfDay]struct{}, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	dateKey := schedule.DateKey(date)
	occupied := make(map[schedule.TimeOfDay]struct{})
	for key := range l.bySlot {
		if key.doctorID == doctorID && key.date == dateKey {
			occupied[key.start] = struct{}{}
		}
	}
	return occupied, nil
}

// FindByToken resolves a booking by id or confirmation code. Codes match
// case-insensitively.
func (l *MemoryLedger) FindByToken(ctx context.Context, token string) (*Booking, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrBookingNotFound
	}
	if b, ok := l.byID[token]; ok {
		return copyOf(b), nil
	}
	if id, ok := l.byCode[strings.ToUpper(token)]; ok {
		return copyOf(l.byID[id]), nil
	}
	return nil, ErrBookingNotFound
}

// HasCode reports whether a confirmation code is already taken.
func (l *MemoryLedger) HasCode(ctx context.Context, code string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.byCode[strings.ToUpper(code)]
	return ok, nil
}

// Cancel marks a confirmed booking cancelled and frees its slot.
func (l *MemoryLedger) Cancel(ctx context.Context, bookingID string) (*Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byID[bookingID]
	if !ok {
		return nil, ErrBookingNotFound
	}
	if b.Status != StatusConfirmed {
		return nil, ErrAlreadyCancelled
	}

	when := l.now().UTC()
	b.Status = StatusCancelled
	b.CancelledAt = &when
	delete(l.bySlot, keyFor(b))
	return copyOf(b), nil
}

func copyOf(b *Booking) *Booking {
	dup := *b
	if b.CancelledAt != nil {
		t := *b.CancelledAt
		dup.CancelledAt = &t
	}
	return &dup
}
