// Package booking owns the booking and cancellation transactions. A booking
// is only committed after availability is revalidated inside the commit
// boundary, which closes the race between a slot being shown and claimed.
package booking

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/directory"
	"github.com/wolfman30/clinic-scheduler/internal/ledger"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var (
	// ErrSlotNoLongerAvailable is returned when the requested start time
	// failed revalidation: the caller should re-query availability.
	ErrSlotNoLongerAvailable = errors.New("slot no longer available")

	// ErrValidationFailed is returned for malformed booking requests.
	ErrValidationFailed = errors.New("validation failed")

	// ErrCodeSpaceExhausted is returned when confirmation-code generation
	// kept colliding. With a 31^6 code space this indicates a broken RNG or
	// an absurdly full ledger.
	ErrCodeSpaceExhausted = errors.New("could not allocate confirmation code")
)

var (
	phoneDigitsRE = regexp.MustCompile(`\d`)
	emailRE       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// BookRequest carries everything needed to commit a booking.
type BookRequest struct {
	DoctorID        int
	Date            time.Time
	Start           schedule.TimeOfDay
	AppointmentType string
	PatientName     string
	PatientPhone    string
	PatientEmail    string
	Reason          string
}

// Validate checks request shape. Availability is checked separately, under
// the commit boundary.
func (r *BookRequest) Validate() error {
	if _, ok := directory.LookupAppointmentType(r.AppointmentType); !ok {
		return fmt.Errorf("%w: unknown appointment type %q", ErrValidationFailed, r.AppointmentType)
	}
	if strings.TrimSpace(r.PatientName) == "" {
		return fmt.Errorf("%w: patient name is required", ErrValidationFailed)
	}
	if len(phoneDigitsRE.FindAllString(r.PatientPhone, -1)) < 10 {
		return fmt.Errorf("%w: phone number needs at least 10 digits", ErrValidationFailed)
	}
	if !emailRE.MatchString(strings.TrimSpace(r.PatientEmail)) {
		return fmt.Errorf("%w: malformed email address", ErrValidationFailed)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidationFailed)
	}
	return nil
}

// Service commits bookings and cancellations against the ledger.
type Service struct {
	engine  *availability.Engine
	ledger  ledger.Ledger
	archive *ledger.ArchiveStore
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
	now     func() time.Time

	// commitMu serializes Book calls so revalidation and insert act as one
	// step. Availability reads outside Book stay lock-free.
	commitMu sync.Mutex
}

// NewService creates a booking service. archive may be nil.
func NewService(engine *availability.Engine, led ledger.Ledger, archive *ledger.ArchiveStore, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		engine:  engine,
		ledger:  led,
		archive: archive,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Book validates the request, revalidates the requested slot under the
// commit boundary, and writes the booking atomically. Exactly one of two
// concurrent Book calls for the same slot can succeed; the loser gets
// ErrSlotNoLongerAvailable.
func (s *Service) Book(ctx context.Context, req BookRequest) (*ledger.Booking, error) {
	if err := req.Validate(); err != nil {
		s.metrics.ObserveBooking("book", "invalid")
		return nil, err
	}

	doc, err := s.engine.Doctor(req.DoctorID)
	if err != nil {
		s.metrics.ObserveBooking("book", "doctor_not_found")
		return nil, err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	// Revalidate now that we hold the commit boundary: whatever slot list
	// the caller saw is stale by definition.
	slots, err := s.engine.ComputeSlots(ctx, req.DoctorID, req.Date, req.AppointmentType)
	if err != nil && !errors.Is(err, availability.ErrClosedOnDate) {
		return nil, err
	}
	if !slotStillOpen(slots, req.Start) {
		s.metrics.ObserveBooking("book", "slot_taken")
		return nil, ErrSlotNoLongerAvailable
	}

	code, err := s.allocateCode(ctx)
	if err != nil {
		return nil, err
	}

	b := &ledger.Booking{
		ID:               fmt.Sprintf("APPT-%d", s.now().UnixNano()),
		ConfirmationCode: code,
		DoctorID:         req.DoctorID,
		Date:             schedule.Midnight(req.Date),
		Start:            req.Start,
		End:              req.Start.Add(doc.SlotDuration),
		AppointmentType:  req.AppointmentType,
		PatientName:      strings.TrimSpace(req.PatientName),
		PatientPhone:     strings.TrimSpace(req.PatientPhone),
		PatientEmail:     strings.TrimSpace(req.PatientEmail),
		Reason:           strings.TrimSpace(req.Reason),
		Status:           ledger.StatusConfirmed,
		CreatedAt:        s.now().UTC(),
	}

	if err := s.ledger.Insert(ctx, b); err != nil {
		if errors.Is(err, ledger.ErrSlotConflict) {
			s.metrics.ObserveBooking("book", "slot_taken")
			return nil, ErrSlotNoLongerAvailable
		}
		s.metrics.ObserveBooking("book", "error")
		return nil, fmt.Errorf("booking: insert: %w", err)
	}

	if err := s.archive.RecordInsert(ctx, b); err != nil {
		s.logger.Error("booking: archive write failed", "booking_id", b.ID, "error", err)
	}

	s.metrics.ObserveBooking("book", "confirmed")
	s.logger.Info("booking confirmed",
		"booking_id", b.ID,
		"doctor_id", b.DoctorID,
		"date", schedule.DateKey(b.Date),
		"start", b.Start.String(),
	)
	return b, nil
}

// Cancel resolves a booking by id or confirmation code and marks it
// cancelled. Ledger errors pass through unchanged so callers can branch on
// ErrBookingNotFound / ErrAlreadyCancelled.
func (s *Service) Cancel(ctx context.Context, token string) (*ledger.Booking, error) {
	found, err := s.ledger.FindByToken(ctx, token)
	if err != nil {
		s.metrics.ObserveBooking("cancel", "not_found")
		return nil, err
	}

	cancelled, err := s.ledger.Cancel(ctx, found.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyCancelled) {
			s.metrics.ObserveBooking("cancel", "already_cancelled")
		} else {
			s.metrics.ObserveBooking("cancel", "error")
		}
		return nil, err
	}

	if err := s.archive.RecordCancel(ctx, cancelled); err != nil {
		s.logger.Error("booking: archive cancel failed", "booking_id", cancelled.ID, "error", err)
	}

	s.metrics.ObserveBooking("cancel", "cancelled")
	s.logger.Info("booking cancelled", "booking_id", cancelled.ID)
	return cancelled, nil
}

// Find resolves a booking without mutating anything.
func (s *Service) Find(ctx context.Context, token string) (*ledger.Booking, error) {
	return s.ledger.FindByToken(ctx, token)
}

func slotStillOpen(slots []availability.Slot, start schedule.TimeOfDay) bool {
	for _, s := range slots {
		if s.Start == start {
			return s.Available
		}
	}
	return false
}
