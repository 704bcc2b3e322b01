package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/schedule"
)

var monday = time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

func confirmed(id, code string, doctorID int, start string) *Booking {
	return &Booking{
		ID:               id,
		ConfirmationCode: code,
		DoctorID:         doctorID,
		Date:             monday,
		Start:            schedule.MustTimeOfDay(start),
		End:              schedule.MustTimeOfDay(start) + 30,
		AppointmentType:  "consultation",
		PatientName:      "John Smith",
		PatientPhone:     "555-123-4567",
		PatientEmail:     "john@example.com",
		Reason:           "headache",
	}
}

func TestInsertAndConflict(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	if err := l.Insert(ctx, confirmed("APPT-1", "ABC234", 1, "10:00")); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	err := l.Insert(ctx, confirmed("APPT-2", "DEF567", 1, "10:00"))
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("second insert error = %v, want ErrSlotConflict", err)
	}

	// Same start time on a different doctor or date is fine.
	if err := l.Insert(ctx, confirmed("APPT-3", "GHJ892", 2, "10:00")); err != nil {
		t.Errorf("different doctor: %v", err)
	}
	other := confirmed("APPT-4", "KLM234", 1, "10:00")
	other.Date = monday.AddDate(0, 0, 1)
	if err := l.Insert(ctx, other); err != nil {
		t.Errorf("different date: %v", err)
	}
}

func TestInsertDuplicateIdentifiers(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	if err := l.Insert(ctx, confirmed("APPT-1", "ABC234", 1, "10:00")); err != nil {
		t.Fatal(err)
	}
	if err := l.Insert(ctx, confirmed("APPT-1", "XYZ789", 1, "10:30")); !errors.Is(err, ErrDuplicateBooking) {
		t.Errorf("duplicate id error = %v, want ErrDuplicateBooking", err)
	}
	if err := l.Insert(ctx, confirmed("APPT-2", "abc234", 1, "10:30")); !errors.Is(err, ErrDuplicateBooking) {
		t.Errorf("duplicate code (case-insensitive) error = %v, want ErrDuplicateBooking", err)
	}
}

func TestOccupiedStarts(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	for _, b := range []*Booking{
		confirmed("APPT-1", "ABC234", 1, "10:00"),
		confirmed("APPT-2", "DEF567", 1, "11:30"),
		confirmed("APPT-3", "GHJ892", 2, "09:00"),
	} {
		if err := l.Insert(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	occupied, err := l.OccupiedStarts(ctx, 1, monday)
	if err != nil {
		t.Fatal(err)
	}
	if len(occupied) != 2 {
		t.Fatalf("occupied = %v, want 2 entries", occupied)
	}
	if _, ok := occupied[schedule.MustTimeOfDay("10:00")]; !ok {
		t.Error("10:00 should be occupied")
	}
	if _, ok := occupied[schedule.MustTimeOfDay("09:00")]; ok {
		t.Error("doctor 2's booking leaked into doctor 1's occupancy")
	}
}

func TestFindByToken(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	if err := l.Insert(ctx, confirmed("APPT-1", "ABC234", 1, "10:00")); err != nil {
		t.Fatal(err)
	}

	if b, err := l.FindByToken(ctx, "APPT-1"); err != nil || b.ConfirmationCode != "ABC234" {
		t.Errorf("find by id: %v %v", b, err)
	}
	if b, err := l.FindByToken(ctx, "abc234"); err != nil || b.ID != "APPT-1" {
		t.Errorf("find by lowercased code: %v %v", b, err)
	}
	if _, err := l.FindByToken(ctx, "NOPE99"); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("unknown token error = %v, want ErrBookingNotFound", err)
	}
	if _, err := l.FindByToken(ctx, "  "); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("blank token error = %v, want ErrBookingNotFound", err)
	}
}

func TestCancelIdempotence(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	if err := l.Insert(ctx, confirmed("APPT-1", "ABC234", 1, "10:00")); err != nil {
		t.Fatal(err)
	}

	b, err := l.Cancel(ctx, "APPT-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if b.Status != StatusCancelled || b.CancelledAt == nil {
		t.Errorf("cancelled booking = %+v", b)
	}

	if _, err := l.Cancel(ctx, "APPT-1"); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("second cancel error = %v, want ErrAlreadyCancelled", err)
	}

	// Ledger state unchanged by the failed second cancel.
	after, err := l.FindByToken(ctx, "APPT-1")
	if err != nil {
		t.Fatal(err)
	}
	if !after.CancelledAt.Equal(*b.CancelledAt) {
		t.Error("failed cancel altered the record")
	}

	if _, err := l.Cancel(ctx, "APPT-404"); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("cancel unknown error = %v, want ErrBookingNotFound", err)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	if err := l.Insert(ctx, confirmed("APPT-1", "ABC234", 1, "10:00")); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Cancel(ctx, "APPT-1"); err != nil {
		t.Fatal(err)
	}

	occupied, _ := l.OccupiedStarts(ctx, 1, monday)
	if len(occupied) != 0 {
		t.Fatalf("cancelled slot still occupied: %v", occupied)
	}
	if err := l.Insert(ctx, confirmed("APPT-2", "DEF567", 1, "10:00")); err != nil {
		t.Errorf("rebooking a cancelled slot: %v", err)
	}
}

func TestFindReturnsCopies(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	if err := l.Insert(ctx, confirmed("APPT-1", "ABC234", 1, "10:00")); err != nil {
		t.Fatal(err)
	}

	b, _ := l.FindByToken(ctx, "APPT-1")
	b.PatientName = "mutated"

	again, _ := l.FindByToken(ctx, "APPT-1")
	if again.PatientName != "John Smith" {
		t.Error("FindByToken leaked internal state")
	}
}
