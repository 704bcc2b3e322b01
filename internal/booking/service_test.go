package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/directory"
	"github.com/wolfman30/clinic-scheduler/internal/ledger"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
)

const testCatalogue = `[
  {"doctor_id": 1, "name": "Dr. Adams", "specialization": "General Physician", "rating": 4.5,
   "working_days": ["Monday","Tuesday","Wednesday","Thursday","Friday"],
   "working_hours": {"start": "09:00", "end": "12:00"}, "appointment_duration_minutes": 30}
]`

var (
	monday = time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)
	// fixedNow is well before monday, so no slots are past.
	fixedNow = time.Date(2026, time.March, 4, 8, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, *ledger.MemoryLedger) {
	t.Helper()
	dir, err := directory.Parse([]byte(testCatalogue))
	if err != nil {
		t.Fatal(err)
	}
	led := ledger.NewMemoryLedger()
	engine := availability.NewEngine(dir, led, nil, func() time.Time { return fixedNow })
	return NewService(engine, led, nil, nil, nil), led
}

func validRequest(start string) BookRequest {
	return BookRequest{
		DoctorID:        1,
		Date:            monday,
		Start:           schedule.MustTimeOfDay(start),
		AppointmentType: "consultation",
		PatientName:     "Jane Doe",
		PatientPhone:    "555-123-4567",
		PatientEmail:    "jane@example.com",
		Reason:          "persistent cough",
	}
}

func TestBookConfirmsOpenSlot(t *testing.T) {
	svc, led := newTestService(t)

	b, err := svc.Book(context.Background(), validRequest("09:30"))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if !strings.HasPrefix(b.ID, "APPT-") {
		t.Errorf("booking id = %q, want APPT- prefix", b.ID)
	}
	if len(b.ConfirmationCode) != 6 {
		t.Errorf("confirmation code = %q, want 6 characters", b.ConfirmationCode)
	}
	for _, c := range b.ConfirmationCode {
		if !strings.ContainsRune(codeAlphabet, c) {
			t.Errorf("confirmation code %q contains %q outside alphabet", b.ConfirmationCode, c)
		}
	}
	if b.End != schedule.MustTimeOfDay("10:00") {
		t.Errorf("End = %v, want 10:00", b.End)
	}
	if b.Status != ledger.StatusConfirmed {
		t.Errorf("Status = %q, want confirmed", b.Status)
	}

	// The slot surfaces as taken afterwards.
	occupied, err := led.OccupiedStarts(context.Background(), 1, monday)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := occupied[schedule.MustTimeOfDay("09:30")]; !ok {
		t.Error("09:30 not occupied after booking")
	}
}

func TestBookRejectsMalformedRequests(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name   string
		mutate func(*BookRequest)
	}{
		{"unknown type", func(r *BookRequest) { r.AppointmentType = "acupuncture" }},
		{"blank name", func(r *BookRequest) { r.PatientName = "   " }},
		{"short phone", func(r *BookRequest) { r.PatientPhone = "555-1234" }},
		{"bad email", func(r *BookRequest) { r.PatientEmail = "jane-at-example" }},
		{"zero date", func(r *BookRequest) { r.Date = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest("09:00")
			tt.mutate(&req)
			if _, err := svc.Book(context.Background(), req); !errors.Is(err, ErrValidationFailed) {
				t.Errorf("Book = %v, want ErrValidationFailed", err)
			}
		})
	}
}

func TestBookRejectsTakenAndOffGridSlots(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Book(context.Background(), validRequest("09:00")); err != nil {
		t.Fatalf("first Book: %v", err)
	}
	if _, err := svc.Book(context.Background(), validRequest("09:00")); !errors.Is(err, ErrSlotNoLongerAvailable) {
		t.Errorf("rebooking taken slot = %v, want ErrSlotNoLongerAvailable", err)
	}
	// 09:15 is not on the 30-minute grid.
	if _, err := svc.Book(context.Background(), validRequest("09:15")); !errors.Is(err, ErrSlotNoLongerAvailable) {
		t.Errorf("off-grid start = %v, want ErrSlotNoLongerAvailable", err)
	}

	// Sunday is a non-working day.
	req := validRequest("09:00")
	req.Date = monday.AddDate(0, 0, -1)
	if _, err := svc.Book(context.Background(), req); !errors.Is(err, ErrSlotNoLongerAvailable) {
		t.Errorf("closed day = %v, want ErrSlotNoLongerAvailable", err)
	}
}

func TestBookUnknownDoctor(t *testing.T) {
	svc, _ := newTestService(t)
	req := validRequest("09:00")
	req.DoctorID = 42
	if _, err := svc.Book(context.Background(), req); !errors.Is(err, directory.ErrDoctorNotFound) {
		t.Errorf("Book = %v, want ErrDoctorNotFound", err)
	}
}

func TestConcurrentBookingsOneWinner(t *testing.T) {
	svc, _ := newTestService(t)

	const racers = 16
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), validRequest("10:00"))
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrSlotNoLongerAvailable):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("winners = %d, want exactly 1", won)
	}
	if lost != racers-1 {
		t.Errorf("losers = %d, want %d", lost, racers-1)
	}
}

func TestCancelByIDAndCode(t *testing.T) {
	svc, _ := newTestService(t)

	b, err := svc.Book(context.Background(), validRequest("11:00"))
	if err != nil {
		t.Fatal(err)
	}

	cancelled, err := svc.Cancel(context.Background(), strings.ToLower(b.ConfirmationCode))
	if err != nil {
		t.Fatalf("Cancel by code: %v", err)
	}
	if cancelled.Status != ledger.StatusCancelled {
		t.Errorf("Status = %q, want cancelled", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Error("CancelledAt not set")
	}

	if _, err := svc.Cancel(context.Background(), b.ID); !errors.Is(err, ledger.ErrAlreadyCancelled) {
		t.Errorf("second Cancel = %v, want ErrAlreadyCancelled", err)
	}
	if _, err := svc.Cancel(context.Background(), "APPT-0"); !errors.Is(err, ledger.ErrBookingNotFound) {
		t.Errorf("unknown token = %v, want ErrBookingNotFound", err)
	}

	// Cancelling frees the slot for a fresh booking.
	if _, err := svc.Book(context.Background(), validRequest("11:00")); err != nil {
		t.Errorf("rebooking freed slot: %v", err)
	}
}

func TestRandomCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		code, err := randomCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != codeLength {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("codes are not varying")
	}
}
