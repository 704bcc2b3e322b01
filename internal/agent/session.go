package agent

import (
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
)

// Dialogue states. The booking flow is linear; the cancellation flow runs
// parallel to it and can pre-empt from any state.
const (
	StateNew                  = ""
	StateAwaitingReason       = "awaiting_reason"
	StateAwaitingType         = "awaiting_appointment_type"
	StateAwaitingDate         = "awaiting_date"
	StateAwaitingTime         = "awaiting_time"
	StateAwaitingDoctor       = "awaiting_doctor"
	StateAwaitingSlot         = "awaiting_slot"
	StateAwaitingName         = "awaiting_name"
	StateAwaitingPhone        = "awaiting_phone"
	StateAwaitingEmail        = "awaiting_email"
	StateAwaitingConfirm      = "awaiting_confirm"
	StateCompleted            = "completed"
	StateAwaitingCancelToken  = "awaiting_cancel_token"
	StateAwaitingCancelConfirm = "awaiting_cancel_confirm"
	StateCancelled            = "cancelled"
)

// CollectedFields accumulates the booking slot-fills across turns.
type CollectedFields struct {
	Reason          string              `json:"reason,omitempty"`
	AppointmentType string              `json:"appointment_type,omitempty"`
	Date            *time.Time          `json:"date,omitempty"`
	TimePreference  string              `json:"time_preference,omitempty"`
	DoctorID        int                 `json:"doctor_id,omitempty"`
	SlotStart       *schedule.TimeOfDay `json:"slot_start,omitempty"`
	PatientName     string              `json:"patient_name,omitempty"`
	PatientPhone    string              `json:"patient_phone,omitempty"`
	PatientEmail    string              `json:"patient_email,omitempty"`
}

// Session is one participant's conversation state. LastDoctors and LastSlots
// cache what was shown so ordinal choices ("the second one") resolve; they
// are display caches only and are revalidated at booking time.
type Session struct {
	ID                  string              `json:"id"`
	State               string              `json:"state"`
	Fields              CollectedFields     `json:"fields"`
	PendingCancellation string              `json:"pending_cancellation,omitempty"`
	ResumeState         string              `json:"resume_state,omitempty"`
	LastDoctors         []DoctorSummary     `json:"last_doctors,omitempty"`
	LastSlots           []availability.Slot `json:"last_slots,omitempty"`
	LastBookingID       string              `json:"last_booking_id,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, State: StateNew, CreatedAt: now, UpdatedAt: now}
}
