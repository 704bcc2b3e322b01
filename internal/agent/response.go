package agent

import (
	"github.com/wolfman30/clinic-scheduler/internal/availability"
)

// Action is the closed set of response actions the agent may emit. The
// presentation layer renders on this contract and nothing else.
type Action string

const (
	ActionReply            Action = "reply"
	ActionSlots            Action = "slots"
	ActionDoctors          Action = "doctors"
	ActionBookingConfirmed Action = "booking_confirmed"
	ActionCancelled        Action = "cancelled"
)

// ValidActions guards the contract in tests and at the HTTP boundary.
var ValidActions = map[Action]struct{}{
	ActionReply:            {},
	ActionSlots:            {},
	ActionDoctors:          {},
	ActionBookingConfirmed: {},
	ActionCancelled:        {},
}

// DoctorSummary is the doctor shape shown to patients.
type DoctorSummary struct {
	DoctorID       int     `json:"doctor_id"`
	Name           string  `json:"name"`
	Specialization string  `json:"specialization"`
	Rating         float64 `json:"rating"`
}

// BookingDetails accompanies booking_confirmed and cancelled actions.
type BookingDetails struct {
	BookingID        string `json:"booking_id"`
	ConfirmationCode string `json:"confirmation_code"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	DoctorName       string `json:"doctor_name,omitempty"`
	AppointmentType  string `json:"appointment_type,omitempty"`
}

// Response is the single per-turn output of the agent.
type Response struct {
	Action  Action              `json:"action"`
	Message string              `json:"message"`
	Slots   []availability.Slot `json:"slots,omitempty"`
	Doctors []DoctorSummary     `json:"doctors,omitempty"`
	Details *BookingDetails     `json:"details,omitempty"`
}

func reply(msg string) *Response {
	return &Response{Action: ActionReply, Message: msg}
}
