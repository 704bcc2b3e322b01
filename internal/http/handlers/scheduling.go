package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/booking"
	"github.com/wolfman30/clinic-scheduler/internal/directory"
	"github.com/wolfman30/clinic-scheduler/internal/ledger"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// SchedulingHandler serves the direct, non-conversational scheduling API.
type SchedulingHandler struct {
	engine   *availability.Engine
	bookings *booking.Service
	logger   *logging.Logger
	now      func() time.Time
}

func NewSchedulingHandler(engine *availability.Engine, bookings *booking.Service, logger *logging.Logger) *SchedulingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SchedulingHandler{engine: engine, bookings: bookings, logger: logger, now: time.Now}
}

// DoctorsResponse lists doctors available for a date and appointment type.
type DoctorsResponse struct {
	Date    string         `json:"date"`
	Doctors []DoctorRecord `json:"doctors"`
}

type DoctorRecord struct {
	DoctorID       int     `json:"doctor_id"`
	Name           string  `json:"name"`
	Specialization string  `json:"specialization"`
	Rating         float64 `json:"rating"`
}

// AvailabilityResponse lists the slot grid for one doctor on one date.
type AvailabilityResponse struct {
	DoctorID       int                 `json:"doctor_id"`
	Date           string              `json:"date"`
	AvailableSlots []availability.Slot `json:"available_slots"`
}

// BookRequest is the direct booking payload.
type BookRequest struct {
	DoctorID        int    `json:"doctor_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	AppointmentType string `json:"appointment_type"`
	PatientName     string `json:"patient_name"`
	PatientPhone    string `json:"patient_phone"`
	PatientEmail    string `json:"patient_email"`
	Reason          string `json:"reason,omitempty"`
}

// Doctors lists doctors with at least one open slot.
// GET /scheduling/doctors?date=&appointment_type=&specialization=
func (h *SchedulingHandler) Doctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := schedule.ParseDate(q.Get("date"), h.now())
	if err != nil {
		jsonError(w, "invalid or missing date", http.StatusBadRequest)
		return
	}
	appointmentType := q.Get("appointment_type")
	if appointmentType != "" {
		if _, ok := directory.LookupAppointmentType(appointmentType); !ok {
			jsonError(w, "unknown appointment_type", http.StatusBadRequest)
			return
		}
	}

	doctors, err := h.engine.Filter(r.Context(), date, appointmentType, q.Get("specialization"))
	if err != nil {
		h.logger.Error("doctor filter failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]DoctorRecord, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, DoctorRecord{
			DoctorID:       d.ID,
			Name:           d.Name,
			Specialization: d.Specialization,
			Rating:         d.Rating,
		})
	}
	writeJSON(w, http.StatusOK, DoctorsResponse{Date: schedule.DateKey(date), Doctors: out})
}

// Availability lists the computed slot grid for a doctor.
// GET /scheduling/availability?date=&appointment_type=&doctor_id=
func (h *SchedulingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doctorID, err := strconv.Atoi(q.Get("doctor_id"))
	if err != nil {
		jsonError(w, "invalid or missing doctor_id", http.StatusBadRequest)
		return
	}
	date, err := schedule.ParseDate(q.Get("date"), h.now())
	if err != nil {
		jsonError(w, "invalid or missing date", http.StatusBadRequest)
		return
	}

	slots, err := h.engine.ComputeSlots(r.Context(), doctorID, date, q.Get("appointment_type"))
	switch {
	case err == nil, errors.Is(err, availability.ErrClosedOnDate):
		// Closed days answer with an empty grid rather than an error.
	case errors.Is(err, directory.ErrDoctorNotFound):
		jsonError(w, "doctor not found", http.StatusNotFound)
		return
	default:
		h.logger.Error("availability computation failed", "doctor_id", doctorID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if slots == nil {
		slots = []availability.Slot{}
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		DoctorID:       doctorID,
		Date:           schedule.DateKey(date),
		AvailableSlots: slots,
	})
}

// Book commits a booking directly.
// POST /scheduling/bookings
func (h *SchedulingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	date, err := schedule.ParseDate(req.Date, h.now())
	if err != nil {
		jsonError(w, "invalid date", http.StatusBadRequest)
		return
	}
	start, err := schedule.ParseTimeOfDay(req.StartTime)
	if err != nil {
		jsonError(w, "invalid start_time, expected HH:MM", http.StatusBadRequest)
		return
	}

	b, err := h.bookings.Book(r.Context(), booking.BookRequest{
		DoctorID:        req.DoctorID,
		Date:            date,
		Start:           start,
		AppointmentType: req.AppointmentType,
		PatientName:     req.PatientName,
		PatientPhone:    req.PatientPhone,
		PatientEmail:    req.PatientEmail,
		Reason:          req.Reason,
	})
	switch {
	case err == nil:
	case errors.Is(err, booking.ErrValidationFailed):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, directory.ErrDoctorNotFound):
		jsonError(w, "doctor not found", http.StatusNotFound)
		return
	case errors.Is(err, booking.ErrSlotNoLongerAvailable):
		jsonError(w, "slot no longer available", http.StatusConflict)
		return
	default:
		h.logger.Error("booking failed", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, bookingPayload(b))
}

// Cancel cancels a booking by id or confirmation code.
// PATCH /scheduling/bookings/{token}/cancel
func (h *SchedulingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		jsonError(w, "token is required", http.StatusBadRequest)
		return
	}

	b, err := h.bookings.Cancel(r.Context(), token)
	switch {
	case err == nil:
	case errors.Is(err, ledger.ErrBookingNotFound):
		jsonError(w, "booking not found", http.StatusNotFound)
		return
	case errors.Is(err, ledger.ErrAlreadyCancelled):
		jsonError(w, "booking already cancelled", http.StatusConflict)
		return
	default:
		h.logger.Error("cancellation failed", "token", token, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, bookingPayload(b))
}

func bookingPayload(b *ledger.Booking) map[string]any {
	return map[string]any{
		"booking_id":        b.ID,
		"confirmation_code": b.ConfirmationCode,
		"doctor_id":         b.DoctorID,
		"date":              schedule.DateKey(b.Date),
		"start_time":        b.Start.String(),
		"end_time":          b.End.String(),
		"appointment_type":  b.AppointmentType,
		"patient_name":      b.PatientName,
		"status":            string(b.Status),
	}
}
