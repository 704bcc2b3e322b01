// Package directory holds the read-only doctor catalogue: who practices
// what, on which days, inside which working window.
package directory

import (
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/schedule"
)

// WorkingWindow is a doctor's configured start/end time of day on days they
// work.
type WorkingWindow struct {
	Start schedule.TimeOfDay
	End   schedule.TimeOfDay
}

// Doctor is immutable for the process lifetime. Directory entries are shared
// read-only; nothing in the scheduling core mutates them.
type Doctor struct {
	ID             int
	Name           string
	Specialization string
	Rating         float64
	WorkingDays    map[time.Weekday]struct{}
	Hours          WorkingWindow
	SlotDuration   time.Duration
}

// WorksOn reports whether the doctor works on the given weekday.
func (d *Doctor) WorksOn(day time.Weekday) bool {
	_, ok := d.WorkingDays[day]
	return ok
}

// AppointmentType describes one entry of the bookable-type menu.
type AppointmentType struct {
	Key      string
	Display  string
	Duration time.Duration
}

// AppointmentTypes is the configured menu of appointment types, in the order
// they are offered to patients.
var AppointmentTypes = []AppointmentType{
	{Key: "consultation", Display: "General Consultation", Duration: 30 * time.Minute},
	{Key: "followup", Display: "Follow-Up", Duration: 15 * time.Minute},
	{Key: "physical", Display: "Physical Exam", Duration: 45 * time.Minute},
	{Key: "specialist", Display: "Specialist Consultation", Duration: 60 * time.Minute},
	{Key: "dental", Display: "Dental Visit", Duration: 30 * time.Minute},
	{Key: "pediatric", Display: "Pediatric Visit", Duration: 30 * time.Minute},
	{Key: "cardio", Display: "Cardiology Consultation", Duration: 45 * time.Minute},
	{Key: "derma", Display: "Dermatology Consultation", Duration: 30 * time.Minute},
	{Key: "ortho", Display: "Orthopedic Consultation", Duration: 45 * time.Minute},
}

// specializationByType maps an appointment type to the specialization that
// must handle it. An empty value means any doctor qualifies.
var specializationByType = map[string]string{
	"consultation": "General Physician",
	"followup":     "General Physician",
	"physical":     "General Physician",
	"dental":       "Dentist",
	"pediatric":    "Pediatrician",
	"cardio":       "Cardiologist",
	"derma":        "Dermatologist",
	"ortho":        "Orthopedic Surgeon",
	"specialist":   "",
}

// LookupAppointmentType returns the menu entry for a key.
func LookupAppointmentType(key string) (AppointmentType, bool) {
	for _, at := range AppointmentTypes {
		if at.Key == key {
			return at, true
		}
	}
	return AppointmentType{}, false
}

// SpecializationFor returns the specialization required for an appointment
// type. The second result is false for unknown types; an empty first result
// with ok=true means the type carries no specialization constraint.
func SpecializationFor(appointmentType string) (string, bool) {
	spec, ok := specializationByType[appointmentType]
	return spec, ok
}
