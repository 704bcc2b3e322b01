package directory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmbeddedCatalogue(t *testing.T) {
	dir, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(dir.All()) == 0 {
		t.Fatal("embedded catalogue is empty")
	}

	doc, err := dir.Get(1)
	if err != nil {
		t.Fatalf("Get(1) error: %v", err)
	}
	if doc.Specialization != "General Physician" {
		t.Errorf("doctor 1 specialization = %q", doc.Specialization)
	}
	if !doc.WorksOn(time.Monday) {
		t.Error("doctor 1 should work Mondays")
	}
	if doc.WorksOn(time.Sunday) {
		t.Error("doctor 1 should not work Sundays")
	}
	if doc.SlotDuration != 30*time.Minute {
		t.Errorf("doctor 1 slot duration = %s", doc.SlotDuration)
	}
}

func TestGetUnknownDoctor(t *testing.T) {
	dir, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dir.Get(999); !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("Get(999) error = %v, want ErrDoctorNotFound", err)
	}
}

func TestListBy(t *testing.T) {
	dir, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name            string
		specialization  string
		appointmentType string
		wantSpec        string
		wantAll         bool
	}{
		{"consultation maps to GPs", "", "consultation", "General Physician", false},
		{"derma maps to dermatologists", "", "derma", "Dermatologist", false},
		{"explicit specialization wins", "Cardiologist", "consultation", "Cardiologist", false},
		{"specialist type has no constraint", "", "specialist", "", true},
		{"no criteria returns everyone", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := dir.ListBy(tt.specialization, tt.appointmentType)
			if len(docs) == 0 {
				t.Fatal("expected at least one doctor")
			}
			if tt.wantAll {
				if len(docs) != len(dir.All()) {
					t.Errorf("expected all %d doctors, got %d", len(dir.All()), len(docs))
				}
				return
			}
			for _, d := range docs {
				if d.Specialization != tt.wantSpec {
					t.Errorf("doctor %d specialization = %q, want %q", d.ID, d.Specialization, tt.wantSpec)
				}
			}
		})
	}
}

func TestLoadFileRejectsBadCatalogue(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"inverted window", `[{"doctor_id":1,"name":"Dr. X","specialization":"General Physician","rating":4,"working_days":["Monday"],"working_hours":{"start":"17:00","end":"09:00"},"appointment_duration_minutes":30}]`},
		{"unknown weekday", `[{"doctor_id":1,"name":"Dr. X","specialization":"General Physician","rating":4,"working_days":["Funday"],"working_hours":{"start":"09:00","end":"17:00"},"appointment_duration_minutes":30}]`},
		{"zero duration", `[{"doctor_id":1,"name":"Dr. X","specialization":"General Physician","rating":4,"working_days":["Monday"],"working_hours":{"start":"09:00","end":"17:00"},"appointment_duration_minutes":0}]`},
		{"duplicate id", `[{"doctor_id":1,"name":"Dr. X","specialization":"General Physician","rating":4,"working_days":["Monday"],"working_hours":{"start":"09:00","end":"17:00"},"appointment_duration_minutes":30},{"doctor_id":1,"name":"Dr. Y","specialization":"Dentist","rating":4,"working_days":["Monday"],"working_hours":{"start":"09:00","end":"17:00"},"appointment_duration_minutes":30}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "doctors.json")
			if err := os.WriteFile(path, []byte(tt.body), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Error("expected load error")
			}
		})
	}
}

func TestAppointmentTypeMenu(t *testing.T) {
	at, ok := LookupAppointmentType("consultation")
	if !ok {
		t.Fatal("consultation missing from menu")
	}
	if at.Duration != 30*time.Minute {
		t.Errorf("consultation duration = %s", at.Duration)
	}
	if _, ok := LookupAppointmentType("telepathy"); ok {
		t.Error("unknown type should not resolve")
	}

	if spec, ok := SpecializationFor("followup"); !ok || spec != "General Physician" {
		t.Errorf("SpecializationFor(followup) = %q, %v", spec, ok)
	}
	if _, ok := SpecializationFor("telepathy"); ok {
		t.Error("unknown type should not have a specialization")
	}
}
