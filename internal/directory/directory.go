package directory

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/schedule"
)

// ErrDoctorNotFound is returned when no doctor matches the requested id.
var ErrDoctorNotFound = errors.New("doctor not found")

//go:embed doctors.json
var embedded embed.FS

// doctorRecord mirrors the on-disk catalogue shape.
type doctorRecord struct {
	DoctorID       int      `json:"doctor_id"`
	Name           string   `json:"name"`
	Specialization string   `json:"specialization"`
	Rating         float64  `json:"rating"`
	WorkingDays    []string `json:"working_days"`
	WorkingHours   struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"working_hours"`
	AppointmentDurationMinutes int `json:"appointment_duration_minutes"`
}

// Directory is the static doctor catalogue, loaded once at process start.
type Directory struct {
	byID  map[int]*Doctor
	order []*Doctor
}

// Load builds the directory from the embedded default catalogue.
func Load() (*Directory, error) {
	data, err := embedded.ReadFile("doctors.json")
	if err != nil {
		return nil, fmt.Errorf("directory: read embedded catalogue: %w", err)
	}
	return Parse(data)
}

// LoadFile builds the directory from an operator-supplied roster file.
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read catalogue %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds the directory from raw catalogue JSON.
func Parse(data []byte) (*Directory, error) {
	var records []doctorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("directory: decode catalogue: %w", err)
	}

	dir := &Directory{byID: make(map[int]*Doctor, len(records))}
	for _, rec := range records {
		doc, err := rec.toDoctor()
		if err != nil {
			return nil, err
		}
		if _, dup := dir.byID[doc.ID]; dup {
			return nil, fmt.Errorf("directory: duplicate doctor_id %d", doc.ID)
		}
		dir.byID[doc.ID] = doc
		dir.order = append(dir.order, doc)
	}
	sort.Slice(dir.order, func(i, j int) bool { return dir.order[i].ID < dir.order[j].ID })
	return dir, nil
}

var weekdayByName = map[string]time.Weekday{
	"Sunday":    time.Sunday,
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
}

func (rec doctorRecord) toDoctor() (*Doctor, error) {
	start, err := schedule.ParseTimeOfDay(rec.WorkingHours.Start)
	if err != nil {
		return nil, fmt.Errorf("directory: doctor %d: %w", rec.DoctorID, err)
	}
	end, err := schedule.ParseTimeOfDay(rec.WorkingHours.End)
	if err != nil {
		return nil, fmt.Errorf("directory: doctor %d: %w", rec.DoctorID, err)
	}
	if end <= start {
		return nil, fmt.Errorf("directory: doctor %d: working window %s-%s is empty", rec.DoctorID, start, end)
	}
	if rec.AppointmentDurationMinutes <= 0 {
		return nil, fmt.Errorf("directory: doctor %d: invalid slot duration %d", rec.DoctorID, rec.AppointmentDurationMinutes)
	}

	days := make(map[time.Weekday]struct{}, len(rec.WorkingDays))
	for _, name := range rec.WorkingDays {
		wd, ok := weekdayByName[name]
		if !ok {
			return nil, fmt.Errorf("directory: doctor %d: unknown working day %q", rec.DoctorID, name)
		}
		days[wd] = struct{}{}
	}

	return &Doctor{
		ID:             rec.DoctorID,
		Name:           rec.Name,
		Specialization: rec.Specialization,
		Rating:         rec.Rating,
		WorkingDays:    days,
		Hours:          WorkingWindow{Start: start, End: end},
		SlotDuration:   time.Duration(rec.AppointmentDurationMinutes) * time.Minute,
	}, nil
}

// Get resolves a doctor by id.
func (d *Directory) Get(id int) (*Doctor, error) {
	doc, ok := d.byID[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return doc, nil
}

// ListBy returns doctors matching the criteria, in catalogue order. An empty
// specialization together with an appointment type applies that type's
// specialization constraint; both empty returns everyone.
func (d *Directory) ListBy(specialization, appointmentType string) []*Doctor {
	want := specialization
	if want == "" && appointmentType != "" {
		if spec, ok := SpecializationFor(appointmentType); ok {
			want = spec
		}
	}

	var out []*Doctor
	for _, doc := range d.order {
		if want != "" && doc.Specialization != want {
			continue
		}
		out = append(out, doc)
	}
	return out
}

// All returns every doctor in catalogue order.
func (d *Directory) All() []*Doctor {
	return d.order
}
