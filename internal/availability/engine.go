// Package availability computes bookable time slots by subtracting ledger
// occupancy from a doctor's working window. Slots are ephemeral: computed
// fresh on every query and revalidated again at booking time.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/directory"
	"github.com/wolfman30/clinic-scheduler/internal/ledger"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
)

// ErrClosedOnDate is returned alongside an empty slot list when the doctor
// does not work on the requested weekday. It is a reason, not a hard error;
// callers that only care about the list may ignore it.
var ErrClosedOnDate = errors.New("doctor does not work on that date")

// Slot is a computed, never-persisted candidate interval.
type Slot struct {
	Start     schedule.TimeOfDay `json:"start_time"`
	End       schedule.TimeOfDay `json:"end_time"`
	DoctorID  int                `json:"doctor_id"`
	Available bool               `json:"available"`
}

// Engine computes slot availability. Reads run freely in parallel; the
// booking transaction re-checks results under its own serialization.
type Engine struct {
	directory *directory.Directory
	ledger    ledger.Ledger
	metrics   *metrics.SchedulingMetrics
	now       func() time.Time
}

// NewEngine creates an availability engine. A nil clock defaults to
// time.Now; tests inject a fixed one.
func NewEngine(dir *directory.Directory, led ledger.Ledger, m *metrics.SchedulingMetrics, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{directory: dir, ledger: led, metrics: m, now: now}
}

// Doctor looks up a catalogue entry by id.
func (e *Engine) Doctor(id int) (*directory.Doctor, error) {
	return e.directory.Get(id)
}

// ComputeSlots returns the ordered sequence of slots for a doctor on a date.
// Unknown doctors fail with directory.ErrDoctorNotFound; non-working days
// return an empty list with ErrClosedOnDate. Slots already started relative
// to "now" are dropped when the date is today. Ordering is chronological
// ascending; slots are disjoint by construction.
func (e *Engine) ComputeSlots(ctx context.Context, doctorID int, date time.Time, appointmentType string) ([]Slot, error) {
	started := e.now()
	defer func() {
		e.metrics.ObserveSlotComputation(time.Since(started).Seconds())
	}()

	doc, err := e.directory.Get(doctorID)
	if err != nil {
		return nil, err
	}

	if !doc.WorksOn(date.Weekday()) {
		return []Slot{}, ErrClosedOnDate
	}

	occupied, err := e.ledger.OccupiedStarts(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("availability: read occupancy: %w", err)
	}

	now := e.now()
	isToday := schedule.SameDate(date, now)
	nowClock := schedule.ClockOf(now)

	intervals := schedule.EnumerateSlots(doc.Hours.Start, doc.Hours.End, doc.SlotDuration)
	slots := make([]Slot, 0, len(intervals))
	for _, iv := range intervals {
		if isToday && iv.Start <= nowClock {
			continue
		}
		_, taken := occupied[iv.Start]
		slots = append(slots, Slot{
			Start:     iv.Start,
			End:       iv.End,
			DoctorID:  doctorID,
			Available: !taken,
		})
	}
	return slots, nil
}

// Filter narrows the directory to doctors who can take the appointment:
// right specialization, working that weekday, and at least one open slot.
// Fully booked doctors are excluded. Ordered by descending rating, then
// ascending name, for deterministic presentation.
func (e *Engine) Filter(ctx context.Context, date time.Time, appointmentType, specialization string) ([]*directory.Doctor, error) {
	candidates := e.directory.ListBy(specialization, appointmentType)

	var out []*directory.Doctor
	for _, doc := range candidates {
		if !doc.WorksOn(date.Weekday()) {
			continue
		}
		slots, err := e.ComputeSlots(ctx, doc.ID, date, appointmentType)
		if err != nil && !errors.Is(err, ErrClosedOnDate) {
			return nil, err
		}
		if hasOpenSlot(slots) {
			out = append(out, doc)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func hasOpenSlot(slots []Slot) bool {
	for _, s := range slots {
		if s.Available {
			return true
		}
	}
	return false
}
