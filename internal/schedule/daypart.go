package schedule

// TimePreference is a coarse part-of-day preference collected during the
// dialogue. It narrows which slots are shown, never which doctors exist.
type TimePreference string

const (
	PreferMorning   TimePreference = "morning"
	PreferAfternoon TimePreference = "afternoon"
	PreferEvening   TimePreference = "evening"
)

// Window returns the [start, end) span of the day covered by the preference.
// An empty or unknown preference covers the whole day.
func (p TimePreference) Window() Interval {
	switch p {
	case PreferMorning:
		return Interval{Start: 0, End: 12 * 60}
	case PreferAfternoon:
		return Interval{Start: 12 * 60, End: 17 * 60}
	case PreferEvening:
		return Interval{Start: 17 * 60, End: 24 * 60}
	default:
		return Interval{Start: 0, End: 24 * 60}
	}
}

// Contains reports whether a slot start falls inside the preference window.
func (p TimePreference) Contains(t TimeOfDay) bool {
	w := p.Window()
	return t >= w.Start && t < w.End
}

// Valid reports whether p is one of the three recognized preferences.
func (p TimePreference) Valid() bool {
	switch p {
	case PreferMorning, PreferAfternoon, PreferEvening:
		return true
	}
	return false
}
