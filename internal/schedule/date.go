package schedule

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseableDate is returned when a date expression cannot be resolved to
// a calendar date on or after the reference date. Callers in the dialogue
// flow turn this into a clarifying question rather than a hard failure.
var ErrUnparseableDate = errors.New("unparseable date expression")

var dayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tues":      time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thurs":     time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

var inDaysRE = regexp.MustCompile(`^in\s+(\d{1,2})\s+days?$`)

// absolute layouts tried in order; the year-less ones get the year inferred.
var dateLayouts = []string{"2006-01-02", "1/2/2006", "1-2-2006", "January 2", "Jan 2"}

// ParseDate resolves a natural or absolute date expression against a
// reference instant. Supported forms: "today", "tomorrow", "day after
// tomorrow", "in N days", weekday names ("friday", "next friday", "this
// friday" all mean the next occurrence, 1-7 days ahead), ISO dates, US
// numeric dates, and "March 5" style month-day pairs with the year inferred.
// The result is the local calendar date at midnight. Expressions that
// resolve to a date before the reference date fail with ErrUnparseableDate.
func ParseDate(expr string, ref time.Time) (time.Time, error) {
	refDate := Midnight(ref)
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		return time.Time{}, ErrUnparseableDate
	}

	switch s {
	case "today":
		return refDate, nil
	case "tomorrow":
		return refDate.AddDate(0, 0, 1), nil
	case "day after tomorrow", "the day after tomorrow":
		return refDate.AddDate(0, 0, 2), nil
	}

	if m := inDaysRE.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return refDate.AddDate(0, 0, n), nil
	}

	day := strings.TrimPrefix(strings.TrimPrefix(s, "next "), "this ")
	if wd, ok := dayNames[day]; ok {
		ahead := (int(wd) - int(refDate.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return refDate.AddDate(0, 0, ahead), nil
	}

	for _, layout := range dateLayouts {
		parsed, err := time.ParseInLocation(layout, expr, ref.Location())
		if err != nil {
			// Month names are capitalized in the layouts; retry title-cased.
			parsed, err = time.ParseInLocation(layout, titleCase(s), ref.Location())
		}
		if err != nil {
			continue
		}
		d := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, ref.Location())
		if parsed.Year() == 0 {
			// Year-less input: current year, rolled forward when already past.
			d = time.Date(refDate.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, ref.Location())
			if d.Before(refDate) {
				d = d.AddDate(1, 0, 0)
			}
		}
		if d.Before(refDate) {
			return time.Time{}, ErrUnparseableDate
		}
		return d, nil
	}

	return time.Time{}, ErrUnparseableDate
}

func titleCase(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		if len(p) > 0 && p[0] >= 'a' && p[0] <= 'z' {
			parts[i] = string(p[0]-'a'+'A') + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// Midnight truncates an instant to its local calendar date.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether two instants fall on the same local calendar day.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DateKey renders a date as the canonical "2006-01-02" form used in ledger
// keys and wire payloads.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
