// Package nlu turns free-text patient messages into structured fields. The
// rule interpreter here is deliberately simple keyword and regex matching;
// the Interpreter interface lets a smarter collaborator replace it without
// touching the dialogue machine.
package nlu

import (
	"context"
	"regexp"
	"strings"
)

// Intent classifies a message when no dialogue state gives it meaning yet.
type Intent string

const (
	IntentUnknown  Intent = ""
	IntentGreeting Intent = "greeting"
	IntentSymptom  Intent = "symptom"
	IntentBooking  Intent = "booking"
)

// Fields is the structured reading of one utterance. Any subset may be
// zero; the dialogue machine tolerates missing fields and asks again.
type Fields struct {
	Intent          Intent
	Reason          string
	AppointmentType string
	DateExpr        string
	TimePreference  string
	DoctorChoice    string
	SlotChoice      string
	Name            string
	Phone           string
	Email           string
	Confirm         *bool
	CancelIntent    bool
	Restart         bool
	Token           string
}

// Interpreter extracts Fields from raw text. state is the dialogue state the
// message arrived in, known the fields already collected; both let an
// implementation disambiguate ("tomorrow" is a date only when one is wanted).
type Interpreter interface {
	Interpret(ctx context.Context, text, state string, known Fields) (Fields, error)
}

var (
	greetings = map[string]struct{}{
		"hi": {}, "hello": {}, "hey": {},
		"good morning": {}, "good afternoon": {}, "good evening": {},
	}
	symptomWords = []string{
		"pain", "hurt", "injury", "fever", "cough", "sick",
		"ache", "throat", "rash", "headache", "tooth", "teeth",
	}
	bookingWords = []string{
		"appointment", "book", "schedule", "visit", "see doctor", "consultation",
	}
	affirmWords = []string{
		"yes", "yeah", "yep", "ok", "okay", "sure", "sounds good", "fine", "perfect", "confirm",
	}
	denyWords = []string{"no", "nope", "nah", "don't", "do not"}

	bookingIDRE = regexp.MustCompile(`APPT-\d+`)
	shortCodeRE = regexp.MustCompile(`\b([A-Z0-9]{6})\b`)
	phoneRE     = regexp.MustCompile(`\d`)
	emailRE     = regexp.MustCompile(`[^@\s]+@[^@\s]+\.[^@\s]+`)
	wordRE      = regexp.MustCompile(`[a-z']+`)
)

// RuleInterpreter is the in-repo Interpreter.
type RuleInterpreter struct{}

func NewRuleInterpreter() *RuleInterpreter { return &RuleInterpreter{} }

// Interpret never fails: unrecognized text simply yields empty Fields.
func (r *RuleInterpreter) Interpret(ctx context.Context, text, state string, known Fields) (Fields, error) {
	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)

	f := Fields{
		CancelIntent: containsWord(lower, "cancel"),
		Restart:      containsWord(lower, "restart") || strings.Contains(lower, "start over"),
		Confirm:      parseConfirm(lower),
		Intent:       classifyIntent(lower),
	}

	// Bare 6-char codes collide with ordinary words ("CANCEL", "PLEASE"),
	// so they only count when a token was actually asked for. Booking ids
	// are unambiguous anywhere.
	if state == "awaiting_cancel_token" {
		f.Token = ExtractToken(raw)
	} else {
		f.Token = bookingIDRE.FindString(strings.ToUpper(raw))
	}

	switch state {
	case "awaiting_reason":
		if IsMeaningfulReason(raw) {
			f.Reason = raw
		}
	case "awaiting_appointment_type":
		f.AppointmentType = ParseAppointmentType(lower)
	case "awaiting_date":
		f.DateExpr = raw
	case "awaiting_time":
		f.TimePreference = ParseTimePreference(lower)
	case "awaiting_doctor":
		f.DoctorChoice = raw
	case "awaiting_slot":
		f.SlotChoice = raw
	case "awaiting_name":
		if !f.CancelIntent && !f.Restart {
			f.Name = raw
		}
	case "awaiting_phone":
		f.Phone = raw
	case "awaiting_email":
		if m := emailRE.FindString(raw); m != "" {
			f.Email = m
		}
	default:
		// Initial contact: symptom text doubles as the visit reason.
		if f.Intent == IntentSymptom {
			f.Reason = raw
		}
		// Type names volunteered up front are captured too.
		f.AppointmentType = ParseAppointmentType(lower)
	}
	return f, nil
}

func classifyIntent(lower string) Intent {
	trimmed := strings.TrimRight(lower, "!. ")
	if _, ok := greetings[trimmed]; ok {
		return IntentGreeting
	}
	for _, w := range symptomWords {
		if strings.Contains(lower, w) {
			return IntentSymptom
		}
	}
	for _, w := range bookingWords {
		if strings.Contains(lower, w) {
			return IntentBooking
		}
	}
	return IntentUnknown
}

func parseConfirm(lower string) *bool {
	words := wordRE.FindAllString(lower, -1)
	for _, w := range words {
		for _, a := range affirmWords {
			if w == a {
				v := true
				return &v
			}
		}
		for _, d := range denyWords {
			if w == d {
				v := false
				return &v
			}
		}
	}
	for _, a := range []string{"sounds good", "go ahead"} {
		if strings.Contains(lower, a) {
			v := true
			return &v
		}
	}
	return nil
}

func containsWord(lower, word string) bool {
	for _, w := range wordRE.FindAllString(lower, -1) {
		if w == word {
			return true
		}
	}
	return false
}

// ExtractToken pulls a booking id or short confirmation code out of text.
func ExtractToken(text string) string {
	upper := strings.ToUpper(text)
	if m := bookingIDRE.FindString(upper); m != "" {
		return m
	}
	if m := shortCodeRE.FindString(upper); m != "" {
		return m
	}
	return ""
}

// ParseAppointmentType fuzzy-matches a menu key from text, or "".
func ParseAppointmentType(lower string) string {
	for _, key := range []string{
		"consultation", "followup", "physical", "specialist",
		"dental", "pediatric", "cardio", "derma", "ortho",
	} {
		if strings.Contains(lower, key) {
			return key
		}
	}
	switch {
	case strings.Contains(lower, "consult"):
		return "consultation"
	case strings.Contains(lower, "follow"):
		return "followup"
	case strings.Contains(lower, "exam"), strings.Contains(lower, "checkup"), strings.Contains(lower, "check-up"):
		return "physical"
	case strings.Contains(lower, "tooth"), strings.Contains(lower, "teeth"), strings.Contains(lower, "dentist"):
		return "dental"
	case strings.Contains(lower, "child"), strings.Contains(lower, "kid"):
		return "pediatric"
	case strings.Contains(lower, "heart"):
		return "cardio"
	case strings.Contains(lower, "skin"):
		return "derma"
	case strings.Contains(lower, "bone"), strings.Contains(lower, "joint"), strings.Contains(lower, "knee"):
		return "ortho"
	}
	return ""
}

// ParseTimePreference maps text to morning/afternoon/evening, or "".
func ParseTimePreference(lower string) string {
	// Day-part words first: "am" alone would shadow "I am free in the
	// afternoon".
	switch {
	case strings.Contains(lower, "afternoon"), strings.Contains(lower, "noon"):
		return "afternoon"
	case strings.Contains(lower, "morning"):
		return "morning"
	case strings.Contains(lower, "evening"), strings.Contains(lower, "night"):
		return "evening"
	case containsWord(lower, "am"):
		return "morning"
	case containsWord(lower, "pm"):
		return "afternoon"
	}
	return ""
}

// IsMeaningfulReason rejects greetings and filler so the machine asks again
// instead of recording "hi" as the reason for visit.
func IsMeaningfulReason(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, g := range []string{"hi", "hello", "hey", "yo", "sup"} {
		if lower == g || lower == g+"!" {
			return false
		}
	}
	if len(lower) < 3 {
		return false
	}
	for _, w := range append(append([]string{}, symptomWords...), "checkup", "consultation", "followup", "exam", "need", "want", "schedule", "book", "appointment") {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return len(strings.Fields(lower)) >= 3
}
