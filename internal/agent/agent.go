// Package agent owns the dialogue state machine. Each inbound message is
// interpreted into structured fields, merged into the session, and answered
// with exactly one response action from the closed set.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/booking"
	"github.com/wolfman30/clinic-scheduler/internal/directory"
	"github.com/wolfman30/clinic-scheduler/internal/ledger"
	"github.com/wolfman30/clinic-scheduler/internal/nlu"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Config tunes agent behaviour.
type Config struct {
	// RetainContactFields keeps name/phone/email across booking attempts in
	// the same session.
	RetainContactFields bool

	// MaxShownSlots caps how many open slots one message lists.
	MaxShownSlots int

	// Now is the clock, overridable in tests.
	Now func() time.Time
}

// Agent drives the scheduling conversation.
type Agent struct {
	interpreter    nlu.Interpreter
	sessions       SessionStore
	engine         *availability.Engine
	bookings       *booking.Service
	directory      *directory.Directory
	metrics        *metrics.SchedulingMetrics
	logger         *logging.Logger
	now            func() time.Time
	retainContacts bool
	maxSlots       int

	mu    sync.Mutex
	turns map[string]*sync.Mutex
}

// New wires an agent. metrics may be nil.
func New(interpreter nlu.Interpreter, sessions SessionStore, engine *availability.Engine, bookings *booking.Service, dir *directory.Directory, m *metrics.SchedulingMetrics, logger *logging.Logger, cfg Config) *Agent {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxShownSlots <= 0 {
		cfg.MaxShownSlots = 8
	}
	return &Agent{
		interpreter:    interpreter,
		sessions:       sessions,
		engine:         engine,
		bookings:       bookings,
		directory:      dir,
		metrics:        m,
		logger:         logger,
		now:            cfg.Now,
		retainContacts: cfg.RetainContactFields,
		maxSlots:       cfg.MaxShownSlots,
	}
}

// HandleMessage processes one conversational turn. Turns for the same
// session run serialized; different sessions need no coordination. Errors
// surface only for infrastructure failures the caller should 500 on;
// everything conversational is folded into the Response.
func (a *Agent) HandleMessage(ctx context.Context, sessionID, text string) (*Response, error) {
	unlock := a.lockSession(sessionID)
	defer unlock()

	sess, err := a.sessions.Load(ctx, sessionID)
	if err != nil {
		a.logger.Error("agent: session load failed", "session_id", sessionID, "error", err)
		return reply(msgApology), nil
	}
	if sess == nil {
		sess = newSession(sessionID, a.now())
	}
	prior := sess.State

	fields, err := a.interpreter.Interpret(ctx, text, sess.State, nlu.Fields{})
	if err != nil {
		a.logger.Error("agent: interpret failed", "session_id", sessionID, "error", err)
		return reply(msgApology), nil
	}

	resp := a.step(ctx, sess, strings.TrimSpace(text), fields)

	sess.UpdatedAt = a.now()
	if err := a.sessions.Save(ctx, sess); err != nil {
		a.logger.Error("agent: session save failed", "session_id", sessionID, "error", err)
	}
	a.metrics.ObserveTurn(string(resp.Action))
	a.logger.Debug("turn handled",
		"session_id", sessionID,
		"state_before", prior,
		"state_after", sess.State,
		"action", string(resp.Action),
	)
	return resp, nil
}

func (a *Agent) step(ctx context.Context, sess *Session, text string, f nlu.Fields) *Response {
	if f.Restart {
		fresh := newSession(sess.ID, a.now())
		fresh.CreatedAt = sess.CreatedAt
		*sess = *fresh
		sess.State = StateAwaitingReason
		return reply("Got it, let's start fresh. What brings you in today?")
	}

	// Cancellation intent pre-empts the booking flow from any state but
	// keeps collected fields so declining resumes where we were.
	inCancelFlow := sess.State == StateAwaitingCancelToken || sess.State == StateAwaitingCancelConfirm
	if f.CancelIntent && !inCancelFlow {
		return a.enterCancellation(ctx, sess, f)
	}

	switch sess.State {
	case StateNew:
		return a.stepInitial(sess, text, f)
	case StateAwaitingReason:
		return a.stepReason(sess, f)
	case StateAwaitingType:
		return a.stepType(sess, f)
	case StateAwaitingDate:
		return a.stepDate(sess, f)
	case StateAwaitingTime:
		return a.stepTime(ctx, sess, f)
	case StateAwaitingDoctor:
		return a.stepDoctor(ctx, sess, text, f)
	case StateAwaitingSlot:
		return a.stepSlot(sess, text)
	case StateAwaitingName:
		return a.stepName(sess, f)
	case StateAwaitingPhone:
		return a.stepPhone(sess, f)
	case StateAwaitingEmail:
		return a.stepEmail(sess, f)
	case StateAwaitingConfirm:
		return a.stepConfirm(ctx, sess, f)
	case StateAwaitingCancelToken:
		return a.stepCancelToken(ctx, sess, f)
	case StateAwaitingCancelConfirm:
		return a.stepCancelConfirm(ctx, sess, f)
	case StateCompleted, StateCancelled:
		// Terminal for that attempt only: the next message opens a fresh
		// one, optionally keeping contact details.
		a.resetAttempt(sess)
		return a.step(ctx, sess, text, f)
	default:
		a.logger.Warn("agent: unknown session state reset", "session_id", sess.ID, "state", sess.State)
		a.resetAttempt(sess)
		return a.stepInitial(sess, text, f)
	}
}

func (a *Agent) stepInitial(sess *Session, text string, f nlu.Fields) *Response {
	switch f.Intent {
	case nlu.IntentGreeting:
		sess.State = StateAwaitingReason
		return reply("Hello! I can help you schedule an appointment. What brings you in today?")
	case nlu.IntentSymptom:
		sess.Fields.Reason = text
		sess.State = StateAwaitingType
		return reply("Thanks for sharing. Based on that I'd recommend a General Consultation (30 min). Does that work for you?")
	case nlu.IntentBooking:
		sess.State = StateAwaitingReason
		return reply("Sure. What's the reason for your appointment?")
	default:
		sess.State = StateAwaitingReason
		return reply("I'm here to help you book an appointment. What brings you in today?")
	}
}

func (a *Agent) stepReason(sess *Session, f nlu.Fields) *Response {
	if f.Reason == "" {
		return reply("Could you tell me what brings you in? For example:\n- I have a headache\n- I need a checkup\n- Follow-up appointment")
	}
	sess.Fields.Reason = f.Reason
	sess.State = StateAwaitingType
	return reply("Thanks for sharing. I'd recommend a General Consultation (30 min). Is that okay?")
}

func (a *Agent) stepType(sess *Session, f nlu.Fields) *Response {
	key := f.AppointmentType
	if key == "" && f.Confirm != nil && *f.Confirm {
		// Accepting the suggested default.
		key = "consultation"
	}
	at, ok := directory.LookupAppointmentType(key)
	if !ok {
		return reply("Which type of appointment?\n" + typeMenu())
	}
	sess.Fields.AppointmentType = key
	sess.State = StateAwaitingDate
	return reply(fmt.Sprintf("Great, a %s (%d min) it is. When would you like to come in? You can say tomorrow, next Monday, March 5, or in 2 days.",
		at.Display, int(at.Duration.Minutes())))
}

func (a *Agent) stepDate(sess *Session, f nlu.Fields) *Response {
	date, err := schedule.ParseDate(f.DateExpr, a.now())
	if err != nil {
		return reply("I didn't understand that date. Please try:\n- tomorrow\n- next Monday\n- December 15\n- in 3 days")
	}
	sess.Fields.Date = &date
	sess.State = StateAwaitingTime
	return reply("Got it. Would you prefer morning, afternoon, or evening?")
}

func (a *Agent) stepTime(ctx context.Context, sess *Session, f nlu.Fields) *Response {
	pref := schedule.TimePreference(f.TimePreference)
	if !pref.Valid() {
		return reply("Please choose a time of day: morning, afternoon, or evening.")
	}
	sess.Fields.TimePreference = f.TimePreference

	doctors, err := a.engine.Filter(ctx, *sess.Fields.Date, sess.Fields.AppointmentType, "")
	if err != nil {
		return a.infraFailure(sess, err)
	}
	if len(doctors) == 0 {
		return reply("No doctors are available on that date. Please try a different time or date.")
	}
	sess.LastDoctors = summarize(doctors)
	sess.State = StateAwaitingDoctor
	return &Response{
		Action:  ActionDoctors,
		Message: "Here are the available doctors:",
		Doctors: sess.LastDoctors,
	}
}

func (a *Agent) stepDoctor(ctx context.Context, sess *Session, text string, f nlu.Fields) *Response {
	choice := f.DoctorChoice
	if choice == "" {
		choice = text
	}
	doc := pickDoctor(choice, sess.LastDoctors)
	if doc == nil {
		return reply("Please select a doctor by saying:\n- first or second\n- 1 or 2\n- the doctor's name")
	}
	sess.Fields.DoctorID = doc.DoctorID
	return a.presentSlots(ctx, sess, "")
}

// presentSlots computes open slots for the chosen doctor and moves the
// session to awaiting_slot, or back to awaiting_doctor when nothing is open.
// prefix lets callers prepend context, e.g. after losing a race for a slot.
func (a *Agent) presentSlots(ctx context.Context, sess *Session, prefix string) *Response {
	slots, err := a.engine.ComputeSlots(ctx, sess.Fields.DoctorID, *sess.Fields.Date, sess.Fields.AppointmentType)
	if err != nil && !errors.Is(err, availability.ErrClosedOnDate) {
		if errors.Is(err, directory.ErrDoctorNotFound) {
			sess.State = StateAwaitingDoctor
			return reply("I lost track of that doctor. Please pick one again.")
		}
		return a.infraFailure(sess, err)
	}

	pref := schedule.TimePreference(sess.Fields.TimePreference)
	open := make([]availability.Slot, 0, len(slots))
	for _, s := range slots {
		if !s.Available {
			continue
		}
		if pref.Valid() && !pref.Contains(s.Start) {
			continue
		}
		open = append(open, s)
		if len(open) == a.maxSlots {
			break
		}
	}
	if len(open) == 0 {
		sess.State = StateAwaitingDoctor
		return reply(prefix + "No open times with that doctor in your preferred window. Please pick another doctor, or say restart to change the date.")
	}

	sess.LastSlots = open
	sess.State = StateAwaitingSlot
	return &Response{
		Action:  ActionSlots,
		Message: prefix + fmt.Sprintf("Available times with %s:", a.doctorName(sess.Fields.DoctorID)),
		Slots:   open,
	}
}

func (a *Agent) stepSlot(sess *Session, text string) *Response {
	slot, ok := pickSlot(text, sess.LastSlots)
	if !ok {
		return reply("Please select a time slot:\n- a time like 10:30\n- first or earliest\n- 1, 2, 3...")
	}
	start := slot.Start
	sess.Fields.SlotStart = &start
	sess.State = StateAwaitingName
	return reply("Perfect. What's your full name?")
}

func (a *Agent) stepName(sess *Session, f nlu.Fields) *Response {
	if len(strings.Fields(f.Name)) < 2 {
		return reply("Please provide your full name (first and last). Example: John Smith")
	}
	sess.Fields.PatientName = f.Name
	sess.State = StateAwaitingPhone
	return reply("Great. What's your phone number?")
}

func (a *Agent) stepPhone(sess *Session, f nlu.Fields) *Response {
	if digitCount(f.Phone) < 10 {
		return reply("That doesn't look like a valid phone number. Please provide a 10-digit number, e.g. 555-123-4567.")
	}
	sess.Fields.PatientPhone = f.Phone
	sess.State = StateAwaitingEmail
	return reply("And your email address?")
}

func (a *Agent) stepEmail(sess *Session, f nlu.Fields) *Response {
	if f.Email == "" {
		return reply("That email looks invalid. Please try again, e.g. john@example.com.")
	}
	sess.Fields.PatientEmail = f.Email
	sess.State = StateAwaitingConfirm
	return reply(a.summary(sess) + "\n\nShall I confirm this booking? (yes/no)")
}

func (a *Agent) stepConfirm(ctx context.Context, sess *Session, f nlu.Fields) *Response {
	if f.Confirm == nil {
		return reply("Please reply yes to confirm the booking, or no to change something.")
	}
	if !*f.Confirm {
		return reply("No problem. What would you like to change? (say restart to start over, or cancel to stop)")
	}

	b, err := a.bookings.Book(ctx, booking.BookRequest{
		DoctorID:        sess.Fields.DoctorID,
		Date:            *sess.Fields.Date,
		Start:           *sess.Fields.SlotStart,
		AppointmentType: sess.Fields.AppointmentType,
		PatientName:     sess.Fields.PatientName,
		PatientPhone:    sess.Fields.PatientPhone,
		PatientEmail:    sess.Fields.PatientEmail,
		Reason:          sess.Fields.Reason,
	})
	switch {
	case err == nil:
	case errors.Is(err, booking.ErrSlotNoLongerAvailable):
		sess.Fields.SlotStart = nil
		return a.presentSlots(ctx, sess, "Sorry, that time was just taken. ")
	case errors.Is(err, booking.ErrValidationFailed):
		return reply(fmt.Sprintf("I couldn't book that: %v. Let's fix it — say restart to start over.", err))
	case errors.Is(err, directory.ErrDoctorNotFound):
		sess.State = StateAwaitingDoctor
		return reply("I lost track of that doctor. Please pick one again.")
	default:
		return a.infraFailure(sess, err)
	}

	sess.State = StateCompleted
	sess.LastBookingID = b.ID
	sess.LastSlots = nil
	details := a.details(b)
	return &Response{
		Action:  ActionBookingConfirmed,
		Details: details,
		Message: fmt.Sprintf("Appointment confirmed for %s at %s with %s.\nYour confirmation code is %s. See you then!",
			details.Date, details.StartTime, details.DoctorName, b.ConfirmationCode),
	}
}

func (a *Agent) enterCancellation(ctx context.Context, sess *Session, f nlu.Fields) *Response {
	sess.ResumeState = sess.State
	if f.Token != "" {
		sess.State = StateAwaitingCancelToken
		return a.stepCancelToken(ctx, sess, f)
	}
	if sess.LastBookingID != "" {
		sess.PendingCancellation = sess.LastBookingID
		sess.State = StateAwaitingCancelConfirm
		return reply("You already have an appointment booked. Are you sure you want to cancel it? (yes/no)")
	}
	sess.State = StateAwaitingCancelToken
	return reply("Sure. Please give me your confirmation code or booking id, for example:\n- APPT-1732829\n- ABC123")
}

func (a *Agent) stepCancelToken(ctx context.Context, sess *Session, f nlu.Fields) *Response {
	if f.Token == "" {
		return reply("I couldn't spot a valid code. Please provide something like APPT-123456 or ABC123.")
	}
	b, err := a.bookings.Find(ctx, f.Token)
	if err != nil {
		if errors.Is(err, ledger.ErrBookingNotFound) {
			// Stay here so the next message can retry the token.
			return reply("I couldn't find an appointment with that code. Please double-check your confirmation email.")
		}
		return a.infraFailure(sess, err)
	}
	sess.PendingCancellation = b.ID
	sess.State = StateAwaitingCancelConfirm
	return reply(fmt.Sprintf("Found your appointment on %s at %s with %s.\nAre you sure you want to cancel it? (yes/no)",
		schedule.DateKey(b.Date), b.Start, a.doctorName(b.DoctorID)))
}

func (a *Agent) stepCancelConfirm(ctx context.Context, sess *Session, f nlu.Fields) *Response {
	if f.Confirm == nil {
		return reply("Should I cancel the appointment? Please answer yes or no.")
	}
	if !*f.Confirm {
		a.leaveCancellation(sess)
		return reply("Okay, I'll keep your appointment.")
	}

	b, err := a.bookings.Cancel(ctx, sess.PendingCancellation)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrAlreadyCancelled):
			a.leaveCancellation(sess)
			return reply("That appointment was already cancelled.")
		case errors.Is(err, ledger.ErrBookingNotFound):
			a.leaveCancellation(sess)
			return reply("I couldn't find that appointment anymore.")
		default:
			return a.infraFailure(sess, err)
		}
	}

	if sess.LastBookingID == b.ID {
		sess.LastBookingID = ""
	}
	sess.PendingCancellation = ""
	sess.ResumeState = ""
	sess.State = StateCancelled
	return &Response{
		Action:  ActionCancelled,
		Details: a.details(b),
		Message: "Your appointment has been cancelled. If you'd like to book again, just let me know.",
	}
}

// leaveCancellation resumes the pre-cancellation state with fields intact.
func (a *Agent) leaveCancellation(sess *Session) {
	sess.PendingCancellation = ""
	sess.State = sess.ResumeState
	sess.ResumeState = ""
}

// resetAttempt opens a fresh booking attempt after a terminal state.
func (a *Agent) resetAttempt(sess *Session) {
	contacts := sess.Fields
	lastBooking := sess.LastBookingID
	fresh := newSession(sess.ID, a.now())
	fresh.CreatedAt = sess.CreatedAt
	*sess = *fresh
	sess.LastBookingID = lastBooking
	if a.retainContacts {
		sess.Fields.PatientName = contacts.PatientName
		sess.Fields.PatientPhone = contacts.PatientPhone
		sess.Fields.PatientEmail = contacts.PatientEmail
	}
}

func (a *Agent) infraFailure(sess *Session, err error) *Response {
	a.logger.Error("agent: turn failed", "session_id", sess.ID, "state", sess.State, "error", err)
	return reply(msgApology)
}

func (a *Agent) lockSession(id string) func() {
	a.mu.Lock()
	if a.turns == nil {
		a.turns = make(map[string]*sync.Mutex)
	}
	l, ok := a.turns[id]
	if !ok {
		l = &sync.Mutex{}
		a.turns[id] = l
	}
	a.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (a *Agent) doctorName(id int) string {
	doc, err := a.directory.Get(id)
	if err != nil {
		return "the doctor"
	}
	return doc.Name
}

func (a *Agent) summary(sess *Session) string {
	at, _ := directory.LookupAppointmentType(sess.Fields.AppointmentType)
	var b strings.Builder
	b.WriteString("Booking summary:\n")
	fmt.Fprintf(&b, "- %s (%d min)\n", at.Display, int(at.Duration.Minutes()))
	fmt.Fprintf(&b, "- %s\n", a.doctorName(sess.Fields.DoctorID))
	fmt.Fprintf(&b, "- %s at %s\n", schedule.DateKey(*sess.Fields.Date), sess.Fields.SlotStart)
	fmt.Fprintf(&b, "- %s, %s, %s\n", sess.Fields.PatientName, sess.Fields.PatientPhone, sess.Fields.PatientEmail)
	fmt.Fprintf(&b, "- Reason: %s", sess.Fields.Reason)
	return b.String()
}

func (a *Agent) details(b *ledger.Booking) *BookingDetails {
	return &BookingDetails{
		BookingID:        b.ID,
		ConfirmationCode: b.ConfirmationCode,
		Date:             schedule.DateKey(b.Date),
		StartTime:        b.Start.String(),
		EndTime:          b.End.String(),
		DoctorName:       a.doctorName(b.DoctorID),
		AppointmentType:  b.AppointmentType,
	}
}

func typeMenu() string {
	var b strings.Builder
	for _, at := range directory.AppointmentTypes {
		fmt.Fprintf(&b, "- %s (%d min)\n", at.Display, int(at.Duration.Minutes()))
	}
	return strings.TrimRight(b.String(), "\n")
}

func summarize(docs []*directory.Doctor) []DoctorSummary {
	out := make([]DoctorSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, DoctorSummary{
			DoctorID:       d.ID,
			Name:           d.Name,
			Specialization: d.Specialization,
			Rating:         d.Rating,
		})
	}
	return out
}

func pickDoctor(text string, doctors []DoctorSummary) *DoctorSummary {
	if idx, ok := nlu.PickIndex(text, len(doctors)); ok {
		return &doctors[idx]
	}
	lower := strings.ToLower(text)
	for i := range doctors {
		name := strings.ToLower(doctors[i].Name)
		if strings.Contains(lower, name) {
			return &doctors[i]
		}
		parts := strings.Fields(name)
		if len(parts) > 0 && strings.Contains(lower, parts[len(parts)-1]) {
			return &doctors[i]
		}
	}
	return nil
}

func pickSlot(text string, slots []availability.Slot) (availability.Slot, bool) {
	var zero availability.Slot
	if len(slots) == 0 {
		return zero, false
	}
	if nlu.WantsEarliest(text) {
		return slots[0], true
	}
	if nlu.WantsLatest(text) {
		return slots[len(slots)-1], true
	}
	if clock := nlu.ExtractClock(text); clock != "" {
		tod, err := schedule.ParseTimeOfDay(clock)
		if err != nil {
			return zero, false
		}
		for _, s := range slots {
			if s.Start == tod {
				return s, true
			}
		}
		return zero, false
	}
	if idx, ok := nlu.PickIndex(text, len(slots)); ok {
		return slots[idx], true
	}
	return zero, false
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

const msgApology = "Sorry, something went wrong on our side. Please try again in a moment."
