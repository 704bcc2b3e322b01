package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wolfman30/clinic-scheduler/internal/schedule"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// ArchiveStore writes bookings through to PostgreSQL for durable audit and
// reporting. It is not the authority: the in-memory ledger decides conflicts,
// and archive failures are logged but never fail a transaction.
type ArchiveStore struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewArchiveStore creates an archive store. A nil db yields a nil store, and
// every method on a nil store is a no-op, so callers never need to branch.
func NewArchiveStore(db *sql.DB, logger *logging.Logger) *ArchiveStore {
	if db == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ArchiveStore{db: db, logger: logger}
}

// EnsureSchema creates the archive table when missing.
func (s *ArchiveStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS booking_archive (
			booking_id        TEXT PRIMARY KEY,
			confirmation_code TEXT NOT NULL,
			doctor_id         INTEGER NOT NULL,
			date              DATE NOT NULL,
			start_time        TEXT NOT NULL,
			end_time          TEXT NOT NULL,
			appointment_type  TEXT NOT NULL,
			patient_name      TEXT NOT NULL,
			patient_phone     TEXT NOT NULL,
			patient_email     TEXT NOT NULL,
			reason            TEXT NOT NULL,
			status            TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL,
			cancelled_at      TIMESTAMPTZ
		)
	`)
	if err != nil {
		return fmt.Errorf("ledger: ensure archive schema: %w", err)
	}
	return nil
}

// RecordInsert archives a freshly confirmed booking.
func (s *ArchiveStore) RecordInsert(ctx context.Context, b *Booking) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO booking_archive (
			booking_id, confirmation_code, doctor_id, date, start_time, end_time,
			appointment_type, patient_name, patient_phone, patient_email,
			reason, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (booking_id) DO NOTHING
	`, b.ID, b.ConfirmationCode, b.DoctorID, schedule.DateKey(b.Date),
		b.Start.String(), b.End.String(), b.AppointmentType,
		b.PatientName, b.PatientPhone, b.PatientEmail,
		b.Reason, string(b.Status), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("ledger: archive insert: %w", err)
	}
	return nil
}

// RecordCancel marks the archived row cancelled.
func (s *ArchiveStore) RecordCancel(ctx context.Context, b *Booking) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE booking_archive SET status = $1, cancelled_at = $2
		WHERE booking_id = $3
	`, string(StatusCancelled), b.CancelledAt, b.ID)
	if err != nil {
		return fmt.Errorf("ledger: archive cancel: %w", err)
	}
	return nil
}
