package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"reliefpass/internal/admission/models"
	capacitymodels "reliefpass/internal/capacity/models"
	"reliefpass/internal/platform/postgres"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
	"reliefpass/pkg/platform/tx"
)

// PostgresStore persists registrations. Status changes are conditional
// UPDATEs so a concurrent writer cannot be overwritten silently.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `id, program_id, participant_id, kind, slot, status, contact, admitted_at, updated_at, canceled_at`

func scanRegistration(row interface{ Scan(...any) error }) (*models.Registration, error) {
	var (
		r                               models.Registration
		regID, programID, participantID uuid.UUID
		kind, status                    string
		canceledAt                      sql.NullTime
	)
	if err := row.Scan(&regID, &programID, &participantID, &kind, &r.Slot, &status, &r.Contact, &r.AdmittedAt, &r.UpdatedAt, &canceledAt); err != nil {
		return nil, err
	}
	r.ID = id.RegistrationID(regID)
	r.ProgramID = id.ProgramID(programID)
	r.ParticipantID = id.ParticipantID(participantID)
	r.Kind = id.Kind(kind)
	r.Status = models.Status(status)
	if canceledAt.Valid {
		t := canceledAt.Time
		r.CanceledAt = &t
	}
	return &r, nil
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Registration) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.UUID(r.ID), uuid.UUID(r.ProgramID), uuid.UUID(r.ParticipantID), string(r.Kind), r.Slot,
		string(r.Status), r.Contact, r.AdmittedAt, r.UpdatedAt, r.CanceledAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE id = $1
	`, uuid.UUID(registrationID))
	return s.one(row, "find registration")
}

func (s *PostgresStore) FindByParticipant(ctx context.Context, programID id.ProgramID, participantID id.ParticipantID, kind id.Kind) (*models.Registration, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE program_id = $1 AND participant_id = $2 AND kind = $3
	`, uuid.UUID(programID), uuid.UUID(participantID), string(kind))
	return s.one(row, "find registration by participant")
}

func (s *PostgresStore) one(row *sql.Row, op string) (*models.Registration, error) {
	r, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

func (s *PostgresStore) ListByProgram(ctx context.Context, programID id.ProgramID, statuses ...models.Status) ([]*models.Registration, error) {
	var filter any
	if len(statuses) > 0 {
		filter = pq.Array(statusStrings(statuses))
	}
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE program_id = $1
		  AND ($2::text[] IS NULL OR status = ANY($2::text[]))
		ORDER BY kind, admitted_at, slot
	`, uuid.UUID(programID), filter)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByParticipant(ctx context.Context, participantID id.ParticipantID) ([]*models.Registration, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE participant_id = $1
		ORDER BY admitted_at DESC, id
	`, uuid.UUID(participantID))
	if err != nil {
		return nil, fmt.Errorf("list participant registrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListOccupants reads the pool's slot holders in admission order. Run inside
// the ceiling-change transaction it sees the same rows the ledger lock guards.
func (s *PostgresStore) ListOccupants(ctx context.Context, programID id.ProgramID, kind id.Kind) ([]capacitymodels.Occupant, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT id, slot, admitted_at
		FROM registrations
		WHERE program_id = $1
		  AND kind = $2
		  AND status IN ('PENDING', 'APPROVED', 'CLAIMED')
		ORDER BY admitted_at, slot
	`, uuid.UUID(programID), string(kind))
	if err != nil {
		return nil, fmt.Errorf("list occupants: %w", err)
	}
	defer rows.Close()

	var out []capacitymodels.Occupant
	for rows.Next() {
		var (
			o     capacitymodels.Occupant
			regID uuid.UUID
		)
		if err := rows.Scan(&regID, &o.Slot, &o.AdmittedAt); err != nil {
			return nil, fmt.Errorf("scan occupant: %w", err)
		}
		o.RegistrationID = id.RegistrationID(regID)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Transition is a compare-and-set on status.
func (s *PostgresStore) Transition(ctx context.Context, registrationID id.RegistrationID, from []models.Status, next models.Status, now time.Time) (*models.Registration, error) {
	conn := tx.Conn(ctx, s.db)
	var canceledAt any
	if next == models.StatusCanceled {
		canceledAt = now
	}
	row := conn.QueryRowContext(ctx, `
		UPDATE registrations
		SET status = $3,
		    updated_at = $4,
		    canceled_at = COALESCE($5, canceled_at)
		WHERE id = $1 AND status = ANY($2::text[])
		RETURNING `+registrationColumns,
		uuid.UUID(registrationID), pq.Array(statusStrings(from)), string(next), now, canceledAt)
	r, err := scanRegistration(row)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition registration: %w", err)
	}

	var exists bool
	if err := conn.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE id = $1)`,
		uuid.UUID(registrationID)).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check registration: %w", err)
	}
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return nil, sentinel.ErrInvalidState
}

// Delete removes the registration; its voucher and scan records go with it
// through ON DELETE CASCADE.
func (s *PostgresStore) Delete(ctx context.Context, registrationID id.RegistrationID) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, uuid.UUID(registrationID))
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete registration rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
