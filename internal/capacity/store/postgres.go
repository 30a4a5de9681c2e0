package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reliefpass/internal/capacity/models"
	"reliefpass/internal/platform/postgres"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
	"reliefpass/pkg/platform/tx"
)

// PostgresStore persists ledgers. Reserve is one conditional UPDATE joined
// against the program row, so the occupancy check and the increment cannot
// be separated by a concurrent writer.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const ledgerColumns = `program_id, kind, ceiling, occupied, last_slot`

func scanLedger(row interface{ Scan(...any) error }) (*models.Ledger, error) {
	var (
		l         models.Ledger
		programID uuid.UUID
		kind      string
	)
	if err := row.Scan(&programID, &kind, &l.Ceiling, &l.Occupied, &l.LastSlot); err != nil {
		return nil, err
	}
	l.ProgramID = id.ProgramID(programID)
	l.Kind = id.Kind(kind)
	return &l, nil
}

func (s *PostgresStore) Create(ctx context.Context, ledger models.Ledger) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO capacity_ledgers (`+ledgerColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.UUID(ledger.ProgramID), string(ledger.Kind), ledger.Ceiling, ledger.Occupied, ledger.LastSlot)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert ledger: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, programID id.ProgramID, kind id.Kind) (*models.Ledger, error) {
	return s.find(ctx, programID, kind, "")
}

// FindForUpdate locks the ledger row until the surrounding transaction ends.
func (s *PostgresStore) FindForUpdate(ctx context.Context, programID id.ProgramID, kind id.Kind) (*models.Ledger, error) {
	return s.find(ctx, programID, kind, " FOR UPDATE")
}

func (s *PostgresStore) find(ctx context.Context, programID id.ProgramID, kind id.Kind, suffix string) (*models.Ledger, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM capacity_ledgers
		WHERE program_id = $1 AND kind = $2`+suffix,
		uuid.UUID(programID), string(kind))
	ledger, err := scanLedger(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find ledger: %w", err)
	}
	return ledger, nil
}

func (s *PostgresStore) ListByProgram(ctx context.Context, programID id.ProgramID) ([]models.Ledger, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+ledgerColumns+`
		FROM capacity_ledgers
		WHERE program_id = $1
		ORDER BY kind
	`, uuid.UUID(programID))
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	defer rows.Close()

	var out []models.Ledger
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		out = append(out, *ledger)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Reserve(ctx context.Context, programID id.ProgramID, kind id.Kind, now time.Time) (int, error) {
	conn := tx.Conn(ctx, s.db)
	var slot int
	err := conn.QueryRowContext(ctx, `
		UPDATE capacity_ledgers AS l
		SET occupied = l.occupied + 1,
		    last_slot = l.last_slot + 1
		FROM programs AS p
		WHERE l.program_id = $1
		  AND l.kind = $2
		  AND p.id = l.program_id
		  AND p.status = 'OPEN'
		  AND p.scheduled_at > $3
		  AND l.occupied < l.ceiling
		RETURNING l.last_slot
	`, uuid.UUID(programID), string(kind), now).Scan(&slot)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("reserve slot: %w", err)
	}
	return 0, s.classifyMiss(ctx, conn, programID, kind, now)
}

// classifyMiss explains why Reserve matched no row.
func (s *PostgresStore) classifyMiss(ctx context.Context, conn tx.DBTX, programID id.ProgramID, kind id.Kind, now time.Time) error {
	var (
		status      string
		scheduledAt time.Time
	)
	err := conn.QueryRowContext(ctx, `
		SELECT p.status, p.scheduled_at
		FROM capacity_ledgers AS l
		JOIN programs AS p ON p.id = l.program_id
		WHERE l.program_id = $1 AND l.kind = $2
	`, uuid.UUID(programID), string(kind)).Scan(&status, &scheduledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("classify reserve miss: %w", err)
	}
	if status != "OPEN" || !scheduledAt.After(now) {
		return sentinel.ErrInvalidState
	}
	return sentinel.ErrCapacity
}

func (s *PostgresStore) Release(ctx context.Context, programID id.ProgramID, kind id.Kind) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE capacity_ledgers
		SET occupied = GREATEST(occupied - 1, 0)
		WHERE program_id = $1 AND kind = $2
	`, uuid.UUID(programID), string(kind))
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release slot rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Apply writes a recomputed ledger. The table's CHECK constraint rejects an
// occupancy above the ceiling.
func (s *PostgresStore) Apply(ctx context.Context, ledger models.Ledger) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE capacity_ledgers
		SET ceiling = $3, occupied = $4, last_slot = $5
		WHERE program_id = $1 AND kind = $2
	`, uuid.UUID(ledger.ProgramID), string(ledger.Kind), ledger.Ceiling, ledger.Occupied, ledger.LastSlot)
	if err != nil {
		return fmt.Errorf("apply ledger: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply ledger rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
