package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"reliefpass/internal/platform/postgres"
	"reliefpass/internal/program/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
	"reliefpass/pkg/platform/tx"
)

// PostgresStore persists programs. It joins the transaction in ctx when one
// is present.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *models.Program) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO programs (id, title, location, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(p.ID), p.Title, p.Location, p.ScheduledAt, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert program: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, title, location, scheduled_at, status, created_at, updated_at
		FROM programs
		WHERE id = $1
	`, uuid.UUID(programID))

	var (
		p      models.Program
		rawID  uuid.UUID
		status string
	)
	if err := row.Scan(&rawID, &p.Title, &p.Location, &p.ScheduledAt, &status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find program: %w", err)
	}
	p.ID = id.ProgramID(rawID)
	p.Status = models.Status(status)
	return &p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Program, expected models.Status) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE programs
		SET title = $2, location = $3, scheduled_at = $4, status = $5, updated_at = $6
		WHERE id = $1 AND status = $7
	`, uuid.UUID(p.ID), p.Title, p.Location, p.ScheduledAt, string(p.Status), p.UpdatedAt, string(expected))
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update program rows affected: %w", err)
	}
	if rows == 0 {
		if _, findErr := s.FindByID(ctx, p.ID); findErr != nil {
			return findErr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}
