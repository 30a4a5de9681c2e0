package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reliefpass/internal/platform/postgres"
	"reliefpass/internal/voucher/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
	"reliefpass/pkg/platform/tx"
)

// PostgresStore persists vouchers. Leaving PENDING is a single conditional
// UPDATE, so a redemption and a sweep racing on one voucher cannot both win.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const voucherColumns = `id, registration_id, program_id, token, image_ref, scheduled_redemption_date, status, redeemed_at, redeemed_by, cancelled_at, created_at`

func scanVoucher(row interface{ Scan(...any) error }) (*models.Voucher, error) {
	var (
		v                           models.Voucher
		voucherID, regID, programID uuid.UUID
		status                      string
		redeemedAt, cancelledAt     sql.NullTime
		redeemedBy                  uuid.NullUUID
	)
	if err := row.Scan(&voucherID, &regID, &programID, &v.Token, &v.ImageRef, &v.ScheduledRedemptionDate,
		&status, &redeemedAt, &redeemedBy, &cancelledAt, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.ID = id.VoucherID(voucherID)
	v.RegistrationID = id.RegistrationID(regID)
	v.ProgramID = id.ProgramID(programID)
	v.Status = models.Status(status)
	if redeemedAt.Valid {
		t := redeemedAt.Time
		v.RedeemedAt = &t
	}
	if redeemedBy.Valid {
		staffID := id.StaffID(redeemedBy.UUID)
		v.RedeemedBy = &staffID
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		v.CancelledAt = &t
	}
	return &v, nil
}

func (s *PostgresStore) Create(ctx context.Context, v *models.Voucher) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO vouchers (id, registration_id, program_id, token, image_ref, scheduled_redemption_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.UUID(v.ID), uuid.UUID(v.RegistrationID), uuid.UUID(v.ProgramID), v.Token, v.ImageRef,
		v.ScheduledRedemptionDate, string(v.Status), v.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, voucherID id.VoucherID) (*models.Voucher, error) {
	return s.findBy(ctx, "id", uuid.UUID(voucherID))
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*models.Voucher, error) {
	return s.findBy(ctx, "token", token)
}

func (s *PostgresStore) FindByRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.Voucher, error) {
	return s.findBy(ctx, "registration_id", uuid.UUID(registrationID))
}

// findBy only receives column names from this file.
func (s *PostgresStore) findBy(ctx context.Context, column string, value any) (*models.Voucher, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+voucherColumns+`
		FROM vouchers
		WHERE `+column+` = $1`, value)
	v, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find voucher by %s: %w", column, err)
	}
	return v, nil
}

func (s *PostgresStore) Complete(ctx context.Context, voucherID id.VoucherID, staffID id.StaffID, at time.Time) (*models.Voucher, error) {
	conn := tx.Conn(ctx, s.db)
	row := conn.QueryRowContext(ctx, `
		UPDATE vouchers
		SET status = 'COMPLETED', redeemed_at = $2, redeemed_by = $3
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+voucherColumns,
		uuid.UUID(voucherID), at, uuid.UUID(staffID))
	return s.afterTransition(ctx, conn, voucherID, row)
}

func (s *PostgresStore) Cancel(ctx context.Context, voucherID id.VoucherID, at time.Time) (*models.Voucher, error) {
	conn := tx.Conn(ctx, s.db)
	row := conn.QueryRowContext(ctx, `
		UPDATE vouchers
		SET status = 'CANCELLED', cancelled_at = $2
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+voucherColumns,
		uuid.UUID(voucherID), at)
	return s.afterTransition(ctx, conn, voucherID, row)
}

// afterTransition tells a lost compare-and-set apart from a missing row.
func (s *PostgresStore) afterTransition(ctx context.Context, conn tx.DBTX, voucherID id.VoucherID, row *sql.Row) (*models.Voucher, error) {
	v, err := scanVoucher(row)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition voucher: %w", err)
	}
	var exists bool
	if err := conn.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM vouchers WHERE id = $1)`,
		uuid.UUID(voucherID)).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check voucher: %w", err)
	}
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return nil, sentinel.ErrInvalidState
}

func (s *PostgresStore) ListExpired(ctx context.Context, cutoff time.Time, after models.ExpiryCursor, limit int) ([]*models.Voucher, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+voucherColumns+`
		FROM vouchers
		WHERE status = 'PENDING' AND scheduled_redemption_date < $1
		  AND (scheduled_redemption_date, id) > ($2, $3)
		ORDER BY scheduled_redemption_date, id
		LIMIT $4
	`, cutoff, after.Date, uuid.UUID(after.ID), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired vouchers: %w", err)
	}
	defer rows.Close()

	var out []*models.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Stats(ctx context.Context, programID id.ProgramID) (*models.Stats, error) {
	stats := &models.Stats{}
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'PENDING'),
		       COUNT(*) FILTER (WHERE status = 'COMPLETED'),
		       COUNT(*) FILTER (WHERE status = 'CANCELLED')
		FROM vouchers
		WHERE program_id = $1
	`, uuid.UUID(programID)).Scan(&stats.Total, &stats.Pending, &stats.Completed, &stats.Cancelled)
	if err != nil {
		return nil, fmt.Errorf("voucher stats: %w", err)
	}
	stats.ComputeRate()
	return stats, nil
}

// DeleteByRegistration removes the voucher and, through the foreign key,
// its scan record.
func (s *PostgresStore) DeleteByRegistration(ctx context.Context, registrationID id.RegistrationID) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM vouchers WHERE registration_id = $1`, uuid.UUID(registrationID))
	if err != nil {
		return fmt.Errorf("delete voucher: %w", err)
	}
	return nil
}

// ScanPostgresStore appends scan records.
type ScanPostgresStore struct {
	db *sql.DB
}

func NewScanPostgres(db *sql.DB) *ScanPostgresStore {
	return &ScanPostgresStore{db: db}
}

func (s *ScanPostgresStore) Create(ctx context.Context, record *models.ScanRecord) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO scan_records (id, voucher_id, staff_id, scanned_at, note, device)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(record.ID), uuid.UUID(record.VoucherID), uuid.UUID(record.StaffID), record.ScannedAt, record.Note, record.Device)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert scan record: %w", err)
	}
	return nil
}

func (s *ScanPostgresStore) FindByVoucher(ctx context.Context, voucherID id.VoucherID) (*models.ScanRecord, error) {
	var (
		record             models.ScanRecord
		scanID, vID, staff uuid.UUID
	)
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, voucher_id, staff_id, scanned_at, note, device
		FROM scan_records
		WHERE voucher_id = $1
	`, uuid.UUID(voucherID)).Scan(&scanID, &vID, &staff, &record.ScannedAt, &record.Note, &record.Device)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find scan record: %w", err)
	}
	record.ID = id.ScanID(scanID)
	record.VoucherID = id.VoucherID(vID)
	record.StaffID = id.StaffID(staff)
	return &record, nil
}

func (s *ScanPostgresStore) DeleteByVoucher(ctx context.Context, voucherID id.VoucherID) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM scan_records WHERE voucher_id = $1`, uuid.UUID(voucherID))
	if err != nil {
		return fmt.Errorf("delete scan record: %w", err)
	}
	return nil
}
