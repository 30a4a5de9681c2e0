package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliefpass/internal/voucher/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
)

var voucherRowColumns = []string{
	"id", "registration_id", "program_id", "token", "image_ref", "scheduled_redemption_date",
	"status", "redeemed_at", "redeemed_by", "cancelled_at", "created_at",
}

func TestPostgresStore_CompleteReturnsRedeemedRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	voucherID, staffID := uuid.New(), uuid.New()
	at := time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE vouchers")).
		WithArgs(voucherID, at, staffID).
		WillReturnRows(sqlmock.NewRows(voucherRowColumns).
			AddRow(voucherID.String(), uuid.NewString(), uuid.NewString(), "tok", "", at,
				"COMPLETED", at, staffID.String(), nil, at))

	v, err := NewPostgres(db).Complete(context.Background(), id.VoucherID(voucherID), id.StaffID(staffID), at)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, v.Status)
	require.NotNil(t, v.RedeemedBy)
	assert.Equal(t, id.StaffID(staffID), *v.RedeemedBy)
	assert.Nil(t, v.CancelledAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CancelLostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE vouchers")).
		WillReturnRows(sqlmock.NewRows(voucherRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err = NewPostgres(db).Cancel(context.Background(), id.NewVoucherID(), time.Now())
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListExpiredResumesAfterCursor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cutoff := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	last := &models.Voucher{ID: id.NewVoucherID(), ScheduledRedemptionDate: cutoff.Add(-time.Hour)}

	mock.ExpectQuery(regexp.QuoteMeta("(scheduled_redemption_date, id) > ($2, $3)")).
		WithArgs(cutoff, last.ScheduledRedemptionDate, uuid.UUID(last.ID), 50).
		WillReturnRows(sqlmock.NewRows(voucherRowColumns))

	out, err := NewPostgres(db).ListExpired(context.Background(), cutoff, models.CursorAt(last), 50)
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FILTER (WHERE status = 'COMPLETED')")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "pending", "completed", "cancelled"}).AddRow(10, 3, 6, 1))

	stats, err := NewPostgres(db).Stats(context.Background(), id.NewProgramID())
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.InDelta(t, 6.0/9.0, stats.ScanRate, 1e-9)
}

func TestScanPostgresStore_FindMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM scan_records")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = NewScanPostgres(db).FindByVoucher(context.Background(), id.NewVoucherID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
