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

	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
)

func TestPostgresStore_Reserve(t *testing.T) {
	programID := id.NewProgramID()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	reserveSQL := regexp.QuoteMeta("UPDATE capacity_ledgers AS l")
	classifySQL := regexp.QuoteMeta("JOIN programs AS p ON p.id = l.program_id")

	newStore := func(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		return NewPostgres(db), mock
	}

	t.Run("returns the next slot", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectQuery(reserveSQL).
			WithArgs(uuid.UUID(programID), "REGISTRATION", now).
			WillReturnRows(sqlmock.NewRows([]string{"last_slot"}).AddRow(3))

		slot, err := store.Reserve(context.Background(), programID, id.KindRegistration, now)
		require.NoError(t, err)
		assert.Equal(t, 3, slot)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("full ledger of open program is capacity", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectQuery(reserveSQL).WillReturnRows(sqlmock.NewRows([]string{"last_slot"}))
		mock.ExpectQuery(classifySQL).
			WillReturnRows(sqlmock.NewRows([]string{"status", "scheduled_at"}).AddRow("OPEN", now.Add(time.Hour)))

		_, err := store.Reserve(context.Background(), programID, id.KindRegistration, now)
		assert.ErrorIs(t, err, sentinel.ErrCapacity)
	})

	t.Run("closed program is invalid state", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectQuery(reserveSQL).WillReturnRows(sqlmock.NewRows([]string{"last_slot"}))
		mock.ExpectQuery(classifySQL).
			WillReturnRows(sqlmock.NewRows([]string{"status", "scheduled_at"}).AddRow("CLOSED", now.Add(time.Hour)))

		_, err := store.Reserve(context.Background(), programID, id.KindStall, now)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("started program is invalid state", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectQuery(reserveSQL).WillReturnRows(sqlmock.NewRows([]string{"last_slot"}))
		mock.ExpectQuery(classifySQL).
			WillReturnRows(sqlmock.NewRows([]string{"status", "scheduled_at"}).AddRow("OPEN", now))

		_, err := store.Reserve(context.Background(), programID, id.KindStall, now)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("missing ledger is not found", func(t *testing.T) {
		store, mock := newStore(t)
		mock.ExpectQuery(reserveSQL).WillReturnRows(sqlmock.NewRows([]string{"last_slot"}))
		mock.ExpectQuery(classifySQL).WillReturnRows(sqlmock.NewRows([]string{"status", "scheduled_at"}))

		_, err := store.Reserve(context.Background(), programID, id.KindStall, now)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgresStore_ReleaseNeverBelowZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("SET occupied = GREATEST(occupied - 1, 0)")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgres(db).Release(context.Background(), id.NewProgramID(), id.KindRegistration))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindForUpdateLocksRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	programID := id.NewProgramID()

	mock.ExpectQuery(`FROM capacity_ledgers\s+WHERE program_id = \$1 AND kind = \$2 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"program_id", "kind", "ceiling", "occupied", "last_slot"}).
			AddRow(programID.String(), "STALL", 4, 2, 3))

	ledger, err := NewPostgres(db).FindForUpdate(context.Background(), programID, id.KindStall)
	require.NoError(t, err)
	assert.Equal(t, 4, ledger.Ceiling)
	assert.Equal(t, 3, ledger.LastSlot)
	require.NoError(t, mock.ExpectationsWereMet())
}
