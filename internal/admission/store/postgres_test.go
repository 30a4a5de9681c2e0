package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliefpass/internal/admission/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
)

var registrationRowColumns = []string{
	"id", "program_id", "participant_id", "kind", "slot", "status", "contact", "admitted_at", "updated_at", "canceled_at",
}

func TestPostgresStore_TransitionReturnsUpdatedRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	regID, programID, participantID := uuid.New(), uuid.New(), uuid.New()
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE registrations")).
		WithArgs(regID, sqlmock.AnyArg(), "CANCELED", now, now).
		WillReturnRows(sqlmock.NewRows(registrationRowColumns).
			AddRow(regID.String(), programID.String(), participantID.String(), "REGISTRATION", 4, "CANCELED", "", now, now, now))

	r, err := NewPostgres(db).Transition(context.Background(), id.RegistrationID(regID),
		[]models.Status{models.StatusPending, models.StatusApproved}, models.StatusCanceled, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, r.Status)
	assert.Equal(t, 4, r.Slot)
	require.NotNil(t, r.CanceledAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_TransitionMiss(t *testing.T) {
	for name, tc := range map[string]struct {
		exists bool
		want   error
	}{
		"status moved on": {exists: true, want: sentinel.ErrInvalidState},
		"row missing":     {exists: false, want: sentinel.ErrNotFound},
	} {
		t.Run(name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(regexp.QuoteMeta("UPDATE registrations")).
				WillReturnRows(sqlmock.NewRows(registrationRowColumns))
			mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tc.exists))

			_, err = NewPostgres(db).Transition(context.Background(), id.NewRegistrationID(),
				[]models.Status{models.StatusApproved}, models.StatusClaimed, time.Now())
			assert.ErrorIs(t, err, tc.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_CreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	r, err := models.NewRegistration(id.NewProgramID(), id.ParticipantID(uuid.New()), id.KindStall, 1, "", now)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registrations")).
		WillReturnError(&pq.Error{Code: "23505"})

	assert.ErrorIs(t, NewPostgres(db).Create(context.Background(), r), sentinel.ErrAlreadyUsed)
}

func TestPostgresStore_DeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM registrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewPostgres(db).Delete(context.Background(), id.NewRegistrationID()), sentinel.ErrNotFound)
}

func TestPostgresStore_ListByParticipantNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	participantID := uuid.New()
	older := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY admitted_at DESC, id")).
		WithArgs(participantID).
		WillReturnRows(sqlmock.NewRows(registrationRowColumns).
			AddRow(uuid.NewString(), uuid.NewString(), participantID.String(), "STALL", 1, "APPROVED", "", newer, newer, nil).
			AddRow(uuid.NewString(), uuid.NewString(), participantID.String(), "REGISTRATION", 3, "CLAIMED", "", older, older, nil))

	regs, err := NewPostgres(db).ListByParticipant(context.Background(), id.ParticipantID(participantID))
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, id.KindStall, regs[0].Kind)
	assert.Equal(t, models.StatusClaimed, regs[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
