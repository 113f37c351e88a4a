package verifications

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(db, dbx.Postgres), mock
}

func pg(query string) string {
	return regexp.QuoteMeta(dbx.Postgres.Rebind(query))
}

var cols = []string{"id", "code", "full_name", "student_id", "email", "career", "semester", "phone",
	"attempts", "expires_at", "created_at"}

func TestSQLCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(pg(queryCreate)).
		WithArgs(sqlmock.AnyArg(), "123456", "Ana", "A001", "ana@uni.mx", "CS", 3, "5512345678", 0,
			now.Add(5*time.Minute).UnixMicro(), now.UnixMicro()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), &models.SignupVerification{
		Code: "123456", FullName: "Ana", StudentID: "A001", Email: "ana@uni.mx", Career: "CS", Semester: 3,
		Phone: "5512345678", ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^sms_[0-9a-f]{16}$`, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		exp := time.Date(2026, 2, 1, 9, 5, 0, 0, time.UTC)
		mock.ExpectQuery(pg(queryGetByID)).WithArgs("sms_1").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow("sms_1", "123456", "Ana", "A001", "ana@uni.mx", "CS", 3, "5512345678", 2, exp.UnixMicro(), int64(1)))

		got, err := repo.GetByID(context.Background(), "sms_1")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Attempts)
		assert.True(t, got.ExpiresAt.Equal(exp))
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(pg(queryGetByID)).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), "sms_x")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(pg(queryGetByID)).WillReturnError(errors.New("down"))

		_, err := repo.GetByID(context.Background(), "sms_x")
		require.Error(t, err)
		assert.False(t, common.IsBusiness(err))
	})
}

func TestSQLSetAttemptsAndDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	ctx := context.Background()

	mock.ExpectExec(pg(querySetAttempts)).WithArgs(3, "sms_1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(pg(querySetAttempts)).WithArgs(1, "sms_x").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(pg(queryDelete)).WithArgs("sms_1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetAttempts(ctx, "sms_1", 3))
	assert.ErrorIs(t, repo.SetAttempts(ctx, "sms_x", 1), common.ErrorNotFound)

	deleted, err := repo.Delete(ctx, "sms_1")
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLDeleteExpired(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(pg(queryDeleteExpired)).WithArgs(now.UnixMicro()).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
