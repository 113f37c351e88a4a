package events

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

var eventCols = []string{"id", "name", "image", "place", "location", "summary",
	"event_date", "event_time", "event_type", "spots", "created_at", "updated_at"}

func lineRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"event_id", "description"})
}

func expectLines(mock sqlmock.Sqlmock, agenda, requirements *sqlmock.Rows) {
	mock.ExpectQuery(`FROM event_agenda_items i JOIN events e`).WillReturnRows(agenda)
	mock.ExpectQuery(`FROM event_requirements i JOIN events e`).WillReturnRows(requirements)
}

func TestSQLGetByID_Found(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(pg(queryGetByID)).
		WithArgs("evt_1").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow("evt_1", "Hackathon", "h.png", "Aula", "Campus", "Code", "2026-03-14", "09:00", "onsite", 10, int64(1), int64(2)))
	expectLines(mock,
		lineRows().AddRow("evt_1", "Intro").AddRow("evt_1", "Build"),
		lineRows().AddRow("evt_1", "Laptop"))

	got, err := repo.GetByID(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", got.Name)
	assert.Equal(t, "2026-03-14", got.DateString())
	assert.Equal(t, models.EventOnsite, got.Type)
	assert.Equal(t, 10, got.Spots)
	assert.Equal(t, []string{"Intro", "Build"}, got.Agenda)
	assert.Equal(t, []string{"Laptop"}, got.Requirements)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLGetByID_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(pg(queryGetByID)).WithArgs("evt_x").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "evt_x")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLList_Filters(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM events e WHERE e.event_type = $1 AND substr(e.event_date, 6, 2) = $2 ORDER BY e.event_date, e.event_time COLLATE "C", e.id COLLATE "C"`)).
		WithArgs("online", "03").
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow("evt_1", "A", "", "", "", "", "2026-03-01", "10:00", "online", 1, int64(1), int64(1)).
			AddRow("evt_2", "B", "", "", "", "", "2026-03-02", "10:00", "online", 2, int64(1), int64(1)))
	mock.ExpectQuery(`FROM event_agenda_items i JOIN events e ON e.id = i.event_id WHERE e.event_type = \$1`).
		WithArgs("online", "03").
		WillReturnRows(lineRows().AddRow("evt_2", "Only"))
	mock.ExpectQuery(`FROM event_requirements i`).
		WithArgs("online", "03").
		WillReturnRows(lineRows())

	got, err := repo.List(context.Background(), models.EventFilter{Type: models.EventOnline, Month: 3})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Agenda)
	assert.Equal(t, []string{"Only"}, got[1].Agenda)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLList_EmptySkipsLines(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM events e ORDER BY`).WillReturnRows(sqlmock.NewRows(eventCols))

	got, err := repo.List(context.Background(), models.EventFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	date, _ := models.ParseDate("2026-03-14")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(pg(queryCreate)).
		WithArgs("evt_1", "Hackathon", "", "Aula", "", "", "2026-03-14", "09:00", "onsite", 5, now.UnixMicro(), now.UnixMicro()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO event_agenda_items`).WithArgs("evt_1", 0, "Intro").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO event_agenda_items`).WithArgs("evt_1", 1, "Build").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO event_requirements`).WithArgs("evt_1", 0, "Laptop").WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), &models.Event{
		ID: "evt_1", Name: "Hackathon", Place: "Aula", Date: date, Time: "09:00", Type: models.EventOnsite, Spots: 5,
		Agenda: []string{"Intro", "Build"}, Requirements: []string{"Laptop"}, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "evt_1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLCreate_NegativeSpots(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	_, err := repo.Create(context.Background(), &models.Event{Spots: -1})
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestSQLUpdate_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(pg(queryUpdate)).WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), &models.Event{ID: "evt_x"})
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(pg(queryDeleteRg)).WithArgs("evt_1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM event_agenda_items`).WithArgs("evt_1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM event_requirements`).WithArgs("evt_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(pg(queryDelete)).WithArgs("evt_1").WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.Delete(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLAdjustSpots(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("applied", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(pg(queryAdjustSpots)).
			WithArgs(-1, now.UnixMicro(), "evt_1", -1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(pg(queryGetByID)).
			WillReturnRows(sqlmock.NewRows(eventCols).
				AddRow("evt_1", "A", "", "", "", "", "2026-03-01", "", "online", 0, int64(1), now.UnixMicro()))
		expectLines(mock, lineRows(), lineRows())

		got, err := repo.AdjustSpots(context.Background(), "evt_1", -1, now)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Spots)
		assert.Equal(t, now, got.UpdatedAt)
	})

	t.Run("capacity", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(pg(queryAdjustSpots)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(pg(queryExists)).WithArgs("evt_1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		_, err := repo.AdjustSpots(context.Background(), "evt_1", -1, now)
		require.ErrorIs(t, err, common.ErrorCapacity)
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(pg(queryAdjustSpots)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(pg(queryExists)).WithArgs("evt_x").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		_, err := repo.AdjustSpots(context.Background(), "evt_x", 1, now)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(pg(queryAdjustSpots)).WillReturnError(errors.New("conn reset"))

		_, err := repo.AdjustSpots(context.Background(), "evt_1", 1, now)
		require.Error(t, err)
		assert.False(t, common.IsBusiness(err))
	})
}
