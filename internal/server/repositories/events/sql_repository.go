package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/shared"
)

const eventColumns = `e.id, e.name, e.image, e.place, e.location, e.summary, e.event_date, e.event_time, e.event_type, e.spots, e.created_at, e.updated_at`

const queryCreate = `INSERT INTO events
	 (id, name, image, place, location, summary, event_date, event_time, event_type, spots, created_at, updated_at)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const queryUpdate = `UPDATE events SET
	 name = ?, image = ?, place = ?, location = ?, summary = ?, event_date = ?, event_time = ?,
	 event_type = ?, spots = ?, updated_at = ?
	 WHERE id = ?`

const queryAdjustSpots = `UPDATE events SET spots = spots + ?, updated_at = ?
	 WHERE id = ? AND spots + ? >= 0`

const (
	queryGetByID  = `SELECT ` + eventColumns + ` FROM events e WHERE e.id = ?`
	queryExists   = `SELECT COUNT(*) FROM events WHERE id = ?`
	queryCount    = `SELECT COUNT(*) FROM events`
	queryDelete   = `DELETE FROM events WHERE id = ?`
	queryDeleteRg = `DELETE FROM event_registrations WHERE event_id = ?`
)

// childTables hold the ordered text lines of an event.
var childTables = [...]string{"event_agenda_items", "event_requirements"}

// SQLRepository implements Repository on top of database/sql.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// NewSQLRepository binds a repository to db (a *sql.DB or *sql.Tx).
func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e                    models.Event
		date, kind           string
		createdAt, updatedAt int64
	)
	err := row.Scan(&e.ID, &e.Name, &e.Image, &e.Place, &e.Location, &e.Summary,
		&date, &e.Time, &kind, &e.Spots, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.Date, err = models.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("event %s: bad stored date %q: %w", e.ID, date, err)
	}
	e.Type = models.EventType(kind)
	e.Agenda = []string{}
	e.Requirements = []string{}
	e.CreatedAt = dbx.FromMicros(createdAt)
	e.UpdatedAt = dbx.FromMicros(updatedAt)
	return &e, nil
}

func (r *SQLRepository) where(filter models.EventFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Type != "" {
		conds = append(conds, "e.event_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Month != 0 {
		conds = append(conds, "substr(e.event_date, 6, 2) = ?")
		args = append(args, fmt.Sprintf("%02d", filter.Month))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *SQLRepository) List(ctx context.Context, filter models.EventFilter) ([]*models.Event, error) {
	where, args := r.where(filter)
	query := `SELECT ` + eventColumns + ` FROM events e` + where +
		` ORDER BY e.event_date, ` + r.dialect.OrderText("e.event_time") + `, ` + r.dialect.OrderText("e.id")

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	result := []*models.Event{}
	byID := make(map[string]*models.Event)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
		byID[e.ID] = e
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if len(result) == 0 {
		return result, nil
	}
	if err := r.loadLines(ctx, byID, where, args); err != nil {
		return nil, err
	}
	return result, nil
}

// loadLines fills Agenda and Requirements of the events in byID, reading
// the child rows of every event matching where.
func (r *SQLRepository) loadLines(ctx context.Context, byID map[string]*models.Event, where string, args []any) error {
	for _, table := range childTables {
		query := `SELECT i.event_id, i.description FROM ` + table + ` i JOIN events e ON e.id = i.event_id` +
			where + ` ORDER BY i.event_id, i.item_order`

		rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		for rows.Next() {
			var eventID, line string
			if err := rows.Scan(&eventID, &line); err != nil {
				rows.Close()
				return fmt.Errorf("db error: %w", err)
			}
			e, ok := byID[eventID]
			if !ok {
				continue
			}
			if table == "event_agenda_items" {
				e.Agenda = append(e.Agenda, line)
			} else {
				e.Requirements = append(e.Requirements, line)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, r.dialect.Rebind(queryGetByID), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	byID := map[string]*models.Event{e.ID: e}
	if err := r.loadLines(ctx, byID, " WHERE e.id = ?", []any{id}); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *SQLRepository) insertLines(ctx context.Context, e *models.Event) error {
	for _, table := range childTables {
		lines := e.Agenda
		if table == "event_requirements" {
			lines = e.Requirements
		}
		query := r.dialect.Rebind(`INSERT INTO ` + table + ` (event_id, item_order, description) VALUES (?, ?, ?)`)
		for i, line := range lines {
			if _, err := r.db.ExecContext(ctx, query, e.ID, i, line); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
	}
	return nil
}

func (r *SQLRepository) deleteLines(ctx context.Context, id string) error {
	for _, table := range childTables {
		query := r.dialect.Rebind(`DELETE FROM ` + table + ` WHERE event_id = ?`)
		if _, err := r.db.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.Spots < 0 {
		return nil, fmt.Errorf("event spots %d: %w", event.Spots, common.ErrorValidation)
	}
	e := event.Clone()
	if e.ID == "" {
		e.ID = shared.NewID(shared.PrefixEvent)
	}

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryCreate),
		e.ID, e.Name, e.Image, e.Place, e.Location, e.Summary, e.DateString(), e.Time, string(e.Type),
		e.Spots, dbx.ToMicros(e.CreatedAt), dbx.ToMicros(e.UpdatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("event %s: %w", e.ID, common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.insertLines(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *SQLRepository) Update(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.Spots < 0 {
		return nil, fmt.Errorf("event spots %d: %w", event.Spots, common.ErrorValidation)
	}

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryUpdate),
		event.Name, event.Image, event.Place, event.Location, event.Summary, event.DateString(), event.Time,
		string(event.Type), event.Spots, dbx.ToMicros(event.UpdatedAt), event.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("event %s: %w", event.ID, common.ErrorNotFound)
	}

	if err := r.deleteLines(ctx, event.ID); err != nil {
		return nil, err
	}
	if err := r.insertLines(ctx, event); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, event.ID)
}

func (r *SQLRepository) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryDeleteRg), id); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	if err := r.deleteLines(ctx, id); err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryDelete), id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) AdjustSpots(ctx context.Context, id string, delta int, now time.Time) (*models.Event, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryAdjustSpots), delta, dbx.ToMicros(now), id, delta)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if n == 0 {
		var exists int
		if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(queryExists), id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("event %s: %w", id, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("event %s: %w", id, common.ErrorCapacity)
	}

	return r.GetByID(ctx, id)
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, queryCount).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
