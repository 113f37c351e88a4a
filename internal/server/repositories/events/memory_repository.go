package events

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/memdb"
	"github.com/dmitrijs2005/eventhub/internal/shared"
)

// NewTable creates the memdb table holding events.
func NewTable() *memdb.Table[models.Event] {
	return memdb.NewTable(func(e models.Event) models.Event { return *e.Clone() })
}

// MemoryRepository implements Repository over memdb tables. Deleting an
// event also deletes its rows from the registrations table.
type MemoryRepository struct {
	conn          *memdb.Conn
	events        *memdb.Table[models.Event]
	registrations *memdb.Table[models.Registration]
}

// NewMemoryRepository binds the tables to conn.
func NewMemoryRepository(conn *memdb.Conn, events *memdb.Table[models.Event], registrations *memdb.Table[models.Registration]) *MemoryRepository {
	return &MemoryRepository{conn: conn, events: events, registrations: registrations}
}

func (r *MemoryRepository) List(_ context.Context, filter models.EventFilter) ([]*models.Event, error) {
	result := []*models.Event{}
	err := r.events.Scan(r.conn, func(e models.Event) bool {
		if filter.Matches(&e) {
			result = append(result, &e)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return models.EventBefore(result[i], result[j]) })
	return result, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Event, error) {
	e, ok, err := r.events.Get(r.conn, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, common.ErrorNotFound)
	}
	return &e, nil
}

func (r *MemoryRepository) Create(_ context.Context, event *models.Event) (*models.Event, error) {
	if event.Spots < 0 {
		return nil, fmt.Errorf("event spots %d: %w", event.Spots, common.ErrorValidation)
	}
	e := event.Clone()
	if e.ID == "" {
		e.ID = shared.NewID(shared.PrefixEvent)
	}

	_, exists, err := r.events.Get(r.conn, e.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("event %s: %w", e.ID, common.ErrorConflict)
	}

	if err := r.events.Put(r.conn, e.ID, *e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *MemoryRepository) Update(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.Spots < 0 {
		return nil, fmt.Errorf("event spots %d: %w", event.Spots, common.ErrorValidation)
	}
	stored, err := r.GetByID(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	e := event.Clone()
	e.CreatedAt = stored.CreatedAt
	if err := r.events.Put(r.conn, e.ID, *e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	var regIDs []string
	err := r.registrations.Scan(r.conn, func(reg models.Registration) bool {
		if reg.EventID == id {
			regIDs = append(regIDs, reg.ID)
		}
		return true
	})
	if err != nil {
		return false, err
	}
	for _, regID := range regIDs {
		if _, err := r.registrations.Delete(r.conn, regID); err != nil {
			return false, err
		}
	}

	return r.events.Delete(r.conn, id)
}

func (r *MemoryRepository) AdjustSpots(ctx context.Context, id string, delta int, now time.Time) (*models.Event, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Spots+delta < 0 {
		return nil, fmt.Errorf("event %s: %w", id, common.ErrorCapacity)
	}

	e.Spots += delta
	e.UpdatedAt = now
	if err := r.events.Put(r.conn, e.ID, *e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	return r.events.Len(r.conn)
}
