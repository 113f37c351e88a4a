package registrations

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

// NewTable creates the memdb table holding registrations.
func NewTable() *memdb.Table[models.Registration] {
	return memdb.NewTable[models.Registration](nil)
}

// MemoryRepository implements Repository over a memdb table.
type MemoryRepository struct {
	conn  *memdb.Conn
	table *memdb.Table[models.Registration]
}

// NewMemoryRepository binds table to conn.
func NewMemoryRepository(conn *memdb.Conn, table *memdb.Table[models.Registration]) *MemoryRepository {
	return &MemoryRepository{conn: conn, table: table}
}

// findPair returns the row for (eventID, studentID) other than skipID.
func (r *MemoryRepository) findPair(eventID, studentID, skipID string) (*models.Registration, error) {
	var found *models.Registration
	err := r.table.Scan(r.conn, func(v models.Registration) bool {
		if v.ID != skipID && v.EventID == eventID && models.FoldKey(v.StudentID) == models.FoldKey(studentID) {
			found = &v
			return false
		}
		return true
	})
	return found, err
}

func (r *MemoryRepository) Create(_ context.Context, reg *models.Registration) (*models.Registration, error) {
	out := *reg
	if out.ID == "" {
		out.ID = shared.NewID(shared.PrefixRegistration)
	}

	_, exists, err := r.table.Get(r.conn, out.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("registration %s: %w", out.ID, common.ErrorConflict)
	}
	dup, err := r.findPair(out.EventID, out.StudentID, "")
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return nil, fmt.Errorf("registration for %s/%s: %w", out.EventID, out.StudentID, common.ErrorConflict)
	}

	if err := r.table.Put(r.conn, out.ID, out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MemoryRepository) Update(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	stored, err := r.GetByID(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	dup, err := r.findPair(stored.EventID, reg.StudentID, reg.ID)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return nil, fmt.Errorf("registration %s: %w", reg.ID, common.ErrorConflict)
	}

	out := *reg
	out.EventID = stored.EventID
	out.CreatedAt = stored.CreatedAt
	if err := r.table.Put(r.conn, out.ID, out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Registration, error) {
	reg, ok, err := r.table.Get(r.conn, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", id, common.ErrorNotFound)
	}
	return &reg, nil
}

func (r *MemoryRepository) GetByEventAndStudent(_ context.Context, eventID, studentID string) (*models.Registration, error) {
	reg, err := r.findPair(eventID, studentID, "")
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("registration %s/%s: %w", eventID, studentID, common.ErrorNotFound)
	}
	return reg, nil
}

func (r *MemoryRepository) List(_ context.Context, filter models.RegistrationFilter) ([]*models.Registration, error) {
	result := []*models.Registration{}
	err := r.table.Scan(r.conn, func(v models.Registration) bool {
		if filter.EventID != "" && v.EventID != filter.EventID {
			return true
		}
		if filter.StudentID != "" && models.FoldKey(v.StudentID) != models.FoldKey(filter.StudentID) {
			return true
		}
		result = append(result, &v)
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return models.RegistrationAfter(result[i], result[j]) })
	return result, nil
}

func (r *MemoryRepository) CountSince(_ context.Context, since time.Time) (int, error) {
	n := 0
	err := r.table.Scan(r.conn, func(v models.Registration) bool {
		if !v.CreatedAt.Before(since) {
			n++
		}
		return true
	})
	return n, err
}
