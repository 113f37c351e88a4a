package verifications

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/memdb"
	"github.com/dmitrijs2005/eventhub/internal/shared"
)

// NewTable creates the memdb table holding pending signups.
func NewTable() *memdb.Table[models.SignupVerification] {
	return memdb.NewTable[models.SignupVerification](nil)
}

// MemoryRepository implements Repository over a memdb table.
type MemoryRepository struct {
	conn  *memdb.Conn
	table *memdb.Table[models.SignupVerification]
}

func NewMemoryRepository(conn *memdb.Conn, table *memdb.Table[models.SignupVerification]) *MemoryRepository {
	return &MemoryRepository{conn: conn, table: table}
}

func (r *MemoryRepository) Create(_ context.Context, v *models.SignupVerification) (*models.SignupVerification, error) {
	out := *v
	if out.ID == "" {
		out.ID = shared.NewID(shared.PrefixVerification)
	}

	_, exists, err := r.table.Get(r.conn, out.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("verification %s: %w", out.ID, common.ErrorConflict)
	}
	if err := r.table.Put(r.conn, out.ID, out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.SignupVerification, error) {
	v, ok, err := r.table.Get(r.conn, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("verification %s: %w", id, common.ErrorNotFound)
	}
	return &v, nil
}

func (r *MemoryRepository) SetAttempts(ctx context.Context, id string, attempts int) error {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	v.Attempts = attempts
	return r.table.Put(r.conn, id, *v)
}

func (r *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	return r.table.Delete(r.conn, id)
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	var expired []string
	err := r.table.Scan(r.conn, func(v models.SignupVerification) bool {
		if v.Expired(now) {
			expired = append(expired, v.ID)
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	for _, id := range expired {
		if _, err := r.table.Delete(r.conn, id); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}
