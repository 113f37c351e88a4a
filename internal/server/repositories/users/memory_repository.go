package users

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

// NewTable creates the memdb table holding users.
func NewTable() *memdb.Table[models.User] {
	return memdb.NewTable[models.User](nil)
}

// MemoryRepository implements Repository over a memdb table. It is bound
// to one memdb.Conn and lives only as long as that View or Update.
type MemoryRepository struct {
	conn  *memdb.Conn
	table *memdb.Table[models.User]
}

// NewMemoryRepository binds table to conn.
func NewMemoryRepository(conn *memdb.Conn, table *memdb.Table[models.User]) *MemoryRepository {
	return &MemoryRepository{conn: conn, table: table}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	u := *user
	if u.ID == "" {
		u.ID = shared.NewID(shared.PrefixUser)
	}

	var clash error
	err := r.table.Scan(r.conn, func(v models.User) bool {
		switch {
		case v.ID == u.ID:
			clash = fmt.Errorf("user id %s: %w", u.ID, common.ErrorConflict)
		case sameKey(v.Username, u.Username):
			clash = fmt.Errorf("user %s: %w", u.Username, common.ErrorConflict)
		case sameKey(v.StudentID, u.StudentID):
			clash = fmt.Errorf("student id %s: %w", u.StudentID, common.ErrorConflict)
		case sameKey(v.Email, u.Email):
			clash = fmt.Errorf("email %s: %w", u.Email, common.ErrorConflict)
		}
		return clash == nil
	})
	if err != nil {
		return nil, err
	}
	if clash != nil {
		return nil, clash
	}

	if err := r.table.Put(r.conn, u.ID, u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok, err := r.table.Get(r.conn, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, common.ErrorNotFound)
	}
	return &u, nil
}

func (r *MemoryRepository) find(match func(u *models.User) bool, key string) (*models.User, error) {
	var found *models.User
	err := r.table.Scan(r.conn, func(v models.User) bool {
		if match(&v) {
			found = &v
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("user %s: %w", key, common.ErrorNotFound)
	}
	return found, nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return sameKey(u.Username, username) }, username)
}

func (r *MemoryRepository) GetByStudentID(_ context.Context, studentID string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return sameKey(u.StudentID, studentID) }, studentID)
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return sameKey(u.Email, email) }, email)
}

// sameKey compares two identities under models.FoldKey; empty never matches.
func sameKey(a, b string) bool {
	return a != "" && b != "" && models.FoldKey(a) == models.FoldKey(b)
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.User, error) {
	var result []*models.User
	err := r.table.Scan(r.conn, func(v models.User) bool {
		result = append(result, &v)
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	return r.table.Len(r.conn)
}

func (r *MemoryRepository) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.IsActive = active
	u.UpdatedAt = now
	return r.table.Put(r.conn, u.ID, *u)
}
