package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/memdb"
)

func update(t *testing.T, db *memdb.DB, tbl *memdb.Table[models.User], fn func(r *MemoryRepository) error) error {
	t.Helper()
	return db.Update(context.Background(), func(c *memdb.Conn) error {
		return fn(NewMemoryRepository(c, tbl))
	})
}

func view(t *testing.T, db *memdb.DB, tbl *memdb.Table[models.User], fn func(r *MemoryRepository) error) error {
	t.Helper()
	return db.View(context.Background(), func(c *memdb.Conn) error {
		return fn(NewMemoryRepository(c, tbl))
	})
}

func TestMemory_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	db, tbl := memdb.New(), NewTable()

	var created *models.User
	require.NoError(t, update(t, db, tbl, func(r *MemoryRepository) error {
		var err error
		created, err = r.Create(ctx, &models.User{Username: "Alice", StudentID: "A001", Role: models.RoleUser})
		return err
	}))
	assert.Regexp(t, `^usr_`, created.ID)

	require.NoError(t, view(t, db, tbl, func(r *MemoryRepository) error {
		u, err := r.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, created.ID, u.ID)

		u, err = r.GetByStudentID(ctx, "a001")
		require.NoError(t, err)
		assert.Equal(t, created.ID, u.ID)

		_, err = r.GetByStudentID(ctx, "")
		assert.ErrorIs(t, err, common.ErrorNotFound)

		_, err = r.GetByID(ctx, "usr_missing")
		assert.ErrorIs(t, err, common.ErrorNotFound)

		n, err := r.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return nil
	}))
}

func TestMemory_CreateConflicts(t *testing.T) {
	ctx := context.Background()
	db, tbl := memdb.New(), NewTable()

	require.NoError(t, update(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.User{Username: "alice", StudentID: "A001"})
		return err
	}))

	err := update(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.User{Username: "ALICE", StudentID: "B002"})
		return err
	})
	assert.ErrorIs(t, err, common.ErrorConflict)

	err = update(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.User{Username: "bob", StudentID: "a001"})
		return err
	})
	assert.ErrorIs(t, err, common.ErrorConflict)

	err = update(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.User{Username: "Édgar", StudentID: "C003", Email: "Édgar@Uni.mx"})
		return err
	})
	require.NoError(t, err)

	err = update(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.User{Username: "édgar", StudentID: "D004"})
		return err
	})
	assert.ErrorIs(t, err, common.ErrorConflict, "non-ASCII usernames fold too")

	err = update(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.User{Username: "edgar2", StudentID: "D004", Email: "édgar@uni.mx"})
		return err
	})
	assert.ErrorIs(t, err, common.ErrorConflict)

	require.NoError(t, view(t, db, tbl, func(r *MemoryRepository) error {
		u, err := r.GetByEmail(ctx, "ÉDGAR@UNI.MX")
		require.NoError(t, err)
		assert.Equal(t, "Édgar", u.Username)
		_, err = r.GetByEmail(ctx, "")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		return nil
	}))

	require.NoError(t, update(t, db, tbl, func(r *MemoryRepository) error {
		if _, err := r.Create(ctx, &models.User{Username: "admin1", Role: models.RoleAdmin}); err != nil {
			return err
		}
		_, err := r.Create(ctx, &models.User{Username: "admin2", Role: models.RoleAdmin})
		return err
	}), "users without a student id or email never clash on them")
}

func TestMemory_SetActiveAndList(t *testing.T) {
	ctx := context.Background()
	db, tbl := memdb.New(), NewTable()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, update(t, db, tbl, func(r *MemoryRepository) error {
		for i, name := range []string{"b", "a"} {
			_, err := r.Create(ctx, &models.User{ID: "usr_" + name, Username: name, IsActive: true,
				CreatedAt: t0.Add(time.Duration(i) * time.Second)})
			if err != nil {
				return err
			}
		}
		return r.SetActive(ctx, "usr_a", false, t0.Add(time.Hour))
	}))

	require.NoError(t, view(t, db, tbl, func(r *MemoryRepository) error {
		list, err := r.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "usr_b", list[0].ID)
		assert.False(t, list[1].IsActive)
		assert.Equal(t, t0.Add(time.Hour), list[1].UpdatedAt)

		assert.ErrorIs(t, r.SetActive(ctx, "usr_a", true, t0), dbx.ErrReadOnly)
		return nil
	}))

	err := update(t, db, tbl, func(r *MemoryRepository) error {
		return r.SetActive(ctx, "usr_zzz", true, t0)
	})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
