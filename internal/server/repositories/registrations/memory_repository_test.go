package registrations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/memdb"
)

func withRepo(t *testing.T, db *memdb.DB, tbl *memdb.Table[models.Registration], fn func(r *MemoryRepository) error) error {
	t.Helper()
	return db.Update(context.Background(), func(c *memdb.Conn) error {
		return fn(NewMemoryRepository(c, tbl))
	})
}

func TestMemory_UniquePairIgnoresCase(t *testing.T) {
	ctx := context.Background()
	db, tbl := memdb.New(), NewTable()

	require.NoError(t, withRepo(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.Registration{EventID: "evt_1", StudentID: "A001", Status: models.StatusRegistered})
		return err
	}))

	err := withRepo(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.Registration{EventID: "evt_1", StudentID: "a001"})
		return err
	})
	assert.ErrorIs(t, err, common.ErrorConflict)

	require.NoError(t, withRepo(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.Registration{EventID: "evt_2", StudentID: "a001"})
		return err
	}), "same student may enroll in another event")

	require.NoError(t, withRepo(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.Registration{EventID: "evt_1", StudentID: "É01"})
		return err
	}))
	err = withRepo(t, db, tbl, func(r *MemoryRepository) error {
		_, err := r.Create(ctx, &models.Registration{EventID: "evt_1", StudentID: "é01"})
		return err
	})
	assert.ErrorIs(t, err, common.ErrorConflict, "non-ASCII ids fold too")
}

func TestMemory_UpdateKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	db, tbl := memdb.New(), NewTable()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var created *models.Registration
	require.NoError(t, withRepo(t, db, tbl, func(r *MemoryRepository) error {
		var err error
		created, err = r.Create(ctx, &models.Registration{EventID: "evt_1", StudentID: "A001", Status: models.StatusRegistered, CreatedAt: t0})
		return err
	}))

	require.NoError(t, withRepo(t, db, tbl, func(r *MemoryRepository) error {
		upd := *created
		upd.Status = models.StatusCancelled
		upd.EventID = "evt_other"
		upd.CreatedAt = t0.Add(time.Hour)
		got, err := r.Update(ctx, &upd)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", got.EventID)
		assert.Equal(t, t0, got.CreatedAt)
		assert.Equal(t, models.StatusCancelled, got.Status)

		_, err = r.Update(ctx, &models.Registration{ID: "reg_missing"})
		assert.ErrorIs(t, err, common.ErrorNotFound)
		return nil
	}))
}

func TestMemory_ListOrderAndCount(t *testing.T) {
	ctx := context.Background()
	db, tbl := memdb.New(), NewTable()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, withRepo(t, db, tbl, func(r *MemoryRepository) error {
		rows := []models.Registration{
			{ID: "reg_a", EventID: "evt_1", StudentID: "S1", CreatedAt: t0},
			{ID: "reg_b", EventID: "evt_1", StudentID: "S2", CreatedAt: t0.Add(time.Minute)},
			{ID: "reg_c", EventID: "evt_2", StudentID: "S1", CreatedAt: t0.Add(time.Minute)},
			{ID: "reg_d", EventID: "evt_2", StudentID: "S3", CreatedAt: t0.Add(-time.Hour)},
		}
		for i := range rows {
			if _, err := r.Create(ctx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, withRepo(t, db, tbl, func(r *MemoryRepository) error {
		all, err := r.List(ctx, models.RegistrationFilter{})
		require.NoError(t, err)
		var ids []string
		for _, reg := range all {
			ids = append(ids, reg.ID)
		}
		assert.Equal(t, []string{"reg_c", "reg_b", "reg_a", "reg_d"}, ids)

		mine, err := r.List(ctx, models.RegistrationFilter{StudentID: "s1"})
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		n, err := r.CountSince(ctx, t0)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		reg, err := r.GetByEventAndStudent(ctx, "evt_2", "s3")
		require.NoError(t, err)
		assert.Equal(t, "reg_d", reg.ID)

		_, err = r.GetByEventAndStudent(ctx, "evt_1", "s3")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		return nil
	}))
}
