package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

func TestCatalog_CreateValidates(t *testing.T) {
	svc := NewCatalogService(repomanager.NewMemoryStore(), logging.Nop())
	ctx := context.Background()

	tests := []struct {
		name  string
		edit  func(in *EventInput)
		field string
	}{
		{"missing name", func(in *EventInput) { in.Name = "   " }, "name is required"},
		{"bad date", func(in *EventInput) { in.Date = "20/11/2026" }, "date must be formatted as 2006-01-02"},
		{"missing date", func(in *EventInput) { in.Date = "" }, "date is required"},
		{"bad type", func(in *EventInput) { in.Type = "hybrid" }, "type must be onsite or online"},
		{"negative spots", func(in *EventInput) { in.Spots = -1 }, "spots must be at least 0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := eventInput("Valid", "2026-11-20", 10)
			tc.edit(&in)

			_, err := svc.Create(ctx, in)
			require.ErrorIs(t, err, common.ErrorValidation)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestCatalog_CreateNormalizes(t *testing.T) {
	svc := NewCatalogService(repomanager.NewMemoryStore(), logging.Nop())
	svc.clock = fixedClock(time.Date(2026, 9, 1, 8, 0, 0, 999, time.UTC))

	in := eventInput("  Spaced  ", "2026-11-20", 10)
	in.Type = " ONLINE "
	e, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "Spaced", e.Name)
	assert.Equal(t, models.EventOnline, e.Type)
	assert.Equal(t, "2026-11-20", e.DateString())
	assert.Equal(t, 0, e.CreatedAt.Nanosecond())
	assert.True(t, e.CreatedAt.Equal(e.UpdatedAt))
}

func TestCatalog_ListFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repomanager.Store) {
		svc := NewCatalogService(store, logging.Nop())
		ctx := context.Background()

		mk := func(name, date string, typ models.EventType) {
			in := eventInput(name, date, 5)
			in.Type = typ
			_, err := svc.Create(ctx, in)
			require.NoError(t, err)
		}
		mk("December online", "2026-12-03", models.EventOnline)
		mk("November onsite", "2026-11-20", models.EventOnsite)
		mk("November online", "2026-11-05", models.EventOnline)

		all, err := svc.List(ctx, models.EventFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "November online", all[0].Name)
		assert.Equal(t, "December online", all[2].Name)

		nov, err := svc.List(ctx, models.EventFilter{Month: 11})
		require.NoError(t, err)
		assert.Len(t, nov, 2)

		both, err := svc.List(ctx, models.EventFilter{Month: 11, Type: models.EventOnline})
		require.NoError(t, err)
		require.Len(t, both, 1)
		assert.Equal(t, "November online", both[0].Name)

		none, err := svc.List(ctx, models.EventFilter{Month: 1})
		require.NoError(t, err)
		assert.Empty(t, none)

		_, err = svc.List(ctx, models.EventFilter{Month: 13})
		assert.ErrorIs(t, err, common.ErrorValidation)
		_, err = svc.List(ctx, models.EventFilter{Type: "hybrid"})
		assert.ErrorIs(t, err, common.ErrorValidation)
	})
}

func TestCatalog_UpdateAndDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repomanager.Store) {
		svc := NewCatalogService(store, logging.Nop())
		ctx := context.Background()

		created, err := svc.Create(ctx, eventInput("Old", "2026-11-20", 5))
		require.NoError(t, err)

		svc.clock = fixedClock(created.CreatedAt.Add(time.Hour))
		in := eventInput("New", "2026-11-21", 8)
		in.Agenda = []string{"Only item"}
		in.Requirements = nil
		updated, err := svc.Update(ctx, created.ID, in)
		require.NoError(t, err)

		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "New", updated.Name)
		assert.Equal(t, 8, updated.Spots)
		assert.Equal(t, []string{"Only item"}, updated.Agenda)
		assert.Empty(t, updated.Requirements)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		_, err = svc.Update(ctx, "evt_missing", in)
		assert.ErrorIs(t, err, common.ErrorNotFound)

		_, err = svc.Update(ctx, created.ID, eventInput("", "2026-11-21", 8))
		assert.ErrorIs(t, err, common.ErrorValidation)

		require.NoError(t, svc.Delete(ctx, created.ID))
		assert.ErrorIs(t, svc.Delete(ctx, created.ID), common.ErrorNotFound)

		_, err = svc.Get(ctx, created.ID)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestCatalog_UpdateOverridesRemainingSpots(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repomanager.Store) {
		ctx := context.Background()
		svc := NewCatalogService(store, logging.Nop())
		regs := NewRegistrationService(store, nil, logging.Nop())

		event := mustCreateEvent(t, store, "Hackathon", 3)
		_, err := regs.Register(ctx, event.ID, student("S01"))
		require.NoError(t, err)
		_, err = regs.Register(ctx, event.ID, student("S02"))
		require.NoError(t, err)

		updated, err := svc.Update(ctx, event.ID, eventInput("Hackathon", "2026-11-20", 0))
		require.NoError(t, err)
		assert.Equal(t, 0, updated.Spots, "the override is stored as given")

		list, err := regs.ListByEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2, "active registrations survive the override")

		_, err = regs.Register(ctx, event.ID, student("S03"))
		assert.ErrorIs(t, err, common.ErrorCapacity)

		_, err = regs.Cancel(ctx, event.ID, "S01")
		require.NoError(t, err)
		got, err := svc.Get(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Spots, "cancelling counts up from the override")

		_, err = svc.Update(ctx, event.ID, eventInput("Hackathon", "2026-11-20", -1))
		assert.ErrorIs(t, err, common.ErrorValidation)
	})
}

func TestCatalog_SetImage(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repomanager.Store) {
		svc := NewCatalogService(store, logging.Nop())
		ctx := context.Background()

		created, err := svc.Create(ctx, eventInput("Pic", "2026-11-20", 5))
		require.NoError(t, err)

		e, err := svc.SetImage(ctx, created.ID, "events/x/cover.png")
		require.NoError(t, err)
		assert.Equal(t, "events/x/cover.png", e.Image)
		assert.Equal(t, created.Agenda, e.Agenda)
		assert.Equal(t, 5, e.Spots)

		_, err = svc.SetImage(ctx, "evt_missing", "k")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestCatalog_StoreFailureIsInternal(t *testing.T) {
	svc := NewCatalogService(brokenStore{err: errors.New("db error: boom")}, logging.Nop())
	ctx := context.Background()

	_, err := svc.List(ctx, models.EventFilter{})
	assert.ErrorIs(t, err, common.ErrorInternal)

	_, err = svc.Create(ctx, eventInput("X", "2026-11-20", 1))
	assert.ErrorIs(t, err, common.ErrorInternal)

	assert.ErrorIs(t, svc.Delete(ctx, "evt_1"), common.ErrorInternal)
}
