// Package events stores the event catalog together with each event's
// ordered agenda and requirement lines.
package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// Repository is the catalog store. Listings are ordered by date, time and
// id ascending.
type Repository interface {
	List(ctx context.Context, filter models.EventFilter) ([]*models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	// Create stores event, assigning an id when event.ID is empty.
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	// Update replaces every mutable field of the stored event; CreatedAt is
	// kept. A missing event is common.ErrorNotFound.
	Update(ctx context.Context, event *models.Event) (*models.Event, error)
	// Delete removes the event with its registrations and reports whether
	// the event existed.
	Delete(ctx context.Context, id string) (bool, error)
	// AdjustSpots adds delta to the remaining spots and stamps UpdatedAt.
	// It fails with common.ErrorCapacity, leaving the event untouched, when
	// the result would be negative.
	AdjustSpots(ctx context.Context, id string, delta int, now time.Time) (*models.Event, error)
	Count(ctx context.Context) (int, error)
}
