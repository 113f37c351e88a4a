// Package repomanager builds the store the services run against: a set of
// entity repositories plus the View/Update units that scope them.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/eventhub/internal/server/repositories/events"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/registrations"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/verifications"
)

// Repositories vends entity repositories bound to one View or Update.
// They must not be used after the function they were handed to returns.
type Repositories interface {
	Users() users.Repository
	Events() events.Repository
	Registrations() registrations.Repository
	Verifications() verifications.Repository
}

// Store is the persistence boundary. Both implementations share one
// exclusive write lock per instance, so Update calls never interleave.
type Store interface {
	// View runs fn against read-only repositories. Writes fail with
	// dbx.ErrReadOnly. A view never observes half of an Update.
	View(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	// Update runs fn as a single all-or-nothing unit: an error or panic
	// from fn discards every write fn made.
	Update(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}
