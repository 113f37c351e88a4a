package repomanager

import (
	"context"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/events"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/memdb"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/registrations"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/verifications"
)

// MemoryStore keeps everything in process memory. Its state lives as long
// as the value does.
type MemoryStore struct {
	db            *memdb.DB
	users         *memdb.Table[models.User]
	events        *memdb.Table[models.Event]
	registrations *memdb.Table[models.Registration]
	verifications *memdb.Table[models.SignupVerification]
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		db:            memdb.New(),
		users:         users.NewTable(),
		events:        events.NewTable(),
		registrations: registrations.NewTable(),
		verifications: verifications.NewTable(),
	}
}

type memoryRepos struct {
	store *MemoryStore
	conn  *memdb.Conn
}

func (r memoryRepos) Users() users.Repository {
	return users.NewMemoryRepository(r.conn, r.store.users)
}

func (r memoryRepos) Events() events.Repository {
	return events.NewMemoryRepository(r.conn, r.store.events, r.store.registrations)
}

func (r memoryRepos) Registrations() registrations.Repository {
	return registrations.NewMemoryRepository(r.conn, r.store.registrations)
}

func (r memoryRepos) Verifications() verifications.Repository {
	return verifications.NewMemoryRepository(r.conn, r.store.verifications)
}

func (s *MemoryStore) View(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return s.db.View(ctx, func(c *memdb.Conn) error {
		return fn(ctx, memoryRepos{store: s, conn: c})
	})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return s.db.Update(ctx, func(c *memdb.Conn) error {
		return fn(ctx, memoryRepos{store: s, conn: c})
	})
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
