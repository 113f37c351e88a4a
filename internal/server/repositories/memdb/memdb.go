// Package memdb is the in-process storage engine behind the memory
// backend: tables of values guarded by one reader/writer lock, with
// all-or-nothing write units.
//
// Every read hands out a copy and every write stores a copy, so callers may
// mutate whatever they get back without touching stored state.
package memdb

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/eventhub/internal/dbx"
)

// ErrClosed is returned when a Conn is used after its View or Update ended.
var ErrClosed = errors.New("memdb: connection closed")

// DB serializes writers and lets readers share.
type DB struct {
	mu sync.RWMutex
}

// New returns an empty DB.
func New() *DB {
	return &DB{}
}

// View runs fn with a read-only Conn. Views run concurrently with each
// other and never see a write unit half applied.
func (db *DB) View(ctx context.Context, fn func(c *Conn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	c := &Conn{}
	defer c.close()
	return fn(c)
}

// Update runs fn with a writable Conn while holding the exclusive lock.
// If fn returns an error or panics, every Put and Delete it made is undone
// in reverse order before the lock is released.
func (db *DB) Update(ctx context.Context, fn func(c *Conn) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	c := &Conn{writable: true}
	defer func() {
		if p := recover(); p != nil {
			c.rollback()
			c.close()
			panic(p)
		}
		if err != nil {
			c.rollback()
		}
		c.close()
	}()

	err = fn(c)
	return err
}

// Conn is a handle valid for the duration of one View or Update.
type Conn struct {
	writable bool
	closed   bool
	undo     []func()
}

func (c *Conn) checkRead() error {
	if c.closed {
		return ErrClosed
	}
	return nil
}

func (c *Conn) checkWrite() error {
	if c.closed {
		return ErrClosed
	}
	if !c.writable {
		return dbx.ErrReadOnly
	}
	return nil
}

func (c *Conn) rollback() {
	for i := len(c.undo) - 1; i >= 0; i-- {
		c.undo[i]()
	}
	c.undo = nil
}

func (c *Conn) close() {
	c.closed = true
	c.undo = nil
}
