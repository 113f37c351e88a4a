// Package users stores accounts.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// Repository is the account store. Username, student id and email are
// matched on models.FoldKey; a missing row is common.ErrorNotFound and a
// clash on any of them is common.ErrorConflict. Empty student ids and emails
// never match or clash.
type Repository interface {
	// Create stores user, assigning an id when user.ID is empty.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByStudentID(ctx context.Context, studentID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	SetActive(ctx context.Context, id string, active bool, now time.Time) error
}
