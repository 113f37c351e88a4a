// Package registrations stores enrollments of students in events.
package registrations

import (
	"context"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// Repository is the registration store. There is at most one row per
// (event, models.FoldKey(student id)); a second Create for the pair is
// common.ErrorConflict.
type Repository interface {
	// Create stores reg, assigning an id when reg.ID is empty.
	Create(ctx context.Context, reg *models.Registration) (*models.Registration, error)
	// Update replaces the snapshot fields and status; EventID and CreatedAt
	// are kept. A missing row is common.ErrorNotFound.
	Update(ctx context.Context, reg *models.Registration) (*models.Registration, error)
	GetByID(ctx context.Context, id string) (*models.Registration, error)
	GetByEventAndStudent(ctx context.Context, eventID, studentID string) (*models.Registration, error)
	// List returns matching rows newest first.
	List(ctx context.Context, filter models.RegistrationFilter) ([]*models.Registration, error)
	// CountSince counts rows of any status created at or after since.
	CountSince(ctx context.Context, since time.Time) (int, error)
}
