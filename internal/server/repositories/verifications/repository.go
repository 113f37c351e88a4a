// Package verifications stores self-registrations waiting for their SMS
// code.
package verifications

import (
	"context"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// Repository is the pending signup store. A missing row is
// common.ErrorNotFound.
type Repository interface {
	// Create stores v, assigning an id when v.ID is empty.
	Create(ctx context.Context, v *models.SignupVerification) (*models.SignupVerification, error)
	GetByID(ctx context.Context, id string) (*models.SignupVerification, error)
	SetAttempts(ctx context.Context, id string, attempts int) error
	// Delete reports whether the row existed.
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteExpired removes every row whose code expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
