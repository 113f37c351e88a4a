package verifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/shared"
)

const verificationColumns = `id, code, full_name, student_id, email, career, semester, phone, attempts, expires_at, created_at`

const queryCreate = `INSERT INTO signup_verifications (` + verificationColumns + `)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const (
	queryGetByID       = `SELECT ` + verificationColumns + ` FROM signup_verifications WHERE id = ?`
	querySetAttempts   = `UPDATE signup_verifications SET attempts = ? WHERE id = ?`
	queryDelete        = `DELETE FROM signup_verifications WHERE id = ?`
	queryDeleteExpired = `DELETE FROM signup_verifications WHERE expires_at <= ?`
)

// SQLRepository implements Repository on top of database/sql.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Create(ctx context.Context, v *models.SignupVerification) (*models.SignupVerification, error) {
	out := *v
	if out.ID == "" {
		out.ID = shared.NewID(shared.PrefixVerification)
	}

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryCreate),
		out.ID, out.Code, out.FullName, out.StudentID, out.Email, out.Career, out.Semester, out.Phone,
		out.Attempts, dbx.ToMicros(out.ExpiresAt), dbx.ToMicros(out.CreatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("verification %s: %w", out.ID, common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.SignupVerification, error) {
	var (
		v                    models.SignupVerification
		expiresAt, createdAt int64
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(queryGetByID), id).Scan(
		&v.ID, &v.Code, &v.FullName, &v.StudentID, &v.Email, &v.Career, &v.Semester, &v.Phone,
		&v.Attempts, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("verification %s: %w", id, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	v.ExpiresAt = dbx.FromMicros(expiresAt)
	v.CreatedAt = dbx.FromMicros(createdAt)
	return &v, nil
}

func (r *SQLRepository) SetAttempts(ctx context.Context, id string, attempts int) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(querySetAttempts), attempts, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("verification %s: %w", id, common.ErrorNotFound)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryDelete), id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryDeleteExpired), dbx.ToMicros(now))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return int(n), nil
}
