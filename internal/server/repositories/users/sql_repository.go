package users

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

const userColumns = `id, username, full_name, email, student_id, career, semester, phone, phone_verified,
	password_hash, role, is_active, created_at, updated_at`

const queryCreate = `INSERT INTO users (` + userColumns + `, username_key, student_key, email_key)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const (
	queryGetByID        = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	queryGetByUsername  = `SELECT ` + userColumns + ` FROM users WHERE username_key = ?`
	queryGetByStudentID = `SELECT ` + userColumns + ` FROM users WHERE student_key = ?`
	queryGetByEmail     = `SELECT ` + userColumns + ` FROM users WHERE email_key = ?`
	queryCount          = `SELECT COUNT(*) FROM users`
	querySetActive      = `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`
)

// SQLRepository implements Repository on top of database/sql.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// NewSQLRepository binds a repository to db (a *sql.DB or *sql.Tx).
func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                    models.User
		studentID            sql.NullString
		role                 string
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &studentID, &u.Career, &u.Semester,
		&u.Phone, &u.PhoneVerified, &u.PasswordHash, &role, &u.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	u.StudentID = studentID.String
	u.Role = models.Role(role)
	u.CreatedAt = dbx.FromMicros(createdAt)
	u.UpdatedAt = dbx.FromMicros(updatedAt)
	return &u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// foldKey is the stored key of an optional identity; empty stays NULL so
// that accounts without one never clash.
func foldKey(s string) sql.NullString {
	return nullable(models.FoldKey(s))
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	u := *user
	if u.ID == "" {
		u.ID = shared.NewID(shared.PrefixUser)
	}

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryCreate),
		u.ID, u.Username, u.FullName, u.Email, nullable(u.StudentID), u.Career, u.Semester,
		u.Phone, u.PhoneVerified, u.PasswordHash, string(u.Role), u.IsActive,
		dbx.ToMicros(u.CreatedAt), dbx.ToMicros(u.UpdatedAt),
		models.FoldKey(u.Username), foldKey(u.StudentID), foldKey(u.Email))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", u.Username, common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &u, nil
}

func (r *SQLRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %v: %w", arg, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, queryGetByID, id)
}

func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, queryGetByUsername, models.FoldKey(username))
}

func (r *SQLRepository) GetByStudentID(ctx context.Context, studentID string) (*models.User, error) {
	return r.getOne(ctx, queryGetByStudentID, models.FoldKey(studentID))
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, queryGetByEmail, models.FoldKey(email))
}

func (r *SQLRepository) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, ` + r.dialect.OrderText("id")

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, queryCount).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(querySetActive), active, dbx.ToMicros(now), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %s: %w", id, common.ErrorNotFound)
	}
	return nil
}
