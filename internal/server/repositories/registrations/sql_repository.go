package registrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/shared"
)

const regColumns = `id, event_id, full_name, student_id, email, career, semester, phone, status, created_at`

const queryCreate = `INSERT INTO event_registrations (` + regColumns + `, student_key)
	 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const queryUpdate = `UPDATE event_registrations
	 SET full_name = ?, student_id = ?, student_key = ?, email = ?, career = ?, semester = ?, phone = ?, status = ?
	 WHERE id = ?`

const (
	queryGetByID         = `SELECT ` + regColumns + ` FROM event_registrations WHERE id = ?`
	queryGetByEventAndSt = `SELECT ` + regColumns + ` FROM event_registrations WHERE event_id = ? AND student_key = ?`
	queryCountSince      = `SELECT COUNT(*) FROM event_registrations WHERE created_at >= ?`
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

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var (
		reg       models.Registration
		status    string
		createdAt int64
	)
	err := row.Scan(&reg.ID, &reg.EventID, &reg.FullName, &reg.StudentID, &reg.Email, &reg.Career, &reg.Semester,
		&reg.Phone, &status, &createdAt)
	if err != nil {
		return nil, err
	}
	reg.Status = models.RegistrationStatus(status)
	reg.CreatedAt = dbx.FromMicros(createdAt)
	return &reg, nil
}

func (r *SQLRepository) Create(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	out := *reg
	if out.ID == "" {
		out.ID = shared.NewID(shared.PrefixRegistration)
	}

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryCreate),
		out.ID, out.EventID, out.FullName, out.StudentID, out.Email, out.Career, out.Semester, out.Phone,
		string(out.Status), dbx.ToMicros(out.CreatedAt), models.FoldKey(out.StudentID))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("registration for %s/%s: %w", out.EventID, out.StudentID, common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

func (r *SQLRepository) Update(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(queryUpdate),
		reg.FullName, reg.StudentID, models.FoldKey(reg.StudentID), reg.Email, reg.Career, reg.Semester, reg.Phone,
		string(reg.Status), reg.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("registration %s: %w", reg.ID, common.ErrorConflict)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("registration %s: %w", reg.ID, common.ErrorNotFound)
	}
	return r.GetByID(ctx, reg.ID)
}

func (r *SQLRepository) getOne(ctx context.Context, key, query string, args ...any) (*models.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registration %s: %w", key, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return reg, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	return r.getOne(ctx, id, queryGetByID, id)
}

func (r *SQLRepository) GetByEventAndStudent(ctx context.Context, eventID, studentID string) (*models.Registration, error) {
	return r.getOne(ctx, eventID+"/"+studentID, queryGetByEventAndSt, eventID, models.FoldKey(studentID))
}

func (r *SQLRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]*models.Registration, error) {
	var (
		conds []string
		args  []any
	)
	if filter.EventID != "" {
		conds = append(conds, "event_id = ?")
		args = append(args, filter.EventID)
	}
	if filter.StudentID != "" {
		conds = append(conds, "student_key = ?")
		args = append(args, models.FoldKey(filter.StudentID))
	}

	query := `SELECT ` + regColumns + ` FROM event_registrations`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, ` + r.dialect.OrderText("id") + ` DESC`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []*models.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *SQLRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(queryCountSince), dbx.ToMicros(since)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
