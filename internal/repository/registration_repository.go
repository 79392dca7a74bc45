package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/school-event-seating/internal/model"
)

// RegistrationRepo provides CRUD operations for registrations.  The
// child_name_key column holds the folded child name (see model.NameKey) and
// carries a unique index together with child_class, so duplicate sign ups
// are rejected by the database itself.
type RegistrationRepo struct {
	db DBTX
}

// NewRegistrationRepo returns a new RegistrationRepo bound to the given handle.
func NewRegistrationRepo(db DBTX) *RegistrationRepo { return &RegistrationRepo{db: db} }

const registrationColumns = `id, parent_name, child_name, child_class, created_at`

func scanRegistration(sc rowScanner) (model.Registration, error) {
	var r model.Registration
	err := sc.Scan(&r.ID, &r.ParentName, &r.ChildName, &r.ChildClass, &r.CreatedAt)
	return r, err
}

func (r *RegistrationRepo) queryOne(ctx context.Context, q string, args ...any) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return &reg, nil
}

// GetRegistration fetches a registration by id.
func (r *RegistrationRepo) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	return r.queryOne(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
}

// FindRegistrationByKey fetches the registration holding the given folded
// name and class, if any.
func (r *RegistrationRepo) FindRegistrationByKey(ctx context.Context, nameKey, class string) (*model.Registration, error) {
	return r.queryOne(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE child_name_key = ? AND child_class = ?`,
		nameKey, class)
}

// SearchRegistration returns the oldest registration in class whose child
// name contains namePart, ignoring case.
func (r *RegistrationRepo) SearchRegistration(ctx context.Context, namePart, class string) (*model.Registration, error) {
	const q = `SELECT ` + registrationColumns + `
	           FROM registrations
	           WHERE child_name_key LIKE ? AND child_class = ?
	           ORDER BY created_at, id
	           LIMIT 1`
	pattern := "%" + escapeLike(model.NameKey(namePart)) + "%"
	return r.queryOne(ctx, q, pattern, class)
}

// ListRegistrations returns every registration in creation order.
func (r *RegistrationRepo) ListRegistrations(ctx context.Context) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+registrationColumns+` FROM registrations ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]model.Registration, 0)
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

// newRegistrationID returns a UUIDv7.  Its string form sorts in creation
// order, so "ORDER BY created_at, id" is stable for inserts sharing a
// timestamp.
func newRegistrationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// CreateRegistration inserts reg.  An empty ID is filled with a new UUIDv7 and
// CreatedAt is read back from the database.  A collision on the
// (child_name_key, child_class) index yields ErrDuplicate.
func (r *RegistrationRepo) CreateRegistration(ctx context.Context, reg *model.Registration) error {
	if reg.ID == "" {
		reg.ID = newRegistrationID()
	}
	const q = `INSERT INTO registrations (id, parent_name, child_name, child_name_key, child_class)
	           VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, reg.ID, reg.ParentName, reg.ChildName, reg.Key(), reg.ChildClass); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return r.db.QueryRowContext(ctx, `SELECT created_at FROM registrations WHERE id = ?`, reg.ID).Scan(&reg.CreatedAt)
}

// UpdateRegistration rewrites the name, class and parent of an existing
// registration.  MySQL reports zero affected rows when nothing changed, so
// a missing id is not detected here; callers check existence first.
func (r *RegistrationRepo) UpdateRegistration(ctx context.Context, reg *model.Registration) error {
	const q = `UPDATE registrations
	           SET parent_name = ?, child_name = ?, child_name_key = ?, child_class = ?
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, reg.ParentName, reg.ChildName, reg.Key(), reg.ChildClass, reg.ID); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// DeleteRegistration removes a registration.  Its seats must already be
// released; the assigned_to foreign key rejects the delete otherwise and
// ErrConflict is returned.
func (r *RegistrationRepo) DeleteRegistration(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, id)
	if err != nil {
		if isRowReferenced(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRegistrationNotFound
	}
	return nil
}

// DeleteAllRegistrations empties the table.  Used when reseeding the chart.
func (r *RegistrationRepo) DeleteAllRegistrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM registrations`)
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
