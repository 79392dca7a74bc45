package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel comparisons
	"fmt"          // fmt wraps sentinel errors
	"strings"      // strings builds IN lists

	"github.com/iliyamo/school-event-seating/internal/model"
)

const seatColumns = `id, row_name, seat_number, is_occupied, is_blocked, assigned_to, updated_at`

// SeatRepo provides methods to work with seats in the database.
type SeatRepo struct {
	db DBTX
}

// NewSeatRepo constructs a SeatRepo with the given DB handle or transaction.
func NewSeatRepo(db DBTX) *SeatRepo {
	return &SeatRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(sc rowScanner) (model.Seat, error) {
	var s model.Seat
	var assigned sql.NullString
	if err := sc.Scan(&s.ID, &s.RowName, &s.SeatNumber, &s.IsOccupied, &s.IsBlocked, &assigned, &s.UpdatedAt); err != nil {
		return model.Seat{}, err
	}
	if assigned.Valid {
		v := assigned.String
		s.AssignedTo = &v
	}
	return s, nil
}

func (r *SeatRepo) querySeats(ctx context.Context, q string, args ...any) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]model.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateBulk inserts multiple seats in a single statement.  Seats are
// provisioned free and unblocked unless IsBlocked is set.  An id or
// (row, number) that already exists yields ErrDuplicate and nothing is
// inserted.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO seats (id, row_name, seat_number, is_blocked) VALUES `)
	args := make([]any, 0, len(seats)*4)
	for i, seat := range seats {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?)")
		args = append(args, seat.ID, seat.RowName, seat.SeatNumber, seat.IsBlocked)
	}
	if _, err := r.db.ExecContext(ctx, b.String(), args...); err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("create seats: %w", ErrDuplicate)
		}
		return err
	}
	return nil
}

// DeleteAllSeats removes the whole chart.  Registrations must be removed or
// released first because of the assigned_to foreign key.
func (r *SeatRepo) DeleteAllSeats(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM seats`)
	return err
}

// GetSeat retrieves a seat by its id.
func (r *SeatRepo) GetSeat(ctx context.Context, id string) (*model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seats WHERE id = ?`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListSeats retrieves the whole chart ordered by row_name then seat_number.
func (r *SeatRepo) ListSeats(ctx context.Context) ([]model.Seat, error) {
	return r.querySeats(ctx, `SELECT `+seatColumns+` FROM seats ORDER BY row_name, seat_number`)
}

// SeatsByRegistration returns the seats held by a registration in chart order.
func (r *SeatRepo) SeatsByRegistration(ctx context.Context, registrationID string) ([]model.Seat, error) {
	return r.querySeats(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE assigned_to = ? ORDER BY row_name, seat_number`,
		registrationID)
}

// FindAvailableSeats returns up to limit free, unblocked seats at or behind
// minRow (an empty minRow matches every row), front to back.  Inside a
// transaction the rows stay locked until commit; rows locked by a
// concurrent allocator are skipped rather than waited on.
func (r *SeatRepo) FindAvailableSeats(ctx context.Context, minRow string, limit int) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + `
	           FROM seats
	           WHERE is_occupied = 0 AND is_blocked = 0 AND row_name >= ?
	           ORDER BY row_name, seat_number
	           LIMIT ?
	           FOR UPDATE SKIP LOCKED`
	return r.querySeats(ctx, q, minRow, limit)
}

// AssignSeats marks the given seats occupied by registrationID.  Only seats
// that are still free and unblocked are touched; the affected row count is
// returned so callers can detect a lost race.
func (r *SeatRepo) AssignSeats(ctx context.Context, registrationID string, seatIDs []string) (int64, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	q := `UPDATE seats
	      SET is_occupied = 1, assigned_to = ?, updated_at = CURRENT_TIMESTAMP(6)
	      WHERE is_occupied = 0 AND is_blocked = 0 AND id IN (` + placeholders(len(seatIDs)) + `)`
	args := make([]any, 0, len(seatIDs)+1)
	args = append(args, registrationID)
	for _, id := range seatIDs {
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReleaseSeats frees every seat held by registrationID and returns how many
// were released.
func (r *SeatRepo) ReleaseSeats(ctx context.Context, registrationID string) (int64, error) {
	const q = `UPDATE seats
	           SET is_occupied = 0, assigned_to = NULL, updated_at = CURRENT_TIMESTAMP(6)
	           WHERE assigned_to = ?`
	res, err := r.db.ExecContext(ctx, q, registrationID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ToggleSeatBlock flips is_blocked on an unoccupied seat.  It returns
// ErrSeatNotFound for an unknown id and ErrConflict when the seat is
// occupied.
func (r *SeatRepo) ToggleSeatBlock(ctx context.Context, id string) error {
	const q = `UPDATE seats
	           SET is_blocked = NOT is_blocked, updated_at = CURRENT_TIMESTAMP(6)
	           WHERE id = ? AND is_occupied = 0`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// nothing matched: either the seat is missing or it is occupied
	if _, err := r.GetSeat(ctx, id); err != nil {
		return err
	}
	return ErrConflict
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
