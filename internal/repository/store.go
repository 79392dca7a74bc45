package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/school-event-seating/internal/model"
)

// Queries is the statement set the service layer runs against the seating
// chart.  Both the MySQL store and the in-memory store implement it, either
// directly on the database handle or scoped to a transaction.
type Queries interface {
	// Registrations
	GetRegistration(ctx context.Context, id string) (*model.Registration, error)
	FindRegistrationByKey(ctx context.Context, nameKey, class string) (*model.Registration, error)
	SearchRegistration(ctx context.Context, namePart, class string) (*model.Registration, error)
	ListRegistrations(ctx context.Context) ([]model.Registration, error)
	CreateRegistration(ctx context.Context, r *model.Registration) error
	UpdateRegistration(ctx context.Context, r *model.Registration) error
	DeleteRegistration(ctx context.Context, id string) error

	// Seats
	GetSeat(ctx context.Context, id string) (*model.Seat, error)
	ListSeats(ctx context.Context) ([]model.Seat, error)
	SeatsByRegistration(ctx context.Context, registrationID string) ([]model.Seat, error)
	FindAvailableSeats(ctx context.Context, minRow string, limit int) ([]model.Seat, error)
	AssignSeats(ctx context.Context, registrationID string, seatIDs []string) (int64, error)
	ReleaseSeats(ctx context.Context, registrationID string) (int64, error)
	ToggleSeatBlock(ctx context.Context, id string) error
}

// Store is the transactional boundary around Queries.  InTx runs fn inside a
// read-write transaction that is committed only when fn returns nil; View
// runs fn against a non-transactional read view.
type Store interface {
	InTx(ctx context.Context, fn func(q Queries) error) error
	View(ctx context.Context, fn func(q Queries) error) error
}

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlQueries combines the seat and registration repositories over one handle.
type sqlQueries struct {
	*SeatRepo
	*RegistrationRepo
}

// MySQLStore implements Store on a MySQL database.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a Store bound to db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// DB exposes the underlying handle for health checks and seeding.
func (s *MySQLStore) DB() *sql.DB { return s.db }

func newSQLQueries(db DBTX) sqlQueries {
	return sqlQueries{SeatRepo: NewSeatRepo(db), RegistrationRepo: NewRegistrationRepo(db)}
}

// InTx begins a transaction, runs fn and commits.  Any error from fn or from
// the commit rolls the transaction back.
func (s *MySQLStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	return s.inRawTx(ctx, func(tx *sql.Tx) error { return fn(newSQLQueries(tx)) })
}

// View runs fn directly on the connection pool.
func (s *MySQLStore) View(ctx context.Context, fn func(q Queries) error) error {
	return fn(newSQLQueries(s.db))
}

// CreateSeats provisions seats in one statement.
func (s *MySQLStore) CreateSeats(ctx context.Context, seats []model.Seat) error {
	return NewSeatRepo(s.db).CreateBulk(ctx, seats)
}

// Reset removes every seat and registration.  Seats go first because they
// reference registrations.
func (s *MySQLStore) Reset(ctx context.Context) error {
	return s.inRawTx(ctx, func(tx *sql.Tx) error {
		if err := NewSeatRepo(tx).DeleteAllSeats(ctx); err != nil {
			return err
		}
		return NewRegistrationRepo(tx).DeleteAllRegistrations(ctx)
	})
}

func (s *MySQLStore) inRawTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
