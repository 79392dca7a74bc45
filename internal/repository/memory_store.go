package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/school-event-seating/internal/model"
)

// InMemoryStore is a Store kept entirely in process memory.  Transactions
// are serialised by a single lock and run against a copy of the state that
// replaces the live state only when the callback succeeds, so a failed
// callback leaves no trace.  It backs the test suites and the server when
// STORE_DRIVER=memory.
type InMemoryStore struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

type memRegistration struct {
	reg model.Registration
	seq uint64
}

type memState struct {
	seats map[string]model.Seat
	regs  map[string]memRegistration
	seq   uint64
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		state: &memState{seats: map[string]model.Seat{}, regs: map[string]memRegistration{}},
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		seats: make(map[string]model.Seat, len(st.seats)),
		regs:  make(map[string]memRegistration, len(st.regs)),
		seq:   st.seq,
	}
	for k, v := range st.seats {
		c.seats[k] = v
	}
	for k, v := range st.regs {
		c.regs[k] = v
	}
	return c
}

// InTx runs fn against a private copy of the store and publishes the copy
// when fn returns nil.
func (s *InMemoryStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(&memQueries{st: work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// View runs fn on a snapshot of the current state.
func (s *InMemoryStore) View(ctx context.Context, fn func(q Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snap := s.state.clone()
	s.mu.RUnlock()
	return fn(&memQueries{st: snap, now: s.now})
}

// CreateSeats provisions seats.  Existing ids are rejected and nothing is
// written in that case.
func (s *InMemoryStore) CreateSeats(ctx context.Context, seats []model.Seat) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	for _, seat := range seats {
		if _, ok := work.seats[seat.ID]; ok {
			return fmt.Errorf("seat %s: %w", seat.ID, ErrDuplicate)
		}
		seat.IsOccupied = false
		seat.AssignedTo = nil
		seat.UpdatedAt = s.now()
		work.seats[seat.ID] = seat
	}
	s.state = work
	return nil
}

// Reset drops every seat and registration.
func (s *InMemoryStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &memState{seats: map[string]model.Seat{}, regs: map[string]memRegistration{}}
	return nil
}

// AddSeats stores seats as given, occupancy included, and panics on a
// duplicate id.  Tests use it to stage arbitrary charts.
func (s *InMemoryStore) AddSeats(seats ...model.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range seats {
		if _, ok := s.state.seats[seat.ID]; ok {
			panic("duplicate seat " + seat.ID)
		}
		seat.UpdatedAt = s.now()
		s.state.seats[seat.ID] = seat
	}
}

// memQueries implements Queries over one memState.
type memQueries struct {
	st  *memState
	now func() time.Time
}

func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].RowName != seats[j].RowName {
			return seats[i].RowName < seats[j].RowName
		}
		return seats[i].SeatNumber < seats[j].SeatNumber
	})
}

func (q *memQueries) selectSeats(keep func(model.Seat) bool) []model.Seat {
	out := make([]model.Seat, 0)
	for _, seat := range q.st.seats {
		if keep(seat) {
			out = append(out, seat)
		}
	}
	sortSeats(out)
	return out
}

func (q *memQueries) GetSeat(_ context.Context, id string) (*model.Seat, error) {
	seat, ok := q.st.seats[id]
	if !ok {
		return nil, ErrSeatNotFound
	}
	return &seat, nil
}

func (q *memQueries) ListSeats(context.Context) ([]model.Seat, error) {
	return q.selectSeats(func(model.Seat) bool { return true }), nil
}

func (q *memQueries) SeatsByRegistration(_ context.Context, registrationID string) ([]model.Seat, error) {
	return q.selectSeats(func(s model.Seat) bool { return s.HeldBy(registrationID) }), nil
}

func (q *memQueries) FindAvailableSeats(_ context.Context, minRow string, limit int) ([]model.Seat, error) {
	seats := q.selectSeats(func(s model.Seat) bool { return s.Available() && s.RowName >= minRow })
	if limit >= 0 && len(seats) > limit {
		seats = seats[:limit]
	}
	return seats, nil
}

func (q *memQueries) AssignSeats(_ context.Context, registrationID string, seatIDs []string) (int64, error) {
	if _, ok := q.st.regs[registrationID]; !ok {
		return 0, fmt.Errorf("assign to %s: %w", registrationID, ErrRegistrationNotFound)
	}
	var n int64
	for _, id := range seatIDs {
		seat, ok := q.st.seats[id]
		if !ok || !seat.Available() {
			continue
		}
		holder := registrationID
		seat.IsOccupied = true
		seat.AssignedTo = &holder
		seat.UpdatedAt = q.now()
		q.st.seats[id] = seat
		n++
	}
	return n, nil
}

func (q *memQueries) ReleaseSeats(_ context.Context, registrationID string) (int64, error) {
	var n int64
	for id, seat := range q.st.seats {
		if !seat.HeldBy(registrationID) {
			continue
		}
		seat.IsOccupied = false
		seat.AssignedTo = nil
		seat.UpdatedAt = q.now()
		q.st.seats[id] = seat
		n++
	}
	return n, nil
}

func (q *memQueries) ToggleSeatBlock(_ context.Context, id string) error {
	seat, ok := q.st.seats[id]
	if !ok {
		return ErrSeatNotFound
	}
	if seat.IsOccupied {
		return ErrConflict
	}
	seat.IsBlocked = !seat.IsBlocked
	seat.UpdatedAt = q.now()
	q.st.seats[id] = seat
	return nil
}

func (q *memQueries) GetRegistration(_ context.Context, id string) (*model.Registration, error) {
	r, ok := q.st.regs[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	reg := r.reg
	return &reg, nil
}

func (q *memQueries) FindRegistrationByKey(_ context.Context, nameKey, class string) (*model.Registration, error) {
	for _, r := range q.st.regs {
		if r.reg.Key() == nameKey && r.reg.ChildClass == class {
			reg := r.reg
			return &reg, nil
		}
	}
	return nil, ErrRegistrationNotFound
}

func (q *memQueries) ordered() []memRegistration {
	list := make([]memRegistration, 0, len(q.st.regs))
	for _, r := range q.st.regs {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	return list
}

func (q *memQueries) SearchRegistration(_ context.Context, namePart, class string) (*model.Registration, error) {
	needle := model.NameKey(namePart)
	for _, r := range q.ordered() {
		if r.reg.ChildClass == class && strings.Contains(r.reg.Key(), needle) {
			reg := r.reg
			return &reg, nil
		}
	}
	return nil, ErrRegistrationNotFound
}

func (q *memQueries) ListRegistrations(context.Context) ([]model.Registration, error) {
	list := q.ordered()
	out := make([]model.Registration, 0, len(list))
	for _, r := range list {
		out = append(out, r.reg)
	}
	return out, nil
}

func (q *memQueries) keyTaken(reg *model.Registration) bool {
	for id, r := range q.st.regs {
		if id != reg.ID && r.reg.Key() == reg.Key() && r.reg.ChildClass == reg.ChildClass {
			return true
		}
	}
	return false
}

func (q *memQueries) CreateRegistration(_ context.Context, reg *model.Registration) error {
	if reg.ID == "" {
		reg.ID = newRegistrationID()
	}
	if _, ok := q.st.regs[reg.ID]; ok || q.keyTaken(reg) {
		return ErrDuplicate
	}
	reg.CreatedAt = q.now()
	q.st.seq++
	q.st.regs[reg.ID] = memRegistration{reg: *reg, seq: q.st.seq}
	return nil
}

func (q *memQueries) UpdateRegistration(_ context.Context, reg *model.Registration) error {
	cur, ok := q.st.regs[reg.ID]
	if !ok {
		return nil
	}
	if q.keyTaken(reg) {
		return ErrDuplicate
	}
	updated := *reg
	updated.CreatedAt = cur.reg.CreatedAt
	q.st.regs[reg.ID] = memRegistration{reg: updated, seq: cur.seq}
	return nil
}

func (q *memQueries) DeleteRegistration(_ context.Context, id string) error {
	if _, ok := q.st.regs[id]; !ok {
		return ErrRegistrationNotFound
	}
	for _, seat := range q.st.seats {
		if seat.HeldBy(id) {
			return fmt.Errorf("registration %s still holds seat %s: %w", id, seat.ID, ErrConflict)
		}
	}
	delete(q.st.regs, id)
	return nil
}
