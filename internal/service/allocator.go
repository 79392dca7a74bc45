package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/school-event-seating/internal/model"
	"github.com/iliyamo/school-event-seating/internal/queue"
	"github.com/iliyamo/school-event-seating/internal/repository"
)

// SeatsPerRegistration is the party size of every registration.
const SeatsPerRegistration = 2

// AllocateRequest is the input of Allocate.  MinRow restricts the search to
// that row and the rows behind it; empty means the whole chart.
type AllocateRequest struct {
	ChildName  string
	ChildClass string
	ParentName string
	MinRow     string
}

// AllocationResult describes a committed allocation.  Seats are in row then
// number order.
type AllocationResult struct {
	RegistrationID string       `json:"registration_id"`
	ChildName      string       `json:"child_name"`
	ChildClass     string       `json:"child_class"`
	Seats          []model.Seat `json:"seats"`
}

// Labels returns the printable seat labels of the result.
func (r AllocationResult) Labels() []string {
	out := make([]string, 0, len(r.Seats))
	for _, s := range r.Seats {
		out = append(out, s.Label())
	}
	return out
}

func normaliseRequest(req AllocateRequest) (model.Registration, string, error) {
	name := strings.TrimSpace(req.ChildName)
	if name == "" {
		return model.Registration{}, "", validation("child name is required")
	}
	if !model.IsValidClass(req.ChildClass) {
		return model.Registration{}, "", validation("unknown class %q", req.ChildClass)
	}
	minRow := ""
	if strings.TrimSpace(req.MinRow) != "" {
		r, ok := model.ParseRow(req.MinRow)
		if !ok {
			return model.Registration{}, "", validation("unknown row %q", req.MinRow)
		}
		minRow = r
	}
	reg := model.Registration{
		ParentName: strings.TrimSpace(req.ParentName),
		ChildName:  name,
		ChildClass: req.ChildClass,
	}
	return reg, minRow, nil
}

// Allocate registers a child and assigns two free, unblocked seats in one
// transaction.  The duplicate check, seat search, insert and seat update
// either all commit or none do.  Allocate never retries.
func (s *Service) Allocate(ctx context.Context, req AllocateRequest) (AllocationResult, error) {
	reg, minRow, err := normaliseRequest(req)
	if err != nil {
		s.metrics.IncrementAllocationFailed(Reason(err))
		return AllocationResult{}, err
	}

	var seats []model.Seat
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		switch _, err := q.FindRegistrationByKey(ctx, reg.Key(), reg.ChildClass); {
		case err == nil:
			return fmt.Errorf("%w: %s (%s)", ErrDuplicateRegistration, reg.ChildName, reg.ChildClass)
		case !errors.Is(err, repository.ErrRegistrationNotFound):
			return persistence("duplicate check", err)
		}

		found, err := q.FindAvailableSeats(ctx, minRow, SeatsPerRegistration)
		if err != nil {
			return persistence("seat search", err)
		}
		if len(found) < SeatsPerRegistration {
			return fmt.Errorf("%w: %d eligible seat(s) left", ErrCapacityExhausted, len(found))
		}

		if err := q.CreateRegistration(ctx, &reg); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: %s (%s)", ErrDuplicateRegistration, reg.ChildName, reg.ChildClass)
			}
			return persistence("insert registration", err)
		}

		ids := make([]string, len(found))
		for i, seat := range found {
			ids[i] = seat.ID
		}
		n, err := q.AssignSeats(ctx, reg.ID, ids)
		if err != nil {
			return persistence("assign seats", err)
		}
		if n != int64(len(ids)) {
			return fmt.Errorf("%w: assigned %d of %d seats", ErrPersistence, n, len(ids))
		}
		for i := range found {
			holder := reg.ID
			found[i].IsOccupied = true
			found[i].AssignedTo = &holder
		}
		seats = found
		return nil
	})
	if err != nil {
		err = classify("allocate", err)
		s.metrics.IncrementAllocationFailed(Reason(err))
		if errors.Is(err, ErrPersistence) {
			s.log.ErrorContext(ctx, "allocation failed", "child_class", reg.ChildClass, "error", err)
		}
		return AllocationResult{}, err
	}

	s.metrics.IncrementAllocationSucceeded()
	result := AllocationResult{
		RegistrationID: reg.ID,
		ChildName:      reg.ChildName,
		ChildClass:     reg.ChildClass,
		Seats:          seats,
	}
	s.log.InfoContext(ctx, "seats allocated",
		"registration_id", reg.ID, "child_class", reg.ChildClass, "seats", strings.Join(result.Labels(), ","))
	s.publish(ctx, queue.EventRegistrationCreated, reg, seats)
	return result, nil
}
