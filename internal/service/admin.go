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

// ManualParentName marks registrations entered by an administrator.
const ManualParentName = "Admin Manual"

// ToggleBlock flips the blocked flag of an empty seat and returns the seat
// as stored afterwards.  Occupied seats are refused with ErrSeatOccupied
// and left untouched.
func (s *Service) ToggleBlock(ctx context.Context, seatID string) (model.Seat, error) {
	seatID = strings.TrimSpace(seatID)
	if seatID == "" {
		return model.Seat{}, validation("seat id is required")
	}
	var seat model.Seat
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		switch err := q.ToggleSeatBlock(ctx, seatID); {
		case errors.Is(err, repository.ErrSeatNotFound):
			return fmt.Errorf("%w: seat %s", ErrNotFound, seatID)
		case errors.Is(err, repository.ErrConflict):
			return fmt.Errorf("%w: seat %s", ErrSeatOccupied, seatID)
		case err != nil:
			return persistence("toggle block", err)
		}
		got, err := q.GetSeat(ctx, seatID)
		if err != nil {
			return persistence("reload seat", err)
		}
		seat = *got
		return nil
	})
	if err != nil {
		return model.Seat{}, classify("toggle block", err)
	}
	s.metrics.IncrementBlockToggle()
	s.log.InfoContext(ctx, "seat block toggled", "seat", seat.Label(), "blocked", seat.IsBlocked)
	return seat, nil
}

// RemoveRegistration releases every seat held by the registration and then
// deletes it, in one transaction.
func (s *Service) RemoveRegistration(ctx context.Context, registrationID string) error {
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return validation("registration id is required")
	}
	var (
		reg   model.Registration
		held  []model.Seat
		freed int64
	)
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		got, err := q.GetRegistration(ctx, registrationID)
		if errors.Is(err, repository.ErrRegistrationNotFound) {
			return fmt.Errorf("%w: registration %s", ErrNotFound, registrationID)
		}
		if err != nil {
			return persistence("load registration", err)
		}
		reg = *got

		if held, err = q.SeatsByRegistration(ctx, registrationID); err != nil {
			return persistence("load seats", err)
		}
		if freed, err = q.ReleaseSeats(ctx, registrationID); err != nil {
			return persistence("release seats", err)
		}
		if err := q.DeleteRegistration(ctx, registrationID); err != nil {
			return persistence("delete registration", err)
		}
		return nil
	})
	if err != nil {
		err = classify("remove registration", err)
		if errors.Is(err, ErrPersistence) {
			s.log.ErrorContext(ctx, "remove registration failed", "registration_id", registrationID, "error", err)
		}
		return err
	}
	s.metrics.IncrementRegistrationRemoved()
	s.log.InfoContext(ctx, "registration removed", "registration_id", registrationID, "seats_released", freed)
	s.publish(ctx, queue.EventRegistrationRemoved, reg, held)
	return nil
}

// UpdateRequest carries the editable fields of a registration.  A nil
// ParentName keeps the current value.
type UpdateRequest struct {
	ChildName  string
	ChildClass string
	ParentName *string
}

// UpdateRegistration edits name, class and optionally the parent name.  The
// new (name, class) pair must not belong to another registration.  Seats are
// not touched.
func (s *Service) UpdateRegistration(ctx context.Context, registrationID string, req UpdateRequest) (model.Registration, error) {
	name := strings.TrimSpace(req.ChildName)
	if name == "" {
		return model.Registration{}, validation("child name is required")
	}
	if !model.IsValidClass(req.ChildClass) {
		return model.Registration{}, validation("unknown class %q", req.ChildClass)
	}
	var updated model.Registration
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		cur, err := q.GetRegistration(ctx, registrationID)
		if errors.Is(err, repository.ErrRegistrationNotFound) {
			return fmt.Errorf("%w: registration %s", ErrNotFound, registrationID)
		}
		if err != nil {
			return persistence("load registration", err)
		}
		next := *cur
		next.ChildName = name
		next.ChildClass = req.ChildClass
		if req.ParentName != nil {
			next.ParentName = strings.TrimSpace(*req.ParentName)
		}

		other, err := q.FindRegistrationByKey(ctx, next.Key(), next.ChildClass)
		switch {
		case err == nil && other.ID != next.ID:
			return fmt.Errorf("%w: %s (%s)", ErrDuplicateRegistration, next.ChildName, next.ChildClass)
		case err != nil && !errors.Is(err, repository.ErrRegistrationNotFound):
			return persistence("duplicate check", err)
		}

		if err := q.UpdateRegistration(ctx, &next); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: %s (%s)", ErrDuplicateRegistration, next.ChildName, next.ChildClass)
			}
			return persistence("update registration", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return model.Registration{}, classify("update registration", err)
	}
	s.log.InfoContext(ctx, "registration updated", "registration_id", updated.ID)
	return updated, nil
}

// AddManual registers a child on behalf of an administrator.  No row
// constraint applies.
func (s *Service) AddManual(ctx context.Context, childName, childClass string) (AllocationResult, error) {
	return s.Allocate(ctx, AllocateRequest{
		ChildName:  childName,
		ChildClass: childClass,
		ParentName: ManualParentName,
	})
}
