package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/school-event-seating/internal/model"
	"github.com/iliyamo/school-event-seating/internal/repository"
)

// Ticket is a registration together with the seats it holds.
type Ticket struct {
	Registration model.Registration `json:"registration"`
	Seats        []model.Seat       `json:"seats"`
}

// LookupByID resolves a ticket by registration id.
func (s *Service) LookupByID(ctx context.Context, registrationID string) (Ticket, error) {
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return Ticket{}, validation("registration id is required")
	}
	return s.lookup(ctx, func(q repository.Queries) (*model.Registration, error) {
		return q.GetRegistration(ctx, registrationID)
	})
}

// LookupByName resolves a ticket by a case-insensitive fragment of the
// child's name and the exact class.  When several registrations match, the
// oldest one wins.
func (s *Service) LookupByName(ctx context.Context, namePart, class string) (Ticket, error) {
	if strings.TrimSpace(namePart) == "" {
		return Ticket{}, validation("child name is required")
	}
	return s.lookup(ctx, func(q repository.Queries) (*model.Registration, error) {
		return q.SearchRegistration(ctx, namePart, class)
	})
}

func (s *Service) lookup(ctx context.Context, find func(q repository.Queries) (*model.Registration, error)) (Ticket, error) {
	var t Ticket
	err := s.store.View(ctx, func(q repository.Queries) error {
		reg, err := find(q)
		if errors.Is(err, repository.ErrRegistrationNotFound) {
			return fmt.Errorf("%w: no matching registration", ErrNotFound)
		}
		if err != nil {
			return persistence("find registration", err)
		}
		seats, err := q.SeatsByRegistration(ctx, reg.ID)
		if err != nil {
			return persistence("load seats", err)
		}
		t = Ticket{Registration: *reg, Seats: seats}
		return nil
	})
	if err != nil {
		return Ticket{}, classify("lookup", err)
	}
	return t, nil
}
