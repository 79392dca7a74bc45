package service

import (
	"context"
	"strings"

	"github.com/iliyamo/school-event-seating/internal/model"
	"github.com/iliyamo/school-event-seating/internal/repository"
)

// Holder summarises the registration occupying a seat.
type Holder struct {
	RegistrationID string `json:"registration_id"`
	ChildName      string `json:"child_name,omitempty"`
	ChildClass     string `json:"child_class,omitempty"`
}

// ChartSeat is one seat of the chart with its derived category and holder.
type ChartSeat struct {
	model.Seat
	Category model.SeatCategory `json:"category"`
	Holder   *Holder            `json:"holder,omitempty"`
}

// Chart returns every seat in row then number order.
func (s *Service) Chart(ctx context.Context) ([]ChartSeat, error) {
	var chart []ChartSeat
	err := s.store.View(ctx, func(q repository.Queries) error {
		seats, err := q.ListSeats(ctx)
		if err != nil {
			return persistence("list seats", err)
		}
		regs, err := q.ListRegistrations(ctx)
		if err != nil {
			return persistence("list registrations", err)
		}
		byID := make(map[string]model.Registration, len(regs))
		for _, r := range regs {
			byID[r.ID] = r
		}
		chart = make([]ChartSeat, 0, len(seats))
		for _, seat := range seats {
			cs := ChartSeat{Seat: seat, Category: model.CategoryOf(seat.RowName)}
			if seat.AssignedTo != nil {
				h := &Holder{RegistrationID: *seat.AssignedTo}
				if r, ok := byID[*seat.AssignedTo]; ok {
					h.ChildName = r.ChildName
					h.ChildClass = r.ChildClass
				}
				cs.Holder = h
			}
			chart = append(chart, cs)
		}
		return nil
	})
	if err != nil {
		return nil, classify("chart", err)
	}
	return chart, nil
}

// PublicChart is Chart without registrant details.  Occupancy and blocking
// stay visible.
func (s *Service) PublicChart(ctx context.Context) ([]ChartSeat, error) {
	chart, err := s.Chart(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chart {
		chart[i].AssignedTo = nil
		chart[i].Holder = nil
	}
	return chart, nil
}

// Participant is a registration with the seats it holds.
type Participant struct {
	model.Registration
	Seats []string `json:"seats"`
}

// ParticipantList is the administrator's registrant overview.
type ParticipantList struct {
	Total         int           `json:"total"`
	OccupiedSeats int           `json:"occupied_seats"`
	Participants  []Participant `json:"participants"`
}

// Participants lists registrations in creation order with their seat
// labels.  A non-empty query keeps registrations whose child name or class
// contains it, ignoring case.  Total and OccupiedSeats describe the whole
// chart regardless of the filter.
func (s *Service) Participants(ctx context.Context, query string) (ParticipantList, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	var out ParticipantList
	err := s.store.View(ctx, func(q repository.Queries) error {
		regs, err := q.ListRegistrations(ctx)
		if err != nil {
			return persistence("list registrations", err)
		}
		seats, err := q.ListSeats(ctx)
		if err != nil {
			return persistence("list seats", err)
		}
		labels := make(map[string][]string, len(regs))
		for _, seat := range seats {
			if seat.AssignedTo != nil {
				labels[*seat.AssignedTo] = append(labels[*seat.AssignedTo], seat.Label())
				out.OccupiedSeats++
			}
		}
		out.Total = len(regs)
		out.Participants = make([]Participant, 0, len(regs))
		for _, r := range regs {
			if needle != "" &&
				!strings.Contains(strings.ToLower(r.ChildName), needle) &&
				!strings.Contains(strings.ToLower(r.ChildClass), needle) {
				continue
			}
			seatLabels := labels[r.ID]
			if seatLabels == nil {
				seatLabels = []string{}
			}
			out.Participants = append(out.Participants, Participant{Registration: r, Seats: seatLabels})
		}
		return nil
	})
	if err != nil {
		return ParticipantList{}, classify("participants", err)
	}
	return out, nil
}
