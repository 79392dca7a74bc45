package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/school-event-seating/internal/model"
	"github.com/iliyamo/school-event-seating/internal/repository"
)

// Provisioner is implemented by the stores.
type Provisioner interface {
	Reset(ctx context.Context) error
	CreateSeats(ctx context.Context, seats []model.Seat) error
}

// ErrChartExists is returned when seats are already present and reset was
// not requested.
var ErrChartExists = errors.New("seating chart already provisioned")

// Provision writes the layout's seats into p and returns how many were
// created.  With reset every existing registration and seat is dropped
// first; without it an already provisioned chart is left untouched and
// ErrChartExists is returned.
func Provision(ctx context.Context, p Provisioner, l Layout, reset bool) (int, error) {
	if err := l.Validate(); err != nil {
		return 0, err
	}
	if reset {
		if err := p.Reset(ctx); err != nil {
			return 0, fmt.Errorf("reset chart: %w", err)
		}
	}
	seats := l.Seats()
	if err := p.CreateSeats(ctx, seats); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return 0, ErrChartExists
		}
		return 0, fmt.Errorf("create seats: %w", err)
	}
	return len(seats), nil
}
