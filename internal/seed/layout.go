// Package seed builds the seating chart from a layout description and
// provisions it into a store.
package seed

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/school-event-seating/internal/model"
)

// DefaultSeatsPerRow is used for every row of DefaultLayout.
const DefaultSeatsPerRow = 14

// RowSpec describes one row of the hall.
type RowSpec struct {
	Name  string `yaml:"name"`
	Seats uint32 `yaml:"seats"`
}

// Layout is the seating chart as written in a layout file:
//
//	rows:
//	  - {name: A, seats: 14}
//	  - {name: B, seats: 14}
//	blocked: [A7, A8]
type Layout struct {
	Rows    []RowSpec `yaml:"rows"`
	Blocked []string  `yaml:"blocked"`
}

// DefaultLayout returns rows A to L with DefaultSeatsPerRow seats each and
// nothing blocked.
func DefaultLayout() Layout {
	l := Layout{Rows: make([]RowSpec, 0, len(model.Rows))}
	for _, r := range model.Rows {
		l.Rows = append(l.Rows, RowSpec{Name: r, Seats: DefaultSeatsPerRow})
	}
	return l
}

// LoadLayout reads and validates a YAML layout file.  Unknown keys are
// rejected so typos do not silently produce the default.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(data)
}

// ParseLayout decodes and validates a YAML layout.
func ParseLayout(data []byte) (Layout, error) {
	var l Layout
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate checks that every row is a known row letter listed once with at
// least one seat, and that every blocked id names a seat of the layout.
func (l Layout) Validate() error {
	if len(l.Rows) == 0 {
		return fmt.Errorf("layout has no rows")
	}
	seen := make(map[string]uint32, len(l.Rows))
	for _, r := range l.Rows {
		name, ok := model.ParseRow(r.Name)
		if !ok {
			return fmt.Errorf("unknown row %q", r.Name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("row %s listed twice", name)
		}
		if r.Seats == 0 {
			return fmt.Errorf("row %s has no seats", name)
		}
		seen[name] = r.Seats
	}
	for _, id := range l.Blocked {
		row, num, ok := splitSeatID(id)
		if !ok {
			return fmt.Errorf("invalid blocked seat %q", id)
		}
		if n, ok := seen[row]; !ok || num > n {
			return fmt.Errorf("blocked seat %s is not in the layout", id)
		}
	}
	return nil
}

// Seats expands the layout into seats in row then number order.  Seat ids
// are the row letter followed by the number, e.g. "D12".
func (l Layout) Seats() []model.Seat {
	blocked := make(map[string]bool, len(l.Blocked))
	for _, id := range l.Blocked {
		if row, num, ok := splitSeatID(id); ok {
			blocked[seatID(row, num)] = true
		}
	}
	var out []model.Seat
	for _, r := range l.Rows {
		row, ok := model.ParseRow(r.Name)
		if !ok {
			continue
		}
		for n := uint32(1); n <= r.Seats; n++ {
			id := seatID(row, n)
			out = append(out, model.Seat{ID: id, RowName: row, SeatNumber: n, IsBlocked: blocked[id]})
		}
	}
	return out
}

func seatID(row string, n uint32) string {
	return row + strconv.FormatUint(uint64(n), 10)
}

// splitSeatID parses "d7" or "D7" into ("D", 7).
func splitSeatID(id string) (string, uint32, bool) {
	if len(id) < 2 {
		return "", 0, false
	}
	row, ok := model.ParseRow(id[:1])
	if !ok {
		return "", 0, false
	}
	n, err := strconv.ParseUint(id[1:], 10, 32)
	if err != nil || n == 0 {
		return "", 0, false
	}
	return row, uint32(n), true
}
