package model

import (
	"strconv"
	"strings"
	"time"
)

// Seat describes one bookable position on the seating chart.  Seats are
// identified by a stable id (conventionally the row letter followed by the
// seat number, e.g. "A1") and ordered by row then number.  This struct
// corresponds to a row in the `seats` table.
//
// Fields:
//
//	ID         – primary key identifier.
//	RowName    – single row letter, A through L.
//	SeatNumber – 1-based position within the row.
//	IsOccupied – whether the seat is assigned to a registration.
//	IsBlocked  – administrator flag excluding the seat from allocation.
//	AssignedTo – registration holding the seat (nil when free).
//	UpdatedAt  – timestamp of last update.
type Seat struct {
	ID         string    `json:"id"`          // seats.id
	RowName    string    `json:"row_name"`    // seats.row_name
	SeatNumber uint32    `json:"seat_number"` // seats.seat_number
	IsOccupied bool      `json:"is_occupied"` // seats.is_occupied
	IsBlocked  bool      `json:"is_blocked"`  // seats.is_blocked
	AssignedTo *string   `json:"assigned_to"` // seats.assigned_to (nullable)
	UpdatedAt  time.Time `json:"-"`           // seats.updated_at
}

// Label returns the printable seat label such as "B12".
func (s Seat) Label() string {
	return s.RowName + strconv.FormatUint(uint64(s.SeatNumber), 10)
}

// Available reports whether the allocator may hand this seat out.
func (s Seat) Available() bool {
	return !s.IsOccupied && !s.IsBlocked
}

// HeldBy reports whether the seat is assigned to the given registration.
func (s Seat) HeldBy(registrationID string) bool {
	return s.AssignedTo != nil && *s.AssignedTo == registrationID
}

// Rows lists the row labels of the venue in front-to-back order.
var Rows = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}

// ParseRow normalises a row label (trimmed, upper-cased) and reports whether
// it names one of the venue rows.
func ParseRow(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != 1 {
		return "", false
	}
	if s[0] < 'A' || s[0] > 'L' {
		return "", false
	}
	return s, true
}

// RowIndex returns the zero-based position of a row label, or -1.
func RowIndex(row string) int {
	r, ok := ParseRow(row)
	if !ok {
		return -1
	}
	return int(r[0] - 'A')
}

// SeatCategory is the presentation class of a seat, derived from its row.
type SeatCategory string

const (
	CategoryVIP       SeatCategory = "VIP"
	CategoryCommittee SeatCategory = "COMMITTEE"
	CategoryGeneral   SeatCategory = "GENERAL"
)

// CategoryOf maps a row label to its category.  Rows A and B are reserved
// for guests of honour, row C for the organising committee and everything
// behind that is general seating.
func CategoryOf(row string) SeatCategory {
	switch RowIndex(row) {
	case 0, 1:
		return CategoryVIP
	case 2:
		return CategoryCommittee
	default:
		return CategoryGeneral
	}
}
