package model

import (
	"strings"
	"time"
)

// Registration records one child signed up for the performance.  A
// registration owns the seats whose assigned_to column references it
// (normally two).  This struct corresponds to a row in the
// `registrations` table.
//
// Fields:
//
//	ID         – primary key identifier (UUID string).
//	ParentName – optional guardian name; "-" for self-service sign ups.
//	ChildName  – child's name as entered.
//	ChildClass – one of ClassLabels.
//	CreatedAt  – creation timestamp; lookups prefer the oldest match.
type Registration struct {
	ID         string    `json:"id"`          // registrations.id
	ParentName string    `json:"parent_name"` // registrations.parent_name
	ChildName  string    `json:"child_name"`  // registrations.child_name
	ChildClass string    `json:"child_class"` // registrations.child_class
	CreatedAt  time.Time `json:"created_at"`  // registrations.created_at
}

// Key returns the uniqueness key of the registration.
func (r Registration) Key() string {
	return NameKey(r.ChildName)
}

// ClassLabels enumerates the classes allowed to register.
var ClassLabels = []string{
	"KB B1",
	"TK A1", "TK A2", "TK A3", "TK A4",
	"TK B1", "TK B2", "TK B3", "TK B4",
}

// IsValidClass reports whether c is one of ClassLabels.  Matching is exact.
func IsValidClass(c string) bool {
	for _, l := range ClassLabels {
		if l == c {
			return true
		}
	}
	return false
}

// NameKey folds a child name into the form used for duplicate detection:
// surrounding whitespace removed and lower-cased.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
