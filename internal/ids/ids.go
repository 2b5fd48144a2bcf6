// Package ids provides the 128-bit opaque identifiers used for sessions,
// operations, and resources.
package ids

import "github.com/google/uuid"

// ID is a 128-bit opaque identifier, serialized as its canonical textual
// form (e.g. "f47ac10b-58cc-4372-a567-0e02b2c3d479").
type ID = uuid.UUID

// None is the "no operation" sentinel identifier: the all-zero ID.
var None = uuid.Nil

// New generates a fresh random identifier.
func New() ID {
	return uuid.New()
}

// Parse parses the canonical textual form of an identifier.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// IsNone reports whether id is the "no operation" sentinel.
func IsNone(id ID) bool {
	return id == None
}
