package orchestra

import (
	"errors"
	"fmt"
)

// Kind discriminates the selectable map object types.
type Kind string

const (
	KindCountry    Kind = "country"
	KindBorder     Kind = "border"
	KindBorderPost Kind = "border_post"
	KindZone       Kind = "zone"
	KindRoute      Kind = "route"
)

// ErrInvalidEntityID is returned when a selection operation receives an empty
// or malformed id.
var ErrInvalidEntityID = errors.New("invalid entity id")

// Entity is a reference to one selectable map object. Country ids are 3-letter
// admin codes; the other kinds carry opaque document identifiers. Equality is
// by (Kind, ID).
type Entity struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// Validate checks the reference is usable for a selection operation.
func (e Entity) Validate() error {
	switch e.Kind {
	case KindCountry, KindBorder, KindBorderPost, KindZone, KindRoute:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntityID, e.Kind)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: empty id for kind %q", ErrInvalidEntityID, e.Kind)
	}
	if e.Kind == KindCountry && len(e.ID) != 3 {
		return fmt.Errorf("%w: country id %q is not a 3-letter code", ErrInvalidEntityID, e.ID)
	}
	return nil
}

func (e Entity) String() string {
	return fmt.Sprintf("%s/%s", e.Kind, e.ID)
}
