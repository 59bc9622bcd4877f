// Package scheme compiles the thematic color schemes into renderer-evaluable
// expressions.
//
// Tile attributes are not trustworthy about types: the same categorical code
// may arrive as a native integer, a string-encoded integer, null, or be absent
// entirely. Every branch therefore tests numeric and string equality together,
// and null/absent/baseline all fall through to the scheme default.
package scheme

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nomadatlas/mapcore/internal/render"
)

// ErrInvalidScheme is returned when an unknown scheme name is requested.
// Callers fall back to a known scheme rather than render nothing.
var ErrInvalidScheme = errors.New("invalid color scheme")

// Entry maps one categorical code to a color. Entries are matched in order;
// the first matching branch wins.
type Entry struct {
	Code  int
	Color string
}

// Scheme is the color-mapping rule set for one categorical attribute.
type Scheme struct {
	Name    string
	Field   string // feature property holding the code
	Default string // color for null, absent, and baseline codes
	Entries []Entry
}

// Scheme names.
const (
	Status    = "status"
	Document  = "document"
	Zones     = "zones"
	Crossings = "crossings"
)

// DefaultScheme is the fallback when an unknown scheme is requested.
const DefaultScheme = Status

// schemes lists the known schemes. Entry order is significant: negative
// ("forbidden") codes come first so they can never be shadowed by a broader
// branch.
var schemes = map[string]Scheme{
	Status: {
		Name:    Status,
		Field:   "status",
		Default: "#c9ccd1",
		Entries: []Entry{
			{Code: 3, Color: "#b3383e"}, // entry forbidden
			{Code: 2, Color: "#d98a2b"}, // entry restricted
			{Code: 1, Color: "#4f9d5d"}, // entry open
		},
	},
	Document: {
		Name:    Document,
		Field:   "document",
		Default: "#c9ccd1",
		Entries: []Entry{
			{Code: 2, Color: "#b3383e"}, // document mandatory
			{Code: 3, Color: "#d98a2b"}, // document on arrival
			{Code: 1, Color: "#4f9d5d"}, // no document required
		},
	},
	Zones: {
		Name:    Zones,
		Field:   "zone_type",
		Default: "#d98a2b",
		Entries: []Entry{
			{Code: 2, Color: "#b3383e"}, // no-go zone
			{Code: 3, Color: "#7c5cbf"}, // permit required
			{Code: 1, Color: "#d98a2b"}, // restricted
		},
	},
	Crossings: {
		Name:    Crossings,
		Field:   "open",
		Default: "#8b9097",
		Entries: []Entry{
			{Code: 3, Color: "#b3383e"}, // closed
			{Code: 2, Color: "#d98a2b"}, // partially open
			{Code: 1, Color: "#4f9d5d"}, // open
		},
	},
}

// Lookup returns the scheme for name, or ErrInvalidScheme.
func Lookup(name string) (Scheme, error) {
	s, ok := schemes[name]
	if !ok {
		return Scheme{}, fmt.Errorf("%w: %q", ErrInvalidScheme, name)
	}
	return s, nil
}

// MustLookup returns a built-in scheme by name, panicking on an unknown one.
// Only for static tables whose scheme names are compile-time constants.
func MustLookup(name string) Scheme {
	s, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the known scheme names.
func Names() []string {
	return []string{Status, Document, Zones, Crossings}
}

// Compile turns the scheme into an ordered case expression. For each entry the
// branch matches the code as a number or as its string form; the expression
// ends in the scheme default so null and absent values resolve to it.
func (s Scheme) Compile() render.Expr {
	expr := render.Expr{"case"}
	for _, e := range s.Entries {
		expr = append(expr, CodeMatch(s.Field, e.Code), e.Color)
	}
	return append(expr, s.Default)
}

// CodeMatch builds the dual numeric/string equality test for one code.
func CodeMatch(field string, code int) render.Expr {
	get := render.Expr{"get", field}
	return render.Expr{"any",
		render.Expr{"==", get, code},
		render.Expr{"==", get, strconv.Itoa(code)},
	}
}
