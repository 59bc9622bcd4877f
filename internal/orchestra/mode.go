// Package orchestra coordinates display modes, renderer resources, and entity
// highlighting for the atlas map view.
//
// The renderer periodically discards and reloads its entire style (language
// change, entering or leaving climate mode), destroying every custom resource.
// This package owns the state machine that keeps the visual state consistent
// across those reloads: debounced mode transitions, idempotent resource
// reconciliation, and single-selection highlight management.
package orchestra

import (
	"errors"
	"fmt"
)

// Mode is one of the mutually exclusive thematic display states of the map.
type Mode string

const (
	// ModeStatus colors countries by their legal/travel status code.
	ModeStatus Mode = "status"
	// ModeDocument colors countries by their document-requirement code.
	ModeDocument Mode = "document"
	// ModeClimate shows seasonal climate rasters; requires its own style.
	ModeClimate Mode = "climate"
	// ModeRoute shows curated travel routes over terrain relief.
	ModeRoute Mode = "route"
)

// ErrInvalidMode is returned when an unknown mode is supplied from outside.
var ErrInvalidMode = errors.New("invalid map mode")

// ParseMode validates a mode supplied as external input.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeStatus, ModeDocument, ModeClimate, ModeRoute:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// String returns the string representation of the mode.
func (m Mode) String() string {
	return string(m)
}

// countryScheme returns the color scheme name painting the country fill in
// this mode, or "" when the mode has no thematic country paint.
func (m Mode) countryScheme() string {
	switch m {
	case ModeStatus:
		return "status"
	case ModeDocument:
		return "document"
	default:
		return ""
	}
}

// styleKey identifies which style document family a mode renders on. Climate
// uses its own raster style; every other mode shares the base style.
func (m Mode) styleKey() string {
	if m == ModeClimate {
		return "climate"
	}
	return "base"
}
