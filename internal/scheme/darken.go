package scheme

import (
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/nomadatlas/mapcore/internal/render"
)

// darkenFactor scales each channel of a selected-state color. Chosen so the
// darkened variant stays recognizably the same hue but reads as "pressed".
const darkenFactor = 0.7

// Darken returns a copy of expr with every literal color scaled towards black
// by darkenFactor. Test fragments (the conditional parts of a case expression)
// are left byte-identical, so a darkened expression selects exactly the same
// features as its source.
func Darken(expr render.Expr) render.Expr {
	out := make(render.Expr, len(expr))
	for i, v := range expr {
		switch t := v.(type) {
		case render.Expr:
			out[i] = Darken(t)
		case []any:
			out[i] = Darken(render.Expr(t))
		case string:
			out[i] = darkenColor(t)
		default:
			out[i] = v
		}
	}
	return out
}

// darkenColor darkens a hex color literal; any other string (operator names,
// property names, string-encoded codes) passes through unchanged.
func darkenColor(s string) string {
	if !strings.HasPrefix(s, "#") {
		return s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return s
	}
	return colorful.Color{
		R: c.R * darkenFactor,
		G: c.G * darkenFactor,
		B: c.B * darkenFactor,
	}.Hex()
}
