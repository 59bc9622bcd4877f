package orchestra

import (
	"log"
	"sync"

	"github.com/nomadatlas/mapcore/internal/render"
	"github.com/nomadatlas/mapcore/internal/scheme"
)

// countryMatchKeys are the admin-code attribute names seen across tile
// generations. Country highlighting is a repaint, not a filter, because the
// match key varies with the tileset.
var countryMatchKeys = []string{"adm0_a3", "iso_a3"}

// highlightLayers maps each filter-highlighted kind to its dedicated layer
// and the id attribute the filter tests.
var highlightLayers = map[Kind]struct {
	layer  string
	idProp string
}{
	KindBorder:     {layerBorderHilite, "doc_id"},
	KindBorderPost: {layerPostHilite, "doc_id"},
	KindZone:       {layerZoneHilite, "doc_id"},
	KindRoute:      {layerRouteHilite, "route_id"},
}

// Highlighter tracks the single selected entity and keeps its visual
// indication alive across repaints and style reloads.
//
// All failures inside select/clear degrade to "no highlight": the operations
// are safe to call before the renderer resources exist and never panic or
// return renderer errors past their boundary.
type Highlighter struct {
	mu       sync.Mutex
	m        render.Map
	scheme   *scheme.Scheme // country scheme of the active mode, nil outside thematic modes
	selected *Entity
}

// NewHighlighter creates a highlighter over the renderer handle.
func NewHighlighter(m render.Map) *Highlighter {
	return &Highlighter{m: m}
}

// Selected returns the current selection, or nil.
func (h *Highlighter) Selected() *Entity {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.selected == nil {
		return nil
	}
	e := *h.selected
	return &e
}

// SetScheme installs the country color scheme of the active mode. nil means
// the mode has no thematic country paint.
func (h *Highlighter) SetScheme(s *scheme.Scheme) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scheme = s
}

// Select makes e the single selected entity. Any previous selection is
// cleared first; at no point are two entities highlighted.
func (h *Highlighter) Select(e Entity) error {
	if err := e.Validate(); err != nil {
		log.Printf("orchestra: select rejected: %v", err)
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.clearLocked()
	h.selected = &e
	h.applyLocked()
	return nil
}

// Clear resets the selection and restores the base paint and the impossible
// highlight filters.
func (h *Highlighter) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearLocked()
}

// Reapply restores the active selection's visuals after reconciliation. With
// no selection it (re)applies the base paint, which is how mode transitions
// repaint the country layer.
func (h *Highlighter) Reapply() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.selected == nil {
		h.paintCountries(h.baseCountryPaint())
		return
	}
	h.applyLocked()
}

func (h *Highlighter) clearLocked() {
	h.selected = nil
	h.paintCountries(h.baseCountryPaint())
	for kind, hl := range highlightLayers {
		if !h.m.HasLayer(hl.layer) {
			continue
		}
		if err := h.m.SetFilter(hl.layer, impossibleFilter(hl.idProp)); err != nil {
			log.Printf("orchestra: clear %s highlight: %v", kind, err)
		}
	}
}

func (h *Highlighter) applyLocked() {
	e := h.selected
	switch e.Kind {
	case KindCountry:
		h.paintCountries(h.selectedCountryPaint(e.ID))
	default:
		hl, ok := highlightLayers[e.Kind]
		if !ok {
			return
		}
		if !h.m.HasLayer(hl.layer) {
			log.Printf("orchestra: highlight %s: %v: layer %q", e, ErrResourceMissing, hl.layer)
			return
		}
		filter := render.Expr{"==", render.Expr{"get", hl.idProp}, e.ID}
		if err := h.m.SetFilter(hl.layer, filter); err != nil {
			log.Printf("orchestra: highlight %s: %v", e, err)
		}
	}
}

// baseCountryPaint is the non-conditional scheme paint for the country layer.
func (h *Highlighter) baseCountryPaint() render.Expr {
	if h.scheme == nil {
		return nil
	}
	return h.scheme.Compile()
}

// selectedCountryPaint paints the matching country with the darkened scheme
// variant and everything else with the normal scheme colors.
func (h *Highlighter) selectedCountryPaint(id string) render.Expr {
	base := h.baseCountryPaint()
	if base == nil {
		return nil
	}
	return render.Expr{"case", countryMatch(id), scheme.Darken(base), base}
}

func (h *Highlighter) paintCountries(expr render.Expr) {
	if expr == nil {
		return
	}
	if !h.m.HasLayer(layerCountries) {
		log.Printf("orchestra: repaint countries: %v: layer %q", ErrResourceMissing, layerCountries)
		return
	}
	if err := h.m.SetPaintProperty(layerCountries, "fill-color", expr); err != nil {
		log.Printf("orchestra: repaint countries: %v", err)
	}
}

// countryMatch tests the selected admin code against every known attribute
// naming.
func countryMatch(id string) render.Expr {
	match := render.Expr{"any"}
	for _, key := range countryMatchKeys {
		match = append(match, render.Expr{"==", render.Expr{"get", key}, id})
	}
	return match
}
