// Package render defines the contract the orchestrator expects from a
// vector-tile map renderer (MapLibre or compatible).
//
// The renderer instance is a singleton for the lifetime of the view, but it is
// always passed in explicitly so tests can substitute an in-memory fake
// (see rendertest).
package render

import (
	"image"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Expr is a renderer-evaluable expression in MapLibre JSON form, e.g.
// ["case", ["==", ["get", "status"], 3], "#b91c1c", "#d1d5db"].
// Filters use the same representation.
type Expr []any

// SourceSpec describes a source to add to the style.
type SourceSpec struct {
	Type  string   `json:"type"`            // "vector", "raster", "raster-dem"
	URL   string   `json:"url,omitempty"`   // pmtiles:// or TileJSON URL
	Tiles []string `json:"tiles,omitempty"` // tile URL templates
}

// LayerSpec describes a style layer to add.
type LayerSpec struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"` // "fill", "line", "circle", "symbol", "raster", "hillshade"
	Source      string         `json:"source,omitempty"`
	SourceLayer string         `json:"source-layer,omitempty"`
	Filter      Expr           `json:"filter,omitempty"`
	Layout      map[string]any `json:"layout,omitempty"`
	Paint       map[string]any `json:"paint,omitempty"`
}

// Feature is one rendered feature returned by a hit query. Properties is the
// raw attribute bag from the tile; values may be numbers, strings or nil.
type Feature struct {
	SourceLayer string             `json:"sourceLayer"`
	Properties  geojson.Properties `json:"properties"`
}

// Viewport is the camera state captured before a style reload and restored
// after it.
type Viewport struct {
	Center orb.Point `json:"center"`
	Zoom   float64   `json:"zoom"`
}

// Map is the imperative surface of the rendering engine.
//
// LoadStyle discards the current style and every custom resource with it. The
// returned channel receives exactly one value: nil once the renderer reports
// the new style fully loaded, or the load error. The load itself cannot be
// aborted once requested.
type Map interface {
	LoadStyle(url string) <-chan error

	HasImage(id string) bool
	AddImage(id string, img image.Image) error

	HasSource(id string) bool
	AddSource(id string, spec SourceSpec) error
	RemoveSource(id string) error

	HasLayer(id string) bool
	// AddLayer inserts the layer before beforeID, or appends when beforeID
	// is empty.
	AddLayer(spec LayerSpec, beforeID string) error
	RemoveLayer(id string) error

	SetPaintProperty(layerID, prop string, value any) error
	SetLayoutProperty(layerID, prop string, value any) error
	GetLayoutProperty(layerID, prop string) (any, error)
	SetFilter(layerID string, filter Expr) error

	QueryRenderedFeatures(p orb.Point) []Feature

	Viewport() Viewport
	SetViewport(v Viewport)
	FlyTo(center orb.Point, zoom float64)
	FitBounds(b orb.Bound, padding float64)

	// OnClick registers the single click handler for the view. The point is
	// the clicked location in geographic coordinates; features are the
	// rendered features under it, most specific first as reported by the
	// renderer.
	OnClick(fn func(p orb.Point, features []Feature))
}
