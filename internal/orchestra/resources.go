package orchestra

import (
	"image"
	"image/color"

	"github.com/nomadatlas/mapcore/internal/render"
	"github.com/nomadatlas/mapcore/internal/scheme"
)

// Renderer resource ids. The resource namespace is shared with the base style,
// so everything custom is prefixed to avoid colliding with style-owned layers.
const (
	sourceAtlas   = "atlas"
	sourceTerrain = "atlas-terrain"

	imageZoneHatch = "atlas-zone-hatch"

	layerCountries    = "atlas-countries"
	layerBorders      = "atlas-borders"
	layerBorderPosts  = "atlas-border-posts"
	layerZones        = "atlas-zones"
	layerHillshade    = "atlas-hillshade"
	layerRoutes       = "atlas-routes"
	layerRouteLabels  = "atlas-route-labels"
	layerZoneHilite   = "atlas-zone-highlight"
	layerBorderHilite = "atlas-border-highlight"
	layerPostHilite   = "atlas-post-highlight"
	layerRouteHilite  = "atlas-route-highlight"
)

// baseAnchor is the base-map layer custom layers are inserted before, keeping
// them under the style's own labels. When a style lacks it, layers append.
const baseAnchor = "boundary_labels"

// Source layers inside the shared vector source.
const (
	srcLayerCountries = "countries"
	srcLayerBorders   = "borders"
	srcLayerPosts     = "border_posts"
	srcLayerZones     = "zones"
	srcLayerRoutes    = "routes"
)

// routeOnly lists the resources torn down (hidden as a unit) when leaving
// route mode.
var routeOnly = []string{layerHillshade, layerRoutes, layerRouteLabels, layerRouteHilite}

// impossibleFilter matches nothing. Highlight layers idle on it instead of
// being removed, so clearing a selection never touches the layer set.
func impossibleFilter(idProp string) render.Expr {
	return render.Expr{"==", render.Expr{"get", idProp}, ""}
}

// ResourceConfig points the declarative resource tables at concrete data.
type ResourceConfig struct {
	// SourceURL is the shared vector tile source (TileJSON or pmtiles URL).
	SourceURL string
	// TerrainURL is the raster-dem source backing the route-mode relief.
	TerrainURL string
}

// ImageResource is a fill-pattern bitmap required by a mode.
type ImageResource struct {
	ID     string
	Bitmap func() image.Image
}

// SourceResource is a tile source required by a mode.
type SourceResource struct {
	ID   string
	Spec render.SourceSpec
}

// LayerResource is a style layer required by a mode. Anchor names the layer it
// is inserted before when that layer exists. Visible is the layout visibility
// the mode requires; reconciliation also applies it to already-existing
// layers, which is how incremental transitions hide the previous mode's
// overlays.
type LayerResource struct {
	Spec    render.LayerSpec
	Anchor  string
	Visible bool
}

// ResourceSet is everything one mode needs from the renderer, in dependency
// order: images before sources before layers, layers base-to-highlight.
type ResourceSet struct {
	Images  []ImageResource
	Sources []SourceResource
	Layers  []LayerResource
}

// requiredResources is the single source of truth for what each mode needs.
// Reconciliation diffs it against the renderer's actual resource ids.
func requiredResources(cfg ResourceConfig, mode Mode) ResourceSet {
	thematic := mode == ModeStatus || mode == ModeDocument
	route := mode == ModeRoute

	set := ResourceSet{
		Images: []ImageResource{
			{ID: imageZoneHatch, Bitmap: zoneHatch},
		},
		Sources: []SourceResource{
			{ID: sourceAtlas, Spec: render.SourceSpec{Type: "vector", URL: cfg.SourceURL}},
		},
	}
	if route {
		set.Sources = append(set.Sources, SourceResource{
			ID:   sourceTerrain,
			Spec: render.SourceSpec{Type: "raster-dem", URL: cfg.TerrainURL},
		})
	}

	zonesPaint := scheme.MustLookup(scheme.Zones).Compile()
	crossingsPaint := scheme.MustLookup(scheme.Crossings).Compile()

	set.Layers = []LayerResource{
		{
			Spec: render.LayerSpec{
				ID: layerCountries, Type: "fill",
				Source: sourceAtlas, SourceLayer: srcLayerCountries,
				Paint: map[string]any{"fill-opacity": 0.55},
			},
			Anchor:  baseAnchor,
			Visible: thematic,
		},
		{
			Spec: render.LayerSpec{
				ID: layerBorders, Type: "line",
				Source: sourceAtlas, SourceLayer: srcLayerBorders,
				Paint: map[string]any{"line-color": "#5b5e63", "line-width": 1.2},
			},
			Anchor:  baseAnchor,
			Visible: true,
		},
		{
			Spec: render.LayerSpec{
				ID: layerBorderPosts, Type: "circle",
				Source: sourceAtlas, SourceLayer: srcLayerPosts,
				Paint: map[string]any{
					"circle-radius": 4.5,
					"circle-color":  crossingsPaint,
				},
			},
			Anchor:  baseAnchor,
			Visible: thematic,
		},
		// Zones and their highlight always anchor before the border line
		// layer, in every transition path.
		{
			Spec: render.LayerSpec{
				ID: layerZones, Type: "fill",
				Source: sourceAtlas, SourceLayer: srcLayerZones,
				Paint: map[string]any{
					"fill-pattern": imageZoneHatch,
					"fill-color":   zonesPaint,
					"fill-opacity": 0.7,
				},
			},
			Anchor:  layerBorders,
			Visible: thematic,
		},
	}

	if route {
		set.Layers = append(set.Layers,
			LayerResource{
				Spec: render.LayerSpec{
					ID: layerHillshade, Type: "hillshade",
					Source: sourceTerrain,
					Paint:  map[string]any{"hillshade-exaggeration": 0.35},
				},
				Anchor:  layerCountries,
				Visible: true,
			},
			LayerResource{
				Spec: render.LayerSpec{
					ID: layerRoutes, Type: "line",
					Source: sourceAtlas, SourceLayer: srcLayerRoutes,
					Paint: map[string]any{"line-color": "#2f6f8f", "line-width": 2.5},
				},
				Anchor:  baseAnchor,
				Visible: true,
			},
			LayerResource{
				Spec: render.LayerSpec{
					ID: layerRouteLabels, Type: "symbol",
					Source: sourceAtlas, SourceLayer: srcLayerRoutes,
					Layout: map[string]any{
						"symbol-placement": "line",
						"text-field":       render.Expr{"get", "name"},
						"text-size":        12,
					},
				},
				Visible: true,
			},
		)
	}

	// Highlight layers last, so they draw over their base layers.
	set.Layers = append(set.Layers,
		LayerResource{
			Spec: render.LayerSpec{
				ID: layerZoneHilite, Type: "line",
				Source: sourceAtlas, SourceLayer: srcLayerZones,
				Filter: impossibleFilter("doc_id"),
				Paint:  map[string]any{"line-color": "#1f2328", "line-width": 2.5},
			},
			Anchor:  layerBorders,
			Visible: thematic,
		},
		LayerResource{
			Spec: render.LayerSpec{
				ID: layerBorderHilite, Type: "line",
				Source: sourceAtlas, SourceLayer: srcLayerBorders,
				Filter: impossibleFilter("doc_id"),
				Paint:  map[string]any{"line-color": "#1f2328", "line-width": 3.0},
			},
			Anchor:  baseAnchor,
			Visible: true,
		},
		LayerResource{
			Spec: render.LayerSpec{
				ID: layerPostHilite, Type: "circle",
				Source: sourceAtlas, SourceLayer: srcLayerPosts,
				Filter: impossibleFilter("doc_id"),
				Paint: map[string]any{
					"circle-radius":       7,
					"circle-color":        "#00000000",
					"circle-stroke-color": "#1f2328",
					"circle-stroke-width": 2,
				},
			},
			Anchor:  baseAnchor,
			Visible: thematic,
		},
	)
	if route {
		set.Layers = append(set.Layers, LayerResource{
			Spec: render.LayerSpec{
				ID: layerRouteHilite, Type: "line",
				Source: sourceAtlas, SourceLayer: srcLayerRoutes,
				Filter: impossibleFilter("route_id"),
				Paint:  map[string]any{"line-color": "#163a4d", "line-width": 4.5},
			},
			Anchor:  baseAnchor,
			Visible: true,
		})
	}

	return set
}

// allLayerIDs returns every layer id any mode can create, in creation order.
// Used to hide leftovers from a previous mode during incremental transitions.
func allLayerIDs() []string {
	return []string{
		layerCountries, layerBorders, layerBorderPosts, layerZones,
		layerHillshade, layerRoutes, layerRouteLabels,
		layerZoneHilite, layerBorderHilite, layerPostHilite, layerRouteHilite,
	}
}

// zoneHatch draws the diagonal hatch pattern used as the restricted-zone fill.
func zoneHatch() image.Image {
	const size = 8
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	ink := color.NRGBA{R: 0x1f, G: 0x23, B: 0x28, A: 0xff}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x+y)%4 == 0 {
				img.SetNRGBA(x, y, ink)
			}
		}
	}
	return img
}
