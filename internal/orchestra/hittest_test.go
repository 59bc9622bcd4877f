package orchestra

import (
	"testing"

	"github.com/paulmach/orb/geojson"

	"github.com/nomadatlas/mapcore/internal/render"
)

func feat(sourceLayer string, props map[string]any) render.Feature {
	return render.Feature{SourceLayer: sourceLayer, Properties: geojson.Properties(props)}
}

func TestHitPriorityBorderPostWins(t *testing.T) {
	features := []render.Feature{
		feat(srcLayerCountries, map[string]any{"adm0_a3": "KAZ"}),
		feat(srcLayerBorders, map[string]any{"doc_id": "b-17"}),
		feat(srcLayerPosts, map[string]any{"doc_id": "bp-4"}),
	}
	e, _, ok := ResolveHit(features)
	if !ok {
		t.Fatal("no entity resolved")
	}
	if e.Kind != KindBorderPost || e.ID != "bp-4" {
		t.Fatalf("resolved %v, want border_post/bp-4", e)
	}
}

func TestHitZoneBeatsCountry(t *testing.T) {
	features := []render.Feature{
		feat(srcLayerCountries, map[string]any{"iso_a3": "TKM"}),
		feat(srcLayerZones, map[string]any{"doc_id": "z-9"}),
	}
	e, _, ok := ResolveHit(features)
	if !ok || e.Kind != KindZone || e.ID != "z-9" {
		t.Fatalf("resolved %v ok=%v, want zone/z-9", e, ok)
	}
}

func TestHitRoutePrefersDocumentID(t *testing.T) {
	features := []render.Feature{
		feat(srcLayerRoutes, map[string]any{"name": "Pamir Highway", "route_id": "r-2"}),
	}
	e, _, ok := ResolveHit(features)
	if !ok || e.ID != "r-2" {
		t.Fatalf("resolved %v ok=%v, want route id r-2", e, ok)
	}
}

func TestHitRouteFallsBackToName(t *testing.T) {
	features := []render.Feature{
		feat(srcLayerRoutes, map[string]any{"name": "Pamir Highway"}),
	}
	e, _, ok := ResolveHit(features)
	if !ok || e.ID != "Pamir Highway" {
		t.Fatalf("resolved %v ok=%v, want route by name", e, ok)
	}
}

func TestHitCountryMatchKeyVariants(t *testing.T) {
	for _, key := range countryMatchKeys {
		e, _, ok := ResolveHit([]render.Feature{feat(srcLayerCountries, map[string]any{key: "MNG"})})
		if !ok || e.Kind != KindCountry || e.ID != "MNG" {
			t.Fatalf("key %q: resolved %v ok=%v", key, e, ok)
		}
	}
}

func TestHitNumericID(t *testing.T) {
	e, _, ok := ResolveHit([]render.Feature{feat(srcLayerZones, map[string]any{"doc_id": float64(42)})})
	if !ok || e.ID != "42" {
		t.Fatalf("resolved %v ok=%v, want zone/42", e, ok)
	}
}

func TestHitNothingResolvesToNone(t *testing.T) {
	features := []render.Feature{
		feat("waterways", map[string]any{"name": "Irtysh"}),
		feat(srcLayerCountries, map[string]any{}), // no id attribute
	}
	if e, _, ok := ResolveHit(features); ok {
		t.Fatalf("resolved %v, want none", e)
	}
}
