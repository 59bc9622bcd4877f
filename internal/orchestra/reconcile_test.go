package orchestra

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/nomadatlas/mapcore/internal/render"
	"github.com/nomadatlas/mapcore/internal/render/rendertest"
)

var never = func() bool { return false }

var testResources = ResourceConfig{
	SourceURL:  "pmtiles://atlas.pmtiles",
	TerrainURL: "pmtiles://terrain.pmtiles",
}

func newReconciler(f *rendertest.Fake) *Reconciler {
	r := NewReconciler(f, testResources)
	r.sleep = func(time.Duration) {}
	return r
}

func TestReconcileFirstLoadCreatesEverything(t *testing.T) {
	f := rendertest.New(baseAnchor)
	r := newReconciler(f)

	results := r.Apply(ModeStatus, never)
	for _, res := range results {
		if res.Err != nil {
			t.Fatalf("resource %q: %v", res.ID, res.Err)
		}
	}
	if missing := r.MissingResources(ModeStatus); len(missing) != 0 {
		t.Fatalf("missing after apply: %v", missing)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := rendertest.New(baseAnchor)
	r := newReconciler(f)
	r.Apply(ModeStatus, never)

	for _, res := range r.Apply(ModeStatus, never) {
		if res.Created {
			t.Fatalf("resource %q created twice", res.ID)
		}
		if res.Err != nil {
			t.Fatalf("resource %q: %v", res.ID, res.Err)
		}
	}
}

func TestReconcileAfterStyleReload(t *testing.T) {
	f := rendertest.New(baseAnchor)
	r := newReconciler(f)
	r.Apply(ModeRoute, never)

	// The reload destroys every custom resource behind the reconciler's back.
	if err := <-f.LoadStyle("styles/base-en.json"); err != nil {
		t.Fatal(err)
	}
	if len(f.Sources) != 0 {
		t.Fatalf("reload should wipe sources, left %v", f.Sources)
	}

	r.Apply(ModeStatus, never)

	if missing := r.MissingResources(ModeStatus); len(missing) != 0 {
		t.Fatalf("missing after reload+apply: %v", missing)
	}
	// No extras either: actual ids must equal required ids plus the base map.
	required := map[string]bool{baseAnchor: true}
	set := requiredResources(testResources, ModeStatus)
	for _, l := range set.Layers {
		required[l.Spec.ID] = true
	}
	for id := range f.Layers {
		if !required[id] {
			t.Fatalf("unexpected layer %q after reload", id)
		}
	}
}

func TestZoneLayersAnchorBeforeBorders(t *testing.T) {
	f := rendertest.New(baseAnchor)
	newReconciler(f).Apply(ModeStatus, never)

	borders := slices.Index(f.Order, layerBorders)
	zones := slices.Index(f.Order, layerZones)
	zoneHl := slices.Index(f.Order, layerZoneHilite)
	if zones == -1 || zoneHl == -1 || borders == -1 {
		t.Fatalf("layers missing from order %v", f.Order)
	}
	if zones > borders || zoneHl > borders {
		t.Fatalf("zones=%d zoneHighlight=%d must precede borders=%d", zones, zoneHl, borders)
	}
}

func TestLeavingRouteHidesRouteUnit(t *testing.T) {
	f := rendertest.New(baseAnchor)
	r := newReconciler(f)
	r.Apply(ModeRoute, never)
	r.Apply(ModeStatus, never)

	for _, id := range routeOnly {
		l, ok := f.Layers[id]
		if !ok {
			t.Fatalf("route layer %q was deleted, not hidden", id)
		}
		if v := l.Layout["visibility"]; v != "none" {
			t.Fatalf("route layer %q visibility %v, want none", id, v)
		}
	}
	for _, id := range []string{layerCountries, layerBorders, layerBorderPosts} {
		if v := f.Layers[id].Layout["visibility"]; v != "visible" {
			t.Fatalf("layer %q visibility %v, want visible", id, v)
		}
	}
}

// stuckLayoutMap never confirms visibility, forcing verification timeouts.
type stuckLayoutMap struct {
	*rendertest.Fake
}

func (m *stuckLayoutMap) GetLayoutProperty(layerID, prop string) (any, error) {
	return "pending", nil
}

func TestVerificationTimeoutIsNonFatal(t *testing.T) {
	f := &stuckLayoutMap{Fake: rendertest.New(baseAnchor)}
	r := NewReconciler(f, testResources)
	r.pollTimeout = 0
	r.sleep = func(time.Duration) {}

	results := r.Apply(ModeStatus, never)

	var timeouts int
	for _, res := range results {
		if errors.Is(res.Err, ErrVerificationTimeout) {
			timeouts++
		}
	}
	if timeouts == 0 {
		t.Fatal("expected verification timeouts")
	}
	// Verification failures must not stop creation of the rest.
	if missing := r.MissingResources(ModeStatus); len(missing) != 0 {
		t.Fatalf("missing despite non-fatal verification: %v", missing)
	}
}

func TestReconcileStopsWhenCancelled(t *testing.T) {
	f := rendertest.New(baseAnchor)
	r := newReconciler(f)

	calls := 0
	cancelled := func() bool {
		calls++
		return calls > 2
	}
	r.Apply(ModeStatus, cancelled)

	if len(f.Layers) != 1 { // only the base anchor
		t.Fatalf("cancelled reconcile still created layers: %v", f.Order)
	}
}

func TestMissingAnchorAppends(t *testing.T) {
	f := rendertest.New() // style without the anchor layer
	r := newReconciler(f)
	for _, res := range r.Apply(ModeStatus, never) {
		if res.Err != nil {
			t.Fatalf("resource %q: %v", res.ID, res.Err)
		}
	}
	if missing := r.MissingResources(ModeStatus); len(missing) != 0 {
		t.Fatalf("missing: %v", missing)
	}
}

var _ render.Map = (*stuckLayoutMap)(nil)
