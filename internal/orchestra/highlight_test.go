package orchestra

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nomadatlas/mapcore/internal/render"
	"github.com/nomadatlas/mapcore/internal/render/rendertest"
	"github.com/nomadatlas/mapcore/internal/scheme"
)

func newHighlightFixture(t *testing.T) (*rendertest.Fake, *Highlighter) {
	t.Helper()
	f := rendertest.New(baseAnchor)
	newReconciler(f).Apply(ModeStatus, never)

	hl := NewHighlighter(f)
	s := scheme.MustLookup(scheme.Status)
	hl.SetScheme(&s)
	hl.Reapply()
	return f, hl
}

func countryPaint(t *testing.T, f *rendertest.Fake) render.Expr {
	t.Helper()
	v, ok := f.Layers[layerCountries].Paint["fill-color"].(render.Expr)
	if !ok {
		t.Fatalf("country fill-color is %T, want expression", f.Layers[layerCountries].Paint["fill-color"])
	}
	return v
}

func TestSelectCountryDarkensOnlyMatch(t *testing.T) {
	f, hl := newHighlightFixture(t)
	base := countryPaint(t, f)

	if err := hl.Select(Entity{Kind: KindCountry, ID: "UZB"}); err != nil {
		t.Fatal(err)
	}
	got := countryPaint(t, f)
	want := render.Expr{"case", countryMatch("UZB"), scheme.Darken(base), base}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("paint after select:\n got %v\nwant %v", got, want)
	}
}

func TestSelectReplacesSelection(t *testing.T) {
	f, hl := newHighlightFixture(t)

	if err := hl.Select(Entity{Kind: KindZone, ID: "z-1"}); err != nil {
		t.Fatal(err)
	}
	if err := hl.Select(Entity{Kind: KindBorder, ID: "b-7"}); err != nil {
		t.Fatal(err)
	}

	// Exactly B highlighted: the border filter matches b-7, the zone filter
	// is back to impossible.
	wantBorder := render.Expr{"==", render.Expr{"get", "doc_id"}, "b-7"}
	if got := f.Layers[layerBorderHilite].Filter; !reflect.DeepEqual(got, wantBorder) {
		t.Fatalf("border filter %v, want %v", got, wantBorder)
	}
	if got := f.Layers[layerZoneHilite].Filter; !reflect.DeepEqual(got, impossibleFilter("doc_id")) {
		t.Fatalf("zone filter %v, want impossible", got)
	}
	if sel := hl.Selected(); sel == nil || *sel != (Entity{Kind: KindBorder, ID: "b-7"}) {
		t.Fatalf("selected=%v, want border/b-7", sel)
	}
}

func TestSelectThenClearRoundTrip(t *testing.T) {
	f, hl := newHighlightFixture(t)
	basePaint := countryPaint(t, f)
	baseFilters := map[string]render.Expr{}
	for _, rule := range highlightLayers {
		if l, ok := f.Layers[rule.layer]; ok {
			baseFilters[rule.layer] = l.Filter
		}
	}

	if err := hl.Select(Entity{Kind: KindCountry, ID: "KGZ"}); err != nil {
		t.Fatal(err)
	}
	hl.Clear()

	if got := countryPaint(t, f); !reflect.DeepEqual(got, basePaint) {
		t.Fatalf("paint after clear %v, want base %v", got, basePaint)
	}
	for layer, want := range baseFilters {
		if got := f.Layers[layer].Filter; !reflect.DeepEqual(got, want) {
			t.Fatalf("filter on %q after clear %v, want %v", layer, got, want)
		}
	}
	if hl.Selected() != nil {
		t.Fatal("selection should be nil after clear")
	}
}

func TestClearSetsImpossibleFilterNotRemoval(t *testing.T) {
	f, hl := newHighlightFixture(t)
	hl.Clear()
	if !f.HasLayer(layerZoneHilite) {
		t.Fatal("clear must not remove highlight layers")
	}
	if got := f.Layers[layerZoneHilite].Filter; !reflect.DeepEqual(got, impossibleFilter("doc_id")) {
		t.Fatalf("zone filter %v, want impossible", got)
	}
}

func TestSelectBeforeResourcesReady(t *testing.T) {
	f := rendertest.New() // nothing reconciled yet
	hl := NewHighlighter(f)
	s := scheme.MustLookup(scheme.Status)
	hl.SetScheme(&s)

	// Must degrade to no highlight, not panic.
	if err := hl.Select(Entity{Kind: KindZone, ID: "z-3"}); err != nil {
		t.Fatalf("select before ready: %v", err)
	}
	hl.Clear()
}

func TestSelectInvalidID(t *testing.T) {
	_, hl := newHighlightFixture(t)
	cases := []Entity{
		{Kind: KindZone, ID: ""},
		{Kind: KindCountry, ID: "KAZA"},
		{Kind: Kind("planet"), ID: "x"},
	}
	for _, e := range cases {
		if err := hl.Select(e); !errors.Is(err, ErrInvalidEntityID) {
			t.Fatalf("select %v: err=%v, want ErrInvalidEntityID", e, err)
		}
	}
	if hl.Selected() != nil {
		t.Fatal("invalid select must not leave a selection")
	}
}

func TestReapplyAfterReloadRestoresSelection(t *testing.T) {
	f, hl := newHighlightFixture(t)
	if err := hl.Select(Entity{Kind: KindBorderPost, ID: "bp-12"}); err != nil {
		t.Fatal(err)
	}

	if err := <-f.LoadStyle("styles/base-ru.json"); err != nil {
		t.Fatal(err)
	}
	newReconciler(f).Apply(ModeStatus, never)
	hl.Reapply()

	want := render.Expr{"==", render.Expr{"get", "doc_id"}, "bp-12"}
	if got := f.Layers[layerPostHilite].Filter; !reflect.DeepEqual(got, want) {
		t.Fatalf("post filter after reload %v, want %v", got, want)
	}
}
