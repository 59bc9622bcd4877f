package bridge

import (
	"image"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/nomadatlas/mapcore/internal/render"
)

func drain(t *testing.T, r *Renderer) []Command {
	t.Helper()
	var out []Command
	for {
		select {
		case cmd := <-r.Commands():
			out = append(out, cmd)
		default:
			return out
		}
	}
}

func TestMirrorAnswersExistenceAndLayout(t *testing.T) {
	r := NewRenderer()

	if r.HasLayer("atlas-zones") {
		t.Fatal("HasLayer() = true on empty mirror")
	}
	spec := render.LayerSpec{
		ID:     "atlas-zones",
		Type:   "fill",
		Layout: map[string]any{"visibility": "visible"},
	}
	if err := r.AddLayer(spec, ""); err != nil {
		t.Fatalf("AddLayer() error = %v", err)
	}
	if !r.HasLayer("atlas-zones") {
		t.Fatal("HasLayer() = false after AddLayer")
	}

	v, err := r.GetLayoutProperty("atlas-zones", "visibility")
	if err != nil {
		t.Fatalf("GetLayoutProperty() error = %v", err)
	}
	if v != "visible" {
		t.Errorf("visibility = %v, want visible", v)
	}

	if err := r.SetLayoutProperty("atlas-zones", "visibility", "none"); err != nil {
		t.Fatalf("SetLayoutProperty() error = %v", err)
	}
	v, _ = r.GetLayoutProperty("atlas-zones", "visibility")
	if v != "none" {
		t.Errorf("visibility = %v after set, want none", v)
	}
}

func TestDuplicateAndMissingResourcesError(t *testing.T) {
	r := NewRenderer()

	if err := r.AddSource("atlas", render.SourceSpec{Type: "vector"}); err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}
	if err := r.AddSource("atlas", render.SourceSpec{Type: "vector"}); err == nil {
		t.Fatal("duplicate AddSource() = nil error")
	}
	if err := r.RemoveLayer("nope"); err == nil {
		t.Fatal("RemoveLayer(missing) = nil error")
	}
	if err := r.SetFilter("nope", render.Expr{"==", "a", "b"}); err == nil {
		t.Fatal("SetFilter(missing) = nil error")
	}
}

func TestCommandsAreForwardedInOrder(t *testing.T) {
	r := NewRenderer()
	drain(t, r)

	r.AddSource("atlas", render.SourceSpec{Type: "vector", URL: "pmtiles:///tiles/atlas.pmtiles"})
	r.AddLayer(render.LayerSpec{ID: "atlas-zones", Type: "fill", Source: "atlas"}, "atlas-borders")
	r.SetPaintProperty("atlas-zones", "fill-color", "#b3383e")

	cmds := drain(t, r)
	if len(cmds) != 3 {
		t.Fatalf("got %d commands, want 3", len(cmds))
	}
	want := []string{"addSource", "addLayer", "setPaint"}
	for i, op := range want {
		if cmds[i].Op != op {
			t.Errorf("cmds[%d].Op = %q, want %q", i, cmds[i].Op, op)
		}
	}
	if cmds[1].Args["before"] != "atlas-borders" {
		t.Errorf("addLayer before = %v, want atlas-borders", cmds[1].Args["before"])
	}
}

func TestStyleLoadResolvesFutureAndResetsMirror(t *testing.T) {
	r := NewRenderer()
	r.AddLayer(render.LayerSpec{ID: "atlas-zones", Type: "fill"}, "")

	done := r.LoadStyle("/styles/base-en.json")
	select {
	case <-done:
		t.Fatal("future resolved before renderer reported load")
	default:
	}

	r.StyleLoaded()
	if err := <-done; err != nil {
		t.Fatalf("load error = %v, want nil", err)
	}
	if r.HasLayer("atlas-zones") {
		t.Fatal("mirror kept layer across style reload")
	}
}

func TestUnsolicitedStyleLoadResetsMirrorAndResyncs(t *testing.T) {
	r := NewRenderer()
	resyncs := 0
	r.OnUnexpectedReload(func() { resyncs++ })
	if err := r.AddLayer(render.LayerSpec{ID: "atlas-zones", Type: "fill"}, ""); err != nil {
		t.Fatalf("AddLayer() error = %v", err)
	}

	// A page refresh reports a style load no transition requested: the
	// browser came up on a fresh style with every custom resource gone.
	r.StyleLoaded()

	if r.HasLayer("atlas-zones") {
		t.Fatal("mirror kept layer across an unsolicited reload")
	}
	if resyncs != 1 {
		t.Fatalf("resync handler ran %d times, want 1", resyncs)
	}

	// A solicited load must not resync; its transition reconciles itself.
	done := r.LoadStyle("/styles/base-en.json")
	r.StyleLoaded()
	if err := <-done; err != nil {
		t.Fatalf("load error = %v, want nil", err)
	}
	if resyncs != 1 {
		t.Fatalf("resync handler ran %d times after a requested load, want 1", resyncs)
	}
}

func TestStyleFailureKeepsMirror(t *testing.T) {
	r := NewRenderer()
	r.AddLayer(render.LayerSpec{ID: "atlas-zones", Type: "fill"}, "")

	done := r.LoadStyle("/styles/climate-en.json")
	r.StyleFailed("fetch failed")

	if err := <-done; err == nil {
		t.Fatal("load error = nil, want failure")
	}
	if !r.HasLayer("atlas-zones") {
		t.Fatal("mirror lost layer on failed reload")
	}
}

func TestSupersededLoadResolvesWithError(t *testing.T) {
	r := NewRenderer()

	first := r.LoadStyle("/styles/base-en.json")
	second := r.LoadStyle("/styles/climate-en.json")

	if err := <-first; err == nil {
		t.Fatal("superseded load resolved nil")
	}

	r.StyleLoaded()
	if err := <-second; err != nil {
		t.Fatalf("second load error = %v, want nil", err)
	}
}

func TestAddImageEncodesOnce(t *testing.T) {
	r := NewRenderer()
	drain(t, r)

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	if err := r.AddImage("atlas-zone-hatch", img); err != nil {
		t.Fatalf("AddImage() error = %v", err)
	}
	if !r.HasImage("atlas-zone-hatch") {
		t.Fatal("HasImage() = false after AddImage")
	}
	if err := r.AddImage("atlas-zone-hatch", img); err == nil {
		t.Fatal("duplicate AddImage() = nil error")
	}

	cmds := drain(t, r)
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	if cmds[0].Args["png"] == "" {
		t.Error("addImage command has empty png payload")
	}
}

func TestClickDispatchesToHandler(t *testing.T) {
	r := NewRenderer()

	var gotPoint orb.Point
	var gotFeatures []render.Feature
	r.OnClick(func(p orb.Point, features []render.Feature) {
		gotPoint = p
		gotFeatures = features
	})

	features := []render.Feature{{
		SourceLayer: "zones",
		Properties:  geojson.Properties{"doc_id": "Z-17"},
	}}
	r.Click(orb.Point{68.5, 42.1}, features)

	if gotPoint != (orb.Point{68.5, 42.1}) {
		t.Errorf("point = %v", gotPoint)
	}
	if len(gotFeatures) != 1 || gotFeatures[0].Properties.MustString("doc_id") != "Z-17" {
		t.Errorf("features = %v", gotFeatures)
	}
}

func TestViewportRoundTrip(t *testing.T) {
	r := NewRenderer()

	r.SetViewport(render.Viewport{Center: orb.Point{70, 48}, Zoom: 4.5})
	if got := r.Viewport(); got.Zoom != 4.5 {
		t.Errorf("Viewport().Zoom = %v, want 4.5", got.Zoom)
	}

	// Camera moves the browser reports do not re-emit commands.
	drain(t, r)
	r.ViewportMoved(render.Viewport{Center: orb.Point{71, 49}, Zoom: 5})
	if cmds := drain(t, r); len(cmds) != 0 {
		t.Errorf("ViewportMoved emitted %d commands, want 0", len(cmds))
	}
	if got := r.Viewport(); got.Center != (orb.Point{71, 49}) {
		t.Errorf("Viewport().Center = %v", got.Center)
	}
}
