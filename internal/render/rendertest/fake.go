// Package rendertest provides an in-memory render.Map for tests.
package rendertest

import (
	"fmt"
	"image"
	"slices"

	"github.com/paulmach/orb"

	"github.com/nomadatlas/mapcore/internal/render"
)

// Layer is the recorded state of one added layer.
type Layer struct {
	Spec   render.LayerSpec
	Paint  map[string]any
	Layout map[string]any
	Filter render.Expr
}

// Fake is an in-memory render.Map. It is not safe for concurrent use; tests
// drive it from a single goroutine, matching the renderer's event-loop model.
type Fake struct {
	Images  map[string]image.Image
	Sources map[string]render.SourceSpec
	Layers  map[string]*Layer
	Order   []string // layer ids in z-order, bottom first

	View     render.Viewport
	FlyCalls []render.Viewport
	FitCalls []orb.Bound

	// StyleErr, when set, is delivered to the next LoadStyle future.
	StyleErr error
	// LoadedStyles records every LoadStyle URL in order.
	LoadedStyles []string
	// PendingLoad holds the future of an unresolved LoadStyle when Manual
	// is true; tests resolve it by calling FinishLoad.
	Manual      bool
	pendingLoad chan error

	// Features is returned from QueryRenderedFeatures.
	Features []render.Feature

	// OnLoad, when set, is called inside LoadStyle with the requested URL.
	// Tests use it to synchronize with operations running in goroutines.
	OnLoad func(url string)

	clickFn func(orb.Point, []render.Feature)
	base    []string
}

// New returns an empty fake with a few base-map layers that a freshly loaded
// style would contain.
func New(baseLayers ...string) *Fake {
	f := &Fake{base: baseLayers}
	f.reset(baseLayers)
	return f
}

func (f *Fake) reset(baseLayers []string) {
	f.Images = map[string]image.Image{}
	f.Sources = map[string]render.SourceSpec{}
	f.Layers = map[string]*Layer{}
	f.Order = nil
	for _, id := range baseLayers {
		f.Layers[id] = &Layer{
			Spec:   render.LayerSpec{ID: id, Type: "line"},
			Paint:  map[string]any{},
			Layout: map[string]any{},
		}
		f.Order = append(f.Order, id)
	}
}

// LoadStyle simulates a style reload: every custom resource is destroyed and
// only the given base layers survive into the new style.
func (f *Fake) LoadStyle(url string) <-chan error {
	f.LoadedStyles = append(f.LoadedStyles, url)
	if f.OnLoad != nil {
		f.OnLoad(url)
	}
	ch := make(chan error, 1)
	if f.Manual {
		f.pendingLoad = ch
		return ch
	}
	f.finishInto(ch)
	return ch
}

// FinishLoad resolves the pending manual LoadStyle future.
func (f *Fake) FinishLoad() {
	if f.pendingLoad == nil {
		panic("rendertest: no pending style load")
	}
	ch := f.pendingLoad
	f.pendingLoad = nil
	f.finishInto(ch)
}

func (f *Fake) finishInto(ch chan error) {
	if f.StyleErr != nil {
		ch <- f.StyleErr
		return
	}
	// The reload wipes the resource namespace; only the style's own base
	// layers survive, and the camera resets with the new style.
	f.reset(f.base)
	f.View = render.Viewport{}
	ch <- nil
}

func (f *Fake) HasImage(id string) bool { _, ok := f.Images[id]; return ok }

func (f *Fake) AddImage(id string, img image.Image) error {
	if f.HasImage(id) {
		return fmt.Errorf("image %q already exists", id)
	}
	f.Images[id] = img
	return nil
}

func (f *Fake) HasSource(id string) bool { _, ok := f.Sources[id]; return ok }

func (f *Fake) AddSource(id string, spec render.SourceSpec) error {
	if f.HasSource(id) {
		return fmt.Errorf("source %q already exists", id)
	}
	f.Sources[id] = spec
	return nil
}

func (f *Fake) RemoveSource(id string) error {
	if !f.HasSource(id) {
		return fmt.Errorf("source %q not found", id)
	}
	delete(f.Sources, id)
	return nil
}

func (f *Fake) HasLayer(id string) bool { _, ok := f.Layers[id]; return ok }

func (f *Fake) AddLayer(spec render.LayerSpec, beforeID string) error {
	if f.HasLayer(spec.ID) {
		return fmt.Errorf("layer %q already exists", spec.ID)
	}
	l := &Layer{Spec: spec, Paint: map[string]any{}, Layout: map[string]any{}, Filter: spec.Filter}
	for k, v := range spec.Paint {
		l.Paint[k] = v
	}
	for k, v := range spec.Layout {
		l.Layout[k] = v
	}
	f.Layers[spec.ID] = l
	if i := slices.Index(f.Order, beforeID); beforeID != "" && i >= 0 {
		f.Order = slices.Insert(f.Order, i, spec.ID)
	} else {
		f.Order = append(f.Order, spec.ID)
	}
	return nil
}

func (f *Fake) RemoveLayer(id string) error {
	if !f.HasLayer(id) {
		return fmt.Errorf("layer %q not found", id)
	}
	delete(f.Layers, id)
	if i := slices.Index(f.Order, id); i >= 0 {
		f.Order = slices.Delete(f.Order, i, i+1)
	}
	return nil
}

func (f *Fake) layer(id string) (*Layer, error) {
	l, ok := f.Layers[id]
	if !ok {
		return nil, fmt.Errorf("layer %q not found", id)
	}
	return l, nil
}

func (f *Fake) SetPaintProperty(layerID, prop string, value any) error {
	l, err := f.layer(layerID)
	if err != nil {
		return err
	}
	l.Paint[prop] = value
	return nil
}

func (f *Fake) SetLayoutProperty(layerID, prop string, value any) error {
	l, err := f.layer(layerID)
	if err != nil {
		return err
	}
	l.Layout[prop] = value
	return nil
}

func (f *Fake) GetLayoutProperty(layerID, prop string) (any, error) {
	l, err := f.layer(layerID)
	if err != nil {
		return nil, err
	}
	return l.Layout[prop], nil
}

func (f *Fake) SetFilter(layerID string, filter render.Expr) error {
	l, err := f.layer(layerID)
	if err != nil {
		return err
	}
	l.Filter = filter
	return nil
}

func (f *Fake) QueryRenderedFeatures(p orb.Point) []render.Feature {
	return f.Features
}

func (f *Fake) Viewport() render.Viewport     { return f.View }
func (f *Fake) SetViewport(v render.Viewport) { f.View = v }

func (f *Fake) FlyTo(center orb.Point, zoom float64) {
	f.View = render.Viewport{Center: center, Zoom: zoom}
	f.FlyCalls = append(f.FlyCalls, f.View)
}

func (f *Fake) FitBounds(b orb.Bound, padding float64) {
	f.FitCalls = append(f.FitCalls, b)
}

func (f *Fake) OnClick(fn func(orb.Point, []render.Feature)) { f.clickFn = fn }

// Click delivers a click with the given features to the registered handler.
func (f *Fake) Click(p orb.Point, features []render.Feature) {
	if f.clickFn != nil {
		f.clickFn(p, features)
	}
}
