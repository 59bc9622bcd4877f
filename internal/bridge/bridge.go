// Package bridge exposes a render.Map whose renderer lives in the browser.
//
// Every imperative call is mirrored locally (so existence checks and layout
// reads answer synchronously) and serialized as a command for the viewer's
// MapLibre instance, delivered over the SSE stream. Renderer events travel
// the other way as POSTs: style load results resolve the pending LoadStyle
// future, clicks arrive with their rendered features already attached.
package bridge

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"

	"github.com/paulmach/orb"

	"github.com/nomadatlas/mapcore/internal/render"
)

// Command is one serialized renderer call.
type Command struct {
	Op   string         `json:"op"`
	Args map[string]any `json:"args,omitempty"`
}

type layerState struct {
	spec   render.LayerSpec
	layout map[string]any
}

// Renderer implements render.Map against a remote browser renderer.
type Renderer struct {
	mu      sync.Mutex
	images  map[string]struct{}
	sources map[string]render.SourceSpec
	layers  map[string]*layerState
	view    render.Viewport

	pendingLoad chan error
	clickFn     func(orb.Point, []render.Feature)
	reloadFn    func()

	cmds chan Command
}

var _ render.Map = (*Renderer)(nil)

// NewRenderer creates a remote renderer with an empty resource mirror.
func NewRenderer() *Renderer {
	r := &Renderer{cmds: make(chan Command, 256)}
	r.resetMirror()
	return r
}

func (r *Renderer) resetMirror() {
	r.images = make(map[string]struct{})
	r.sources = make(map[string]render.SourceSpec)
	r.layers = make(map[string]*layerState)
}

// Commands returns the stream the viewer session drains.
func (r *Renderer) Commands() <-chan Command {
	return r.cmds
}

func (r *Renderer) send(op string, args map[string]any) {
	select {
	case r.cmds <- Command{Op: op, Args: args}:
	default:
		// No viewer draining fast enough; dropping is safe because the
		// reconciler repairs state on the next style load event.
		log.Printf("bridge: dropping command %q", op)
	}
}

// LoadStyle forwards the style switch and returns the one-shot future the
// browser resolves via StyleLoaded or StyleFailed.
func (r *Renderer) LoadStyle(url string) <-chan error {
	r.mu.Lock()
	if r.pendingLoad != nil {
		r.pendingLoad <- errors.New("superseded by a newer style load")
	}
	ch := make(chan error, 1)
	r.pendingLoad = ch
	r.mu.Unlock()

	r.send("loadStyle", map[string]any{"url": url})
	return ch
}

// OnUnexpectedReload registers the handler invoked when the browser reports
// a style load nothing requested, which is what a page refresh produces. The
// handler must re-run reconciliation so the resource set is recreated.
func (r *Renderer) OnUnexpectedReload(fn func()) {
	r.mu.Lock()
	r.reloadFn = fn
	r.mu.Unlock()
}

// StyleLoaded reports the browser finished loading a style. The local mirror
// resets either way: the load destroyed every custom resource. An unsolicited
// load additionally triggers the registered resync handler, since no pending
// transition is going to reconcile afterwards.
func (r *Renderer) StyleLoaded() {
	r.mu.Lock()
	pending := r.pendingLoad
	r.pendingLoad = nil
	r.resetMirror()
	fn := r.reloadFn
	r.mu.Unlock()

	if pending != nil {
		pending <- nil
		return
	}
	log.Printf("bridge: unsolicited style load, resyncing")
	if fn != nil {
		fn()
	}
}

// StyleFailed reports a style load error. The browser kept the previous
// style, so the mirror stays as it was.
func (r *Renderer) StyleFailed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingLoad == nil {
		log.Printf("bridge: unexpected style error event: %s", reason)
		return
	}
	r.pendingLoad <- fmt.Errorf("renderer: %s", reason)
	r.pendingLoad = nil
}

func (r *Renderer) HasImage(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.images[id]
	return ok
}

func (r *Renderer) AddImage(id string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode image %q: %w", id, err)
	}

	r.mu.Lock()
	if _, ok := r.images[id]; ok {
		r.mu.Unlock()
		return fmt.Errorf("image %q already exists", id)
	}
	r.images[id] = struct{}{}
	r.mu.Unlock()

	r.send("addImage", map[string]any{
		"id":  id,
		"png": base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	return nil
}

func (r *Renderer) HasSource(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sources[id]
	return ok
}

func (r *Renderer) AddSource(id string, spec render.SourceSpec) error {
	r.mu.Lock()
	if _, ok := r.sources[id]; ok {
		r.mu.Unlock()
		return fmt.Errorf("source %q already exists", id)
	}
	r.sources[id] = spec
	r.mu.Unlock()

	r.send("addSource", map[string]any{"id": id, "spec": spec})
	return nil
}

func (r *Renderer) RemoveSource(id string) error {
	r.mu.Lock()
	if _, ok := r.sources[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("source %q not found", id)
	}
	delete(r.sources, id)
	r.mu.Unlock()

	r.send("removeSource", map[string]any{"id": id})
	return nil
}

func (r *Renderer) HasLayer(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.layers[id]
	return ok
}

func (r *Renderer) AddLayer(spec render.LayerSpec, beforeID string) error {
	r.mu.Lock()
	if _, ok := r.layers[spec.ID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("layer %q already exists", spec.ID)
	}
	layout := make(map[string]any, len(spec.Layout))
	for k, v := range spec.Layout {
		layout[k] = v
	}
	r.layers[spec.ID] = &layerState{spec: spec, layout: layout}
	r.mu.Unlock()

	args := map[string]any{"spec": spec}
	if beforeID != "" {
		args["before"] = beforeID
	}
	r.send("addLayer", args)
	return nil
}

func (r *Renderer) RemoveLayer(id string) error {
	r.mu.Lock()
	if _, ok := r.layers[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("layer %q not found", id)
	}
	delete(r.layers, id)
	r.mu.Unlock()

	r.send("removeLayer", map[string]any{"id": id})
	return nil
}

func (r *Renderer) SetPaintProperty(layerID, prop string, value any) error {
	r.mu.Lock()
	_, ok := r.layers[layerID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("layer %q not found", layerID)
	}
	r.send("setPaint", map[string]any{"layer": layerID, "prop": prop, "value": value})
	return nil
}

func (r *Renderer) SetLayoutProperty(layerID, prop string, value any) error {
	r.mu.Lock()
	l, ok := r.layers[layerID]
	if ok {
		l.layout[prop] = value
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("layer %q not found", layerID)
	}
	r.send("setLayout", map[string]any{"layer": layerID, "prop": prop, "value": value})
	return nil
}

func (r *Renderer) GetLayoutProperty(layerID, prop string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.layers[layerID]
	if !ok {
		return nil, fmt.Errorf("layer %q not found", layerID)
	}
	return l.layout[prop], nil
}

func (r *Renderer) SetFilter(layerID string, filter render.Expr) error {
	r.mu.Lock()
	_, ok := r.layers[layerID]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("layer %q not found", layerID)
	}
	r.send("setFilter", map[string]any{"layer": layerID, "filter": filter})
	return nil
}

// QueryRenderedFeatures cannot be answered synchronously across the bridge;
// clicks arrive from the browser with their features already attached, so
// nothing in the host ever needs this call.
func (r *Renderer) QueryRenderedFeatures(p orb.Point) []render.Feature {
	return nil
}

func (r *Renderer) Viewport() render.Viewport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

func (r *Renderer) SetViewport(v render.Viewport) {
	r.mu.Lock()
	r.view = v
	r.mu.Unlock()
	r.send("setViewport", map[string]any{
		"center": []float64{v.Center[0], v.Center[1]},
		"zoom":   v.Zoom,
	})
}

// ViewportMoved records the camera state the browser reports after user
// interaction, so a later style reload restores the right view.
func (r *Renderer) ViewportMoved(v render.Viewport) {
	r.mu.Lock()
	r.view = v
	r.mu.Unlock()
}

func (r *Renderer) FlyTo(center orb.Point, zoom float64) {
	r.mu.Lock()
	r.view = render.Viewport{Center: center, Zoom: zoom}
	r.mu.Unlock()
	r.send("flyTo", map[string]any{
		"center": []float64{center[0], center[1]},
		"zoom":   zoom,
	})
}

func (r *Renderer) FitBounds(b orb.Bound, padding float64) {
	r.send("fitBounds", map[string]any{
		"bounds":  []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]},
		"padding": padding,
	})
}

func (r *Renderer) OnClick(fn func(p orb.Point, features []render.Feature)) {
	r.mu.Lock()
	r.clickFn = fn
	r.mu.Unlock()
}

// Click feeds a browser click into the orchestrator's handler.
func (r *Renderer) Click(p orb.Point, features []render.Feature) {
	r.mu.Lock()
	fn := r.clickFn
	r.mu.Unlock()
	if fn != nil {
		fn(p, features)
	}
}
