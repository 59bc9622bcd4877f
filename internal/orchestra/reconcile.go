package orchestra

import (
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/nomadatlas/mapcore/internal/render"
)

// Reconciler makes the renderer's actual resource set match the set required
// by the active mode. It is the only component that creates or removes
// renderer resources; every creation is existence-checked first, so running
// it is safe both on first load and after a style reload destroyed
// everything.
type Reconciler struct {
	m   render.Map
	cfg ResourceConfig

	// Verification polling bounds. Tests zero the sleep.
	pollInterval time.Duration
	pollTimeout  time.Duration
	sleep        func(time.Duration)
}

// NewReconciler creates a reconciler for the given renderer handle.
func NewReconciler(m render.Map, cfg ResourceConfig) *Reconciler {
	return &Reconciler{
		m:            m,
		cfg:          cfg,
		pollInterval: 50 * time.Millisecond,
		pollTimeout:  400 * time.Millisecond,
		sleep:        time.Sleep,
	}
}

// Result reports the outcome for one resource. Err is non-fatal: a failed
// resource never stops the rest of the reconciliation.
type Result struct {
	ID      string
	Created bool
	Err     error
}

// Apply reconciles the renderer against the resource set required by mode.
// Creation runs in fixed dependency order (images, sources, base layers,
// overlay layers, highlight layers); leftover layers from other modes are
// hidden, never deleted. cancelled is checked before each side-effecting step
// so a superseded transition stops cleanly.
func (r *Reconciler) Apply(mode Mode, cancelled func() bool) []Result {
	set := requiredResources(r.cfg, mode)
	var results []Result

	for _, img := range set.Images {
		if cancelled() {
			return results
		}
		results = append(results, r.ensureImage(img))
	}
	for _, src := range set.Sources {
		if cancelled() {
			return results
		}
		results = append(results, r.ensureSource(src))
	}
	for _, layer := range set.Layers {
		if cancelled() {
			return results
		}
		results = append(results, r.ensureLayer(layer))
	}

	// Hide layers no mode-required entry covers. Leaving route mode tears
	// its resources down as a unit, but only by visibility.
	required := make(map[string]bool, len(set.Layers))
	for _, l := range set.Layers {
		required[l.Spec.ID] = true
	}
	for _, id := range allLayerIDs() {
		if cancelled() {
			return results
		}
		if required[id] || !r.m.HasLayer(id) {
			continue
		}
		res := Result{ID: id}
		if err := r.m.SetLayoutProperty(id, "visibility", "none"); err != nil {
			res.Err = fmt.Errorf("hide %q: %w", id, err)
		}
		results = append(results, res)
	}

	for _, res := range results {
		if res.Err != nil {
			log.Printf("orchestra: reconcile %s: %v", res.ID, res.Err)
		}
	}
	return results
}

func (r *Reconciler) ensureImage(img ImageResource) Result {
	res := Result{ID: img.ID}
	if r.m.HasImage(img.ID) {
		return res
	}
	if err := r.m.AddImage(img.ID, img.Bitmap()); err != nil {
		res.Err = fmt.Errorf("add image %q: %w", img.ID, err)
		return res
	}
	res.Created = true
	return res
}

func (r *Reconciler) ensureSource(src SourceResource) Result {
	res := Result{ID: src.ID}
	if r.m.HasSource(src.ID) {
		return res
	}
	if err := r.m.AddSource(src.ID, src.Spec); err != nil {
		res.Err = fmt.Errorf("add source %q: %w", src.ID, err)
		return res
	}
	res.Created = true
	return res
}

func (r *Reconciler) ensureLayer(layer LayerResource) Result {
	id := layer.Spec.ID
	res := Result{ID: id}

	visibility := "visible"
	if !layer.Visible {
		visibility = "none"
	}

	if !r.m.HasLayer(id) {
		spec := layer.Spec
		if spec.Layout == nil {
			spec.Layout = map[string]any{}
		}
		spec.Layout["visibility"] = visibility

		beforeID := ""
		if layer.Anchor != "" && r.m.HasLayer(layer.Anchor) {
			beforeID = layer.Anchor
		}
		if err := r.m.AddLayer(spec, beforeID); err != nil {
			res.Err = fmt.Errorf("add layer %q: %w", id, err)
			return res
		}
		res.Created = true
		res.Err = r.verifyVisibility(id, visibility)
		return res
	}

	if err := r.m.SetLayoutProperty(id, "visibility", visibility); err != nil {
		res.Err = fmt.Errorf("set visibility on %q: %w", id, err)
	}
	return res
}

// verifyVisibility polls, bounded by pollTimeout, that a freshly created layer
// reports the layout visibility it was created with. A timeout is recorded,
// not thrown; the rest of the reconciliation proceeds.
func (r *Reconciler) verifyVisibility(id, want string) error {
	deadline := time.Now().Add(r.pollTimeout)
	for {
		got, err := r.m.GetLayoutProperty(id, "visibility")
		if err == nil {
			if s, ok := got.(string); ok && s == want {
				return nil
			}
			// Renderers report no explicit value for default visibility.
			if got == nil && want == "visible" {
				return nil
			}
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: layer %q visibility %q", ErrVerificationTimeout, id, want)
		}
		r.sleep(r.pollInterval)
	}
}

// MissingResources returns the required resource ids absent from the
// renderer, in dependency order. Used by tests and diagnostics.
func (r *Reconciler) MissingResources(mode Mode) []string {
	set := requiredResources(r.cfg, mode)
	var missing []string
	for _, img := range set.Images {
		if !r.m.HasImage(img.ID) {
			missing = append(missing, img.ID)
		}
	}
	for _, src := range set.Sources {
		if !r.m.HasSource(src.ID) {
			missing = append(missing, src.ID)
		}
	}
	for _, layer := range set.Layers {
		if !r.m.HasLayer(layer.Spec.ID) {
			missing = append(missing, layer.Spec.ID)
		}
	}
	return slices.Clip(missing)
}
