package orchestra

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/nomadatlas/mapcore/internal/render"
)

// defaultDebounce is the mode-change debounce window.
const defaultDebounce = 250 * time.Millisecond

// Config wires an orchestrator to its external inputs. Mode and language are
// supplied from outside; the orchestrator persists neither.
type Config struct {
	Resources ResourceConfig
	StyleURL  StyleURLFunc

	InitialMode Mode
	Language    string

	// DebounceWindow coalesces rapid mode changes. Zero means the default.
	DebounceWindow time.Duration
}

// Callbacks are the host-facing notifications. Nil members are skipped.
type Callbacks struct {
	EntityClicked    func(e Entity, f render.Feature)
	SelectionCleared func()
	ModeChanged      func(Mode)
	TransitionFailed func(target Mode, err error)
}

// Orchestrator owns the map mode and highlight state for one map view.
type Orchestrator struct {
	m    render.Map
	hl   *Highlighter
	ctrl *Controller
	cb   Callbacks
}

// New assembles the orchestrator over an injected renderer handle and
// subscribes to its click events. Call Start to load the initial mode.
func New(m render.Map, cfg Config, cb Callbacks) *Orchestrator {
	if cfg.InitialMode == "" {
		cfg.InitialMode = ModeStatus
	}
	if cfg.DebounceWindow == 0 {
		cfg.DebounceWindow = defaultDebounce
	}

	hl := NewHighlighter(m)
	rec := NewReconciler(m, cfg.Resources)
	sched := NewScheduler(cfg.DebounceWindow)
	ctrl := NewController(m, rec, sched, hl, ControllerConfig{
		Mode:             cfg.InitialMode,
		Language:         cfg.Language,
		StyleURL:         cfg.StyleURL,
		ModeChanged:      cb.ModeChanged,
		TransitionFailed: cb.TransitionFailed,
	})

	o := &Orchestrator{m: m, hl: hl, ctrl: ctrl, cb: cb}
	m.OnClick(o.handleClick)
	return o
}

// Start schedules the initial load.
func (o *Orchestrator) Start() {
	o.ctrl.Start()
}

// Mode returns the active mode.
func (o *Orchestrator) Mode() Mode { return o.ctrl.Mode() }

// Language returns the active language.
func (o *Orchestrator) Language() string { return o.ctrl.Language() }

// Selected returns the current selection, or nil.
func (o *Orchestrator) Selected() *Entity { return o.hl.Selected() }

// SetMode requests a mode transition (debounced).
func (o *Orchestrator) SetMode(m Mode) error { return o.ctrl.SetMode(m) }

// SetLanguage switches the style language (debounced, full reload).
func (o *Orchestrator) SetLanguage(lang string) { o.ctrl.SetLanguage(lang) }

// Refresh forces a style reload and full reconciliation for the current mode,
// for when the renderer restarted and lost its resources.
func (o *Orchestrator) Refresh() { o.ctrl.Refresh() }

// handleClick resolves a renderer click to at most one entity.
func (o *Orchestrator) handleClick(p orb.Point, features []render.Feature) {
	e, f, ok := ResolveHit(features)
	if !ok {
		o.hl.Clear()
		if o.cb.SelectionCleared != nil {
			o.cb.SelectionCleared()
		}
		return
	}
	if err := o.hl.Select(e); err != nil {
		return
	}
	if o.cb.EntityClicked != nil {
		o.cb.EntityClicked(e, f)
	}
}

// Interactions is the imperative surface handed to the host once the view is
// ready.
type Interactions struct {
	ClearSelection   func()
	SelectCountry    func(id string) error
	SelectBorder     func(id string) error
	SelectBorderPost func(id string) error
	SelectZone       func(id string) error
	SelectRoute      func(id string) error
	ZoomTo           func(center orb.Point, zoom float64)
	FitBounds        func(b orb.Bound, padding float64)
}

// Interactions builds the host-facing interaction set.
func (o *Orchestrator) Interactions() Interactions {
	sel := func(kind Kind) func(id string) error {
		return func(id string) error {
			return o.hl.Select(Entity{Kind: kind, ID: id})
		}
	}
	return Interactions{
		ClearSelection: func() {
			o.hl.Clear()
			if o.cb.SelectionCleared != nil {
				o.cb.SelectionCleared()
			}
		},
		SelectCountry:    sel(KindCountry),
		SelectBorder:     sel(KindBorder),
		SelectBorderPost: sel(KindBorderPost),
		SelectZone:       sel(KindZone),
		SelectRoute:      sel(KindRoute),
		ZoomTo:           o.m.FlyTo,
		FitBounds:        o.m.FitBounds,
	}
}
