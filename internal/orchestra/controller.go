package orchestra

import (
	"fmt"
	"log"
	"sync"

	"github.com/nomadatlas/mapcore/internal/render"
	"github.com/nomadatlas/mapcore/internal/scheme"
)

// StyleURLFunc resolves the style document URL for a style family ("base" or
// "climate") and language. Style documents are opaque external assets; the
// controller only hands their URL to the renderer.
type StyleURLFunc func(styleKey, lang string) string

// Controller is the finite state machine over display modes.
//
// Transitions into or out of climate mode, and language changes, require a
// full style reload: capture viewport, load the new style document, restore
// the viewport, reconcile resources, reapply paint and highlight. Transitions
// among the remaining modes are incremental: visibility flags and paint only.
// Either way the work runs as a debounced, cooperatively cancellable
// operation; an in-flight style reload itself can never be aborted, so a
// superseding request reconciles for the latest mode after the reload's
// future resolves.
type Controller struct {
	m        render.Map
	rec      *Reconciler
	sched    *Scheduler
	hl       *Highlighter
	styleURL StyleURLFunc

	onModeChanged      func(Mode)
	onTransitionFailed func(target Mode, err error)

	mu          sync.Mutex
	mode        Mode
	requested   Mode // most recently requested target, == mode when idle
	lang        string
	loadedStyle string // style family + language currently loaded, "" before first load
	ready       bool
}

// ControllerConfig wires a controller.
type ControllerConfig struct {
	Mode     Mode
	Language string
	StyleURL StyleURLFunc

	ModeChanged      func(Mode)
	TransitionFailed func(target Mode, err error)
}

// NewController creates the mode state machine. Call Start to load the
// initial mode.
func NewController(m render.Map, rec *Reconciler, sched *Scheduler, hl *Highlighter, cfg ControllerConfig) *Controller {
	return &Controller{
		m:                  m,
		rec:                rec,
		sched:              sched,
		hl:                 hl,
		styleURL:           cfg.StyleURL,
		onModeChanged:      cfg.ModeChanged,
		onTransitionFailed: cfg.TransitionFailed,
		mode:               cfg.Mode,
		requested:          cfg.Mode,
		lang:               cfg.Language,
	}
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Language returns the active language.
func (c *Controller) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang
}

// Start schedules the initial style load and reconciliation.
func (c *Controller) Start() {
	c.mu.Lock()
	target := c.mode
	c.mu.Unlock()
	c.sched.Schedule(func(cancelled func() bool) {
		c.transition(target, cancelled)
	})
}

// SetMode requests a transition to target. Re-requesting the latest target is
// a no-op, checked before any work begins; a different target supersedes any
// pending request (latest wins).
func (c *Controller) SetMode(target Mode) error {
	if _, err := ParseMode(target.String()); err != nil {
		return err
	}
	c.mu.Lock()
	if c.requested == target {
		c.mu.Unlock()
		return nil
	}
	c.requested = target
	c.mu.Unlock()
	c.sched.Schedule(func(cancelled func() bool) {
		c.transition(target, cancelled)
	})
	return nil
}

// Refresh schedules a full style reload and reconciliation for the latest
// requested mode. Used when the renderer restarted behind the controller's
// back and lost every custom resource.
func (c *Controller) Refresh() {
	c.mu.Lock()
	target := c.requested
	c.loadedStyle = ""
	c.ready = false
	c.mu.Unlock()
	c.sched.Schedule(func(cancelled func() bool) {
		c.transition(target, cancelled)
	})
}

// SetLanguage switches the style language. Always a full reload, because the
// style document carries the label language.
func (c *Controller) SetLanguage(lang string) {
	c.mu.Lock()
	if lang == c.lang {
		c.mu.Unlock()
		return
	}
	c.lang = lang
	target := c.requested
	c.mu.Unlock()
	c.sched.Schedule(func(cancelled func() bool) {
		c.transition(target, cancelled)
	})
}

// transition is the operation body run by the scheduler.
func (c *Controller) transition(target Mode, cancelled func() bool) {
	c.mu.Lock()
	lang := c.lang
	styleKey := target.styleKey() + "/" + lang
	reload := c.loadedStyle != styleKey
	noop := !reload && c.ready && c.mode == target
	c.mu.Unlock()

	if noop || cancelled() {
		return
	}

	if reload {
		// Viewport survives the reload by explicit capture/restore.
		vp := c.m.Viewport()
		url := c.styleURL(target.styleKey(), lang)
		if err := <-c.m.LoadStyle(url); err != nil {
			// Abandoned: the renderer kept the previous style, so the
			// previous mode's visual state is intact.
			err = fmt.Errorf("%w: %s: %v", ErrStyleLoad, url, err)
			log.Printf("orchestra: %v", err)
			c.mu.Lock()
			if c.requested == target {
				// Allow the same target to be requested again.
				c.requested = c.mode
			}
			c.mu.Unlock()
			if c.onTransitionFailed != nil {
				c.onTransitionFailed(target, err)
			}
			return
		}
		c.mu.Lock()
		c.loadedStyle = styleKey
		c.mu.Unlock()

		// Restore before reconciling; the new style reset the camera.
		c.m.SetViewport(vp)

		if cancelled() {
			// A superseding request is queued behind this reload and
			// reconciles for the latest mode.
			return
		}
	}

	c.rec.Apply(target, cancelled)
	if cancelled() {
		return
	}

	c.hl.SetScheme(countrySchemeFor(target))
	c.hl.Reapply()

	c.mu.Lock()
	changed := !c.ready || c.mode != target
	c.mode = target
	c.ready = true
	c.mu.Unlock()

	if changed && c.onModeChanged != nil {
		c.onModeChanged(target)
	}
}

// countrySchemeFor resolves the country paint scheme for a mode, falling back
// to the default scheme if the mode names an unknown one.
func countrySchemeFor(mode Mode) *scheme.Scheme {
	name := mode.countryScheme()
	if name == "" {
		return nil
	}
	s, err := scheme.Lookup(name)
	if err != nil {
		log.Printf("orchestra: %v, falling back to %q", err, scheme.DefaultScheme)
		s = scheme.MustLookup(scheme.DefaultScheme)
	}
	return &s
}
