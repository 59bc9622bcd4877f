package orchestra

import (
	"log"
	"sync"
	"time"
)

// Op is a scheduled operation body. It must call cancelled() before each
// side-effecting step and stop cleanly when it returns true; operations that
// already started cannot be aborted from outside.
type Op func(cancelled func() bool)

// maxQueued bounds operations that finished their debounce window while an
// earlier one was still running. Rapid toggling drops the oldest queued entry
// instead of growing the queue without bound.
const maxQueued = 3

// Scheduler coalesces mode-change operations on a single channel: a new
// request supersedes any not-yet-started pending request and restarts the
// debounce timer, so only the most recent request actually runs.
//
// Each request captures the generation it was created under; the current
// generation moves forward on every new request, turning superseded
// operations into no-ops at their next cancellation check.
type Scheduler struct {
	mu      sync.Mutex
	window  time.Duration
	gen     uint64
	stop    func() bool // stops the pending debounce timer
	running bool
	queue   []queuedOp

	// startTimer is swappable so tests drive the debounce window manually.
	startTimer func(d time.Duration, fn func()) (stop func() bool)
}

type queuedOp struct {
	gen uint64
	op  Op
}

// NewScheduler creates a scheduler with the given debounce window.
func NewScheduler(window time.Duration) *Scheduler {
	return &Scheduler{
		window: window,
		startTimer: func(d time.Duration, fn func()) func() bool {
			t := time.AfterFunc(d, fn)
			return t.Stop
		},
	}
}

// Schedule requests op to run after the debounce window. Any pending request
// is superseded: its timer stops and its generation goes stale.
func (s *Scheduler) Schedule(op Op) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	gen := s.gen
	if s.stop != nil {
		s.stop()
	}
	s.stop = s.startTimer(s.window, func() { s.fire(gen, op) })
}

// Stale reports whether gen has been superseded by a newer request.
func (s *Scheduler) Stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen != s.gen
}

// fire runs when a debounce window elapses without superseding requests.
func (s *Scheduler) fire(gen uint64, op Op) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.running {
		// An earlier operation is mid-flight (a style reload cannot be
		// aborted). Queue behind it, bounded.
		s.queue = append(s.queue, queuedOp{gen: gen, op: op})
		if len(s.queue) > maxQueued {
			dropped := s.queue[0]
			s.queue = s.queue[1:]
			log.Printf("orchestra: dropping superseded operation (gen %d)", dropped.gen)
		}
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.run(gen, op)
}

func (s *Scheduler) run(gen uint64, op Op) {
	for {
		op(func() bool { return s.Stale(gen) })

		// Pop the newest queued operation and check its staleness in the
		// same critical section that clears running: releasing the lock in
		// between lets fire queue behind a loop iteration that is about to
		// return, stranding that operation.
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		next := s.queue[len(s.queue)-1]
		s.queue = nil
		if next.gen != s.gen {
			// The newest queued entry was itself superseded; its
			// successor's timer has not fired yet and finds the scheduler
			// idle when it does.
			s.running = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		gen, op = next.gen, next.op
	}
}
