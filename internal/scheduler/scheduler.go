// Package scheduler cycles a host runtime through its loaded sandbox
// apps: each gets a setup() call, then repeated run() calls at its
// own refresh period, until an event from the event listener swaps it
// out, pauses the rotation, or shuts the whole thing down.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ssnover/megabit/pkg/log"
)

// eventQueueCapacity bounds how many control events can be pending
// before Post starts dropping them; the scheduler drains the queue
// once per loop iteration, never less often than one run() call.
const eventQueueCapacity = 32

// App is the subset of *sandbox.App the scheduler depends on. It is
// kept as an interface so the rotation logic can be exercised without
// compiling real WASM binaries; sandbox.App satisfies it directly.
type App interface {
	Name() string
	RefreshPeriod() time.Duration
	Setup(ctx context.Context) error
	Run(ctx context.Context) error
}

// Scheduler owns the cyclic app list, the cursor into it, and the
// paused flag. It is not safe for concurrent use except via Post,
// which is the only method meant to be called from another goroutine
// while Run is active.
type Scheduler struct {
	apps      []App
	setupDone []bool
	cursor    int
	paused    bool

	events chan EventType
	log    log.Logger
}

// New constructs a Scheduler over apps, starting at the first app,
// unpaused.
func New(apps []App, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Scheduler{
		apps:      apps,
		setupDone: make([]bool, len(apps)),
		events:    make(chan EventType, eventQueueCapacity),
		log:       logger,
	}
}

// CurrentApp returns the name of the app at the cursor, or "" if none
// are loaded.
func (s *Scheduler) CurrentApp() string {
	if len(s.apps) == 0 {
		return ""
	}
	return s.apps[s.cursor].Name()
}

// Paused reports whether the rotation is currently paused.
func (s *Scheduler) Paused() bool { return s.paused }

// Post enqueues an event for the scheduler to handle at its next loop
// boundary. It never blocks: a full queue means the scheduler is
// falling behind, and the event is dropped with a warning rather than
// stalling whatever is posting it (the event listener, the console).
func (s *Scheduler) Post(e EventType) {
	select {
	case s.events <- e:
	default:
		s.log.Warnf("scheduler: event queue full, dropping %s", e)
	}
}

// Run executes the main loop until ctx is cancelled or a Shutdown
// event is handled. A run() trap is fatal only for the app that
// caused it; the scheduler logs it and advances. If every app in a
// full cycle fails to load, Run returns an error rather than spin.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.apps) == 0 {
		return fmt.Errorf("scheduler: no apps loaded")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !s.paused {
			if err := s.ensureSetup(ctx, s.cursor); err != nil {
				if !s.advance(ctx, 1) {
					return fmt.Errorf("scheduler: %w", err)
				}
				continue
			}

			app := s.apps[s.cursor]
			deadline := time.Now().Add(app.RefreshPeriod())
			if err := app.Run(ctx); err != nil {
				s.log.Errorf("scheduler: %s trapped: %v", app.Name(), err)
				s.setupDone[s.cursor] = false
				if !s.advance(ctx, 1) {
					return fmt.Errorf("scheduler: %w", err)
				}
				continue
			}
			sleepUntil(ctx, deadline)
		}

		if s.drainEvents(ctx) {
			return nil
		}
	}
}

// ensureSetup calls an app's setup() exactly once, memoized in
// setupDone, so a trapped run() that only resets its own flag doesn't
// re-run setup on apps that never failed.
func (s *Scheduler) ensureSetup(ctx context.Context, idx int) error {
	if s.setupDone[idx] {
		return nil
	}
	app := s.apps[idx]
	if err := app.Setup(ctx); err != nil {
		s.log.Errorf("scheduler: %s failed setup: %v", app.Name(), err)
		return err
	}
	s.setupDone[idx] = true
	return nil
}

// advance moves the cursor by step (+1 or -1, wrapping) until it
// finds an app that is already set up or whose setup() succeeds. It
// gives up after trying every app once and returns false.
func (s *Scheduler) advance(ctx context.Context, step int) bool {
	n := len(s.apps)
	start := s.cursor
	for i := 1; i <= n; i++ {
		candidate := ((start+step*i)%n + n) % n
		s.cursor = candidate
		if s.ensureSetup(ctx, candidate) == nil {
			return true
		}
		if candidate == start {
			break
		}
	}
	s.log.Errorf("scheduler: no loadable app found in a full cycle")
	return false
}

// drainEvents processes every event currently queued without
// blocking, returning true if a Shutdown was among them.
func (s *Scheduler) drainEvents(ctx context.Context) bool {
	for {
		select {
		case e := <-s.events:
			if s.handle(ctx, e) {
				return true
			}
		default:
			return false
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, e EventType) (shutdown bool) {
	switch e {
	case NextAppRequest:
		s.advance(ctx, 1)
	case PreviousAppRequest:
		s.advance(ctx, -1)
	case ResumePauseRequest:
		s.paused = !s.paused
	case PauseRequest:
		s.paused = true
	case ResumeRequest:
		s.paused = false
	case ReloadAppsRequest:
		s.log.Debugf("scheduler: reload-apps requested; reloading the app set is not implemented")
	case Shutdown:
		return true
	}
	return false
}

func sleepUntil(ctx context.Context, deadline time.Time) {
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
