package representation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionClosed is returned when posting to a closed session.
var ErrSessionClosed = errors.New("session closed")

const sessionQueueSize = 64

// Session runs one Controller on its own goroutine. Every event, the
// postponement callback and every query are applied in arrival order, so the
// controller never sees concurrent calls.
type Session struct {
	ctrl    *Controller
	events  chan Event
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewSession initializes a controller for track and starts its event loop.
// The scheduler in deps is wrapped so postponed updates run on the loop.
func NewSession(track Track, deps Dependencies) *Session {
	s := &Session{
		events:  make(chan Event, sessionQueueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	deps = deps.withDefaults()
	deps.Scheduler = loopScheduler{inner: deps.Scheduler, s: s}
	s.ctrl = NewController(deps)
	s.ctrl.Initialize(track)
	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.quit:
			s.ctrl.Reset()
			return
		case ev := <-s.events:
			ev.apply(s.ctrl)
		}
	}
}

// Post queues ev for the controller.
func (s *Session) Post(ev Event) error {
	select {
	case <-s.quit:
		return ErrSessionClosed
	default:
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.quit:
		return ErrSessionClosed
	}
}

// Do runs fn on the loop and waits for it to return.
func (s *Session) Do(ctx context.Context, fn func(c *Controller)) error {
	done := make(chan struct{})
	if err := s.Post(queryEvent{fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-s.stopped:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close resets the controller and stops the loop. Events still queued are dropped.
func (s *Session) Close() {
	s.once.Do(func() { close(s.quit) })
	<-s.stopped
}

// Done is closed once the loop has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.stopped
}

type loopScheduler struct {
	inner Scheduler
	s     *Session
}

func (l loopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return l.inner.AfterFunc(d, func() {
		_ = l.s.Post(callbackEvent(f))
	})
}
