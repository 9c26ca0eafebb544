// Package sync coordinates asynchronous engine readiness with a bounded
// wait.
package sync

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrate/tts"
)

// DefaultInitTimeout bounds how long Initialize waits for readiness.
const DefaultInitTimeout = 10 * time.Second

// ErrTimeout is returned by Latch.Wait when no signal arrives in time.
var ErrTimeout = errors.New("timed out waiting for readiness signal")

// Latch is a one-shot readiness handoff between the goroutine reporting
// readiness and the goroutine waiting for it.
type Latch struct {
	once sync.Once
	done chan struct{}
	ok   bool
}

// NewLatch creates an unsignaled latch.
func NewLatch() *Latch {
	return &Latch{done: make(chan struct{})}
}

// Signal records the readiness status. Only the first call has any
// effect; it is safe to call from any goroutine.
func (l *Latch) Signal(ok bool) {
	l.once.Do(func() {
		l.ok = ok
		close(l.done)
	})
}

// Done is closed once the latch has been signaled.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the latch is signaled or the timeout elapses.
func (l *Latch) Wait(timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.done:
		return l.ok, nil
	case <-timer.C:
		return false, ErrTimeout
	}
}

// BindFunc starts an asynchronous bind. It must arrange for signal to be
// called once the mechanism is ready or has failed.
type BindFunc func(signal func(ok bool)) error

// Synchronizer turns an asynchronous bind into a single blocking
// Initialize call and tracks the resulting state.
type Synchronizer struct {
	timeout time.Duration

	mu    sync.Mutex
	state *tts.StateMachine
}

// NewSynchronizer creates a synchronizer. A timeout of zero or less means
// DefaultInitTimeout.
func NewSynchronizer(timeout time.Duration) *Synchronizer {
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	return &Synchronizer{
		timeout: timeout,
		state:   tts.NewStateMachine(),
	}
}

// Timeout returns the bounded wait used by Initialize.
func (s *Synchronizer) Timeout() time.Duration {
	return s.timeout
}

// Initialize runs bind and waits for its readiness signal.
//
// Calling it again once Ready does nothing and returns nil. A bind error,
// a negative signal or a missing signal leave the synchronizer Failed and
// return tts.ErrBackendNotAvailable; a panic in bind returns
// tts.ErrInternal. A signal that arrives after the timeout is ignored.
func (s *Synchronizer) Initialize(bind BindFunc) error {
	s.mu.Lock()
	if s.state.Current() == tts.StateReady {
		s.mu.Unlock()
		return nil
	}
	if !s.state.Transition(tts.StateInitializing) {
		s.mu.Unlock()
		return tts.ErrInternal
	}
	s.mu.Unlock()

	// Each attempt gets its own latch so a late signal from an earlier
	// attempt cannot complete this one.
	latch := NewLatch()
	if err := tts.Guard("bind", func() error { return bind(latch.Signal) }); err != nil {
		s.finish(false)
		if err == tts.ErrInternal {
			return tts.ErrInternal
		}
		log.Debug("bind failed", "err", err)
		return tts.ErrBackendNotAvailable
	}

	ok, err := latch.Wait(s.timeout)
	if err != nil {
		log.Warn("engine did not report readiness", "timeout", s.timeout)
		s.finish(false)
		return tts.ErrBackendNotAvailable
	}

	s.finish(ok)
	if !ok {
		return tts.ErrBackendNotAvailable
	}
	return nil
}

func (s *Synchronizer) finish(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.state.Transition(tts.StateReady)
	} else {
		s.state.Transition(tts.StateFailed)
	}
}

// State returns the current initialization state.
func (s *Synchronizer) State() tts.InitState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Current()
}

// Ready reports whether the last Initialize succeeded.
func (s *Synchronizer) Ready() bool {
	return s.State() == tts.StateReady
}
