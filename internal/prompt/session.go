package prompt

import (
	"context"
	"errors"
)

// ErrSessionStopped is returned when submitting to a session whose loop has exited.
var ErrSessionStopped = errors.New("prompt session stopped")

// DefaultQueueSize is the number of pending events a session buffers.
const DefaultQueueSize = 256

// Snapshot is a consistent view of a session's machine
type Snapshot struct {
	State  State
	Prompt *Prompt
}

// Session owns a Machine and serializes everything that touches it: firmware
// lines, presenter callbacks and command acknowledgements all run on the
// goroutine executing Run.
type Session struct {
	machine *Machine
	events  chan func()
	stopped chan struct{}
}

// NewSession creates a session. Callbacks the machine hands to presenter and
// sink are rerouted through the session loop, so both may invoke them from
// any goroutine.
func NewSession(presenter Presenter, sink CommandSink, opts ...Option) *Session {
	s := &Session{
		events:  make(chan func(), DefaultQueueSize),
		stopped: make(chan struct{}),
	}

	var p Presenter
	if presenter != nil {
		p = serialPresenter{inner: presenter, s: s}
	}
	var c CommandSink
	if sink != nil {
		c = serialSink{inner: sink, s: s}
	}
	s.machine = NewMachine(p, c, opts...)
	return s
}

// Run processes events until ctx is cancelled. It must be called exactly once.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stopped)
	for {
		select {
		case fn := <-s.events:
			fn()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Submit queues a firmware line. It blocks only when the queue is full.
func (s *Session) Submit(ctx context.Context, line string) error {
	return s.enqueue(ctx, func() { s.machine.ProcessLine(line) })
}

// Dismiss queues a user cancellation of the displayed prompt.
func (s *Session) Dismiss(ctx context.Context) error {
	return s.enqueue(ctx, s.machine.Dismiss)
}

// Snapshot returns the machine state as seen by the loop.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	result := make(chan Snapshot, 1)
	err := s.enqueue(ctx, func() {
		result <- Snapshot{State: s.machine.State(), Prompt: s.machine.Prompt()}
	})
	if err != nil {
		return Snapshot{}, err
	}

	select {
	case snap := <-result:
		return snap, nil
	case <-s.stopped:
		return Snapshot{}, ErrSessionStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Session) enqueue(ctx context.Context, fn func()) error {
	select {
	case <-s.stopped:
		return ErrSessionStopped
	default:
	}

	select {
	case s.events <- fn:
		return nil
	case <-s.stopped:
		return ErrSessionStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues a callback from a presenter or sink. Callbacks after the loop
// has stopped are dropped.
func (s *Session) post(fn func()) {
	select {
	case <-s.stopped:
		return
	default:
	}

	select {
	case s.events <- fn:
	case <-s.stopped:
	}
}

type serialPresenter struct {
	inner Presenter
	s     *Session
}

func (p serialPresenter) Display(pr *Prompt, onChoice func(Button), onDismiss func()) Handle {
	return p.inner.Display(pr,
		func(b Button) { p.s.post(func() { onChoice(b) }) },
		func() { p.s.post(onDismiss) },
	)
}

func (p serialPresenter) Teardown(h Handle) {
	p.inner.Teardown(h)
}

type serialSink struct {
	inner CommandSink
	s     *Session
}

func (c serialSink) Send(script string, onAck func()) {
	if onAck == nil {
		c.inner.Send(script, nil)
		return
	}
	c.inner.Send(script, func() { c.s.post(onAck) })
}
