package maviola

import "sync/atomic"

// Closable is the read side of a one-shot, lock-free open→closed flag
// shared between a producer (Closer) and many observers (spec §3
// "Closable"). Every long-running task polls IsClosed between
// iterations and exits once it flips.
type Closable interface {
	IsClosed() bool
	Done() <-chan struct{}
}

// SharedCloser is both the Closer and the Closable: a single flag that
// many goroutines can observe, and that any one of them (or the owner)
// can flip. Build it with NewSharedCloser: the zero value has no done
// channel, so its Close panics and its Done never fires.
type SharedCloser struct {
	closed atomic.Bool
	done   chan struct{}
}

// NewSharedCloser returns an open SharedCloser.
func NewSharedCloser() *SharedCloser {
	return &SharedCloser{done: make(chan struct{})}
}

// Close flips the flag. Safe to call more than once or concurrently;
// only the first call has effect.
func (c *SharedCloser) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.done)
	}
}

// IsClosed reports whether Close has been called.
func (c *SharedCloser) IsClosed() bool {
	return c.closed.Load()
}

// Done returns a channel that is closed once Close has been called; it
// can be selected on alongside transport I/O to cancel promptly instead
// of only polling.
func (c *SharedCloser) Done() <-chan struct{} {
	return c.done
}

// Switch is a second, independent one-shot flag with the same shape as
// SharedCloser. It exists so a component (e.g. the heartbeat emitter) can
// be stopped locally (Deactivate) without closing the whole node.
type Switch struct {
	off  atomic.Bool
	done chan struct{}
}

// NewSwitch returns a switch in the "on" state.
func NewSwitch() *Switch {
	return &Switch{done: make(chan struct{})}
}

// Off flips the switch. Idempotent.
func (s *Switch) Off() {
	if s.off.CompareAndSwap(false, true) {
		close(s.done)
	}
}

// IsOff reports whether Off has been called.
func (s *Switch) IsOff() bool {
	return s.off.Load()
}

// Done returns a channel closed once Off has been called.
func (s *Switch) Done() <-chan struct{} {
	return s.done
}

// Guarded combines a SharedCloser (node-wide shutdown) with a Switch
// (component-local stop); either closes the guard. Used by the heartbeat
// emitter per spec §4.6: "observes a Guarded<SharedCloser, Switch>; both
// the node's close signal and a local switch; either stops it."
type Guarded struct {
	closer *SharedCloser
	sw     *Switch
	done   chan struct{}
}

// NewGuarded builds a Guarded from a node closer and a fresh local switch.
func NewGuarded(closer *SharedCloser) *Guarded {
	g := &Guarded{closer: closer, sw: NewSwitch(), done: make(chan struct{})}
	go func() {
		select {
		case <-g.closer.Done():
		case <-g.sw.Done():
		}
		close(g.done)
	}()
	return g
}

// IsClosed reports whether either the closer or the local switch has
// fired.
func (g *Guarded) IsClosed() bool {
	return g.closer.IsClosed() || g.sw.IsOff()
}

// Done returns a channel closed once either the closer or the switch
// fires.
func (g *Guarded) Done() <-chan struct{} {
	return g.done
}

// Off flips the local switch only, leaving the node-wide closer alone.
func (g *Guarded) Off() {
	g.sw.Off()
}
