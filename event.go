package maviola

import "time"

// Event is the node's event vocabulary (spec §4.9): NewPeer, PeerLost,
// Frame and Invalid. Modeled as a small closed interface with one
// concrete type per variant, switched on with a type switch — the same
// idiom the teacher's node.go uses for *EventFrame et al.
type Event interface{ isEvent() }

// NewPeerEvent fires the first time a heartbeat is seen from a peer.
type NewPeerEvent struct{ Peer Peer }

func (NewPeerEvent) isEvent() {}

// PeerLostEvent fires when the inactive-peer monitor evicts a peer.
type PeerLostEvent struct{ Peer Peer }

func (PeerLostEvent) isEvent() {}

// FrameEvent carries a frame that passed the processor pipeline, paired
// with the Callback to reply/broadcast/forward from.
type FrameEvent struct {
	Frame    Frame
	Callback *Callback
}

func (FrameEvent) isEvent() {}

// InvalidEvent carries a frame that the processor pipeline rejected,
// paired with the reason and a Callback (so even a rejected frame's
// source channel can still be replied to/routed around).
type InvalidEvent struct {
	Frame    Frame
	Err      *FrameError
	Callback *Callback
}

func (InvalidEvent) isEvent() {}

// eventDistributor is the broadcast channel of Events with at least one
// cloneable receiver per node (spec §4.9).
type eventDistributor struct {
	bus *broadcast[Event]
}

func newEventDistributor(capacity int) *eventDistributor {
	return &eventDistributor{bus: newBroadcast[Event](capacity)}
}

func (d *eventDistributor) publish(e Event) error { return d.bus.Send(e) }

func (d *eventDistributor) close() { d.bus.Close() }

func (d *eventDistributor) subscribe() *EventReceiver {
	return &EventReceiver{r: d.bus.Subscribe()}
}

// EventReceiver exposes the three consumption modes of spec §4.9:
// blocking Recv, timed RecvTimeout, and non-blocking TryRecv, plus a
// Stream() channel adapter for range loops.
type EventReceiver struct {
	r *broadcastReceiver[Event]
}

// Recv blocks until an event is available or closer fires.
func (r *EventReceiver) Recv(closer Closable) (Event, error) {
	return r.r.Recv(closer)
}

// RecvTimeout blocks up to d for an event.
func (r *EventReceiver) RecvTimeout(closer Closable, d time.Duration) (Event, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	return r.r.RecvTimeout(closer, timer.C)
}

// TryRecv returns immediately: ErrEmpty if nothing is queued, or a
// LaggedError if this receiver fell behind (spec §4.9).
func (r *EventReceiver) TryRecv() (Event, error) {
	return r.r.TryRecv()
}

// Stream returns a channel of events for range-style consumption,
// matching the teacher's `for evt := range node.Events()` idiom. The
// channel closes once closer fires or the distributor closes.
func (r *EventReceiver) Stream(closer Closable) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			evt, err := r.Recv(closer)
			if err != nil {
				return
			}
			select {
			case out <- evt:
			case <-closer.Done():
				return
			}
		}
	}()
	return out
}

// Release drops this subscription.
func (r *EventReceiver) Release() { r.r.Release() }
