package maviola

import (
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/istalabs/maviola/message"
)

// Node composes a Connection, a FrameProcessor, a peer table and an event
// distributor into the public entry point of the package (spec §4.11).
// Build it with NodeConf.Build. Once Close has run, SendFrame, Send,
// RecvFrame, RecvFrameTimeout and Activate return ErrClosed (Send and
// Activate first apply their checks for nodes that cannot originate
// frames); the other methods return no error.
type Node struct {
	version  Version
	endpoint *Endpoint // nil for a proxy node

	conn      *Connection
	processor *FrameProcessor
	peers     *peerTable

	distributor *eventDistributor

	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	dialectVersion    uint8

	loggerFactory logging.LoggerFactory
	logger        logging.LeveledLogger

	mu        sync.Mutex
	heartbeat *heartbeatEmitter

	recvOnce sync.Once
	recvSub  *EventReceiver
}

// ID returns the identity of the node's underlying connection.
func (n *Node) ID() ConnectionId { return n.conn.ID() }

// IsClosed reports whether Close has run.
func (n *Node) IsClosed() bool { return n.conn.IsClosed() }

// IsIdentified reports whether this node has its own endpoint, i.e. is not
// a proxy node (spec §9).
func (n *Node) IsIdentified() bool { return n.endpoint != nil }

// SendFrame publishes f to every channel of every connection after running
// process_outgoing (spec §4.11: "publish with All scope after
// process_outgoing").
func (n *Node) SendFrame(f Frame) error {
	if n.conn.IsClosed() {
		return ErrClosed
	}
	if n.processor != nil {
		if err := n.processor.ProcessOutgoing(f); err != nil {
			return err
		}
	}
	return n.conn.Send(OutgoingFrame{Frame: f, Scope: ScopeBroadcastAll()})
}

// Send stamps msg into a new frame addressed from this node's own endpoint,
// with the next sequence number for the node's version, and sends it.
// Identified nodes built with VersionV1 or VersionV2 only; any other node
// gets ErrInactive.
func (n *Node) Send(msg message.Message) error {
	if n.endpoint == nil || n.version == VersionAny {
		return ErrInactive
	}
	if n.conn.IsClosed() {
		return ErrClosed
	}

	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	seq := n.endpoint.NextSequence(n.version)

	var f Frame
	if n.version == VersionV1 {
		f = NewV1Frame(seq, n.endpoint.SystemID, n.endpoint.ComponentID, msg.GetID(), payload)
	} else {
		f = NewV2Frame(seq, n.endpoint.SystemID, n.endpoint.ComponentID, msg.GetID(), payload)
	}
	return n.SendFrame(f)
}

func (n *Node) ensureRecvSub() {
	n.recvOnce.Do(func() {
		n.recvSub = n.distributor.subscribe()
	})
}

// RecvFrame blocks until a Frame event arrives, skipping every other event
// kind (spec §4.11: "convenience wrapper that filters the event stream for
// Frame").
func (n *Node) RecvFrame() (Frame, *Callback, error) {
	n.ensureRecvSub()
	for {
		evt, err := n.recvSub.Recv(n.conn.closer)
		if err != nil {
			return nil, nil, err
		}
		if fe, ok := evt.(FrameEvent); ok {
			return fe.Frame, fe.Callback, nil
		}
	}
}

// RecvFrameTimeout is RecvFrame bounded by d in total, across as many
// non-Frame events as arrive within that budget.
func (n *Node) RecvFrameTimeout(d time.Duration) (Frame, *Callback, error) {
	n.ensureRecvSub()
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil, ErrTimeout
		}
		evt, err := n.recvSub.RecvTimeout(n.conn.closer, remaining)
		if err != nil {
			return nil, nil, err
		}
		if fe, ok := evt.(FrameEvent); ok {
			return fe.Frame, fe.Callback, nil
		}
	}
}

// Events returns a fresh event subscription, independent from the one
// RecvFrame/RecvFrameTimeout use internally.
func (n *Node) Events() *EventReceiver {
	return n.distributor.subscribe()
}

// Peers snapshots the currently known peer set.
func (n *Node) Peers() []Peer { return n.peers.Snapshot() }

// HasPeers reports whether any peer is currently known.
func (n *Node) HasPeers() bool { return n.peers.Len() > 0 }

// Activate starts the heartbeat emitter on an identified node. A no-op on
// a proxy node, which has no endpoint to originate heartbeats from, and
// on a VersionAny node, which does not originate frames.
// Calling it again while already active is a no-op.
func (n *Node) Activate() error {
	if n.endpoint == nil || n.version == VersionAny {
		return nil
	}
	if n.conn.IsClosed() {
		return ErrClosed
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.heartbeat != nil && !n.heartbeat.guard.IsClosed() {
		return nil
	}
	n.heartbeat = newHeartbeatEmitter(n.endpoint, n.conn, n.processor, n.version,
		n.dialectVersion, n.heartbeatInterval, n.conn.closer, n.loggerFactory)
	n.heartbeat.start()
	return nil
}

// Deactivate stops the heartbeat emitter without closing the node. A no-op
// if it was never activated.
func (n *Node) Deactivate() {
	n.mu.Lock()
	hb := n.heartbeat
	n.mu.Unlock()
	if hb != nil {
		hb.stop()
	}
}

// Close shuts the node down: the connection closes (cascading to every
// channel and the transport tasks it owns), and the event distributor
// closes so every RecvFrame/Events consumer observes ErrClosed.
func (n *Node) Close() {
	n.Deactivate()
	n.conn.Close()
	n.distributor.close()
}
