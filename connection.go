package maviola

import (
	"sync"

	"github.com/pion/logging"
)

// ConnectionInfo describes a connection's transport kind and parameters
// (spec §3 "Connection info"). Carried in logs and callbacks; bit layout
// is never wire-visible.
type ConnectionInfo struct {
	Kind   string
	Params map[string]string
}

// ChannelInfo describes one channel's transport endpoint (spec §3
// "Channel info").
type ChannelInfo struct {
	Kind   string
	Params map[string]string
}

// ConnectionBuilder is the pluggable per-transport constructor (spec
// §4.11/§6: "each transport is a pluggable builder"). Build starts
// whatever accept/connect loops the transport needs and mints channels
// via factory; it returns once the connection is ready to use (for a
// server endpoint, "ready" means listening, not necessarily connected).
type ConnectionBuilder interface {
	Info() ConnectionInfo
	// Repairable reports whether this connection can be usefully rebuilt
	// after it dies; the Network uses this to decide whether retry
	// applies (spec §4.3/§4.12).
	Repairable() bool
	Build(factory *ChannelFactory) error
}

// Connection owns the frame bus and the set of channels drawn against it
// (spec §4.3). It stays alive while its builder's top-level task(s) are
// alive; closing it cascades Close to every channel.
type Connection struct {
	id         ConnectionId
	info       ConnectionInfo
	repairable bool
	closer     *SharedCloser

	outgoing *broadcast[OutgoingFrame]
	incoming *broadcast[IncomingFrame]

	logger logging.LeveledLogger

	mu       sync.Mutex
	channels map[ChannelId]*Channel
}

// newConnection allocates an open connection with fresh buses.
func newConnection(info ConnectionInfo, repairable bool, factory logging.LoggerFactory) *Connection {
	return &Connection{
		id:         NewConnectionId(),
		info:       info,
		repairable: repairable,
		closer:     NewSharedCloser(),
		outgoing:   newBroadcast[OutgoingFrame](DefaultOutgoingBusCapacity),
		incoming:   newBroadcast[IncomingFrame](DefaultIncomingBusCapacity),
		logger:     loggerFactory(factory).NewLogger("connection"),
		channels:   make(map[ChannelId]*Channel),
	}
}

func (c *Connection) ID() ConnectionId       { return c.id }
func (c *Connection) Info() ConnectionInfo   { return c.info }
func (c *Connection) Repairable() bool       { return c.repairable }
func (c *Connection) Closer() *SharedCloser  { return c.closer }
func (c *Connection) IsClosed() bool         { return c.closer.IsClosed() }

// Send publishes an outgoing frame to the bus. Returns ErrNoPeers if no
// channel currently subscribes (spec §4.3).
func (c *Connection) Send(of OutgoingFrame) error {
	if c.closer.IsClosed() {
		return ErrClosed
	}
	if c.outgoing.ReceiverCount() == 0 {
		return ErrNoPeers
	}
	return c.outgoing.Send(of)
}

// SubscribeIncoming returns a receiver over this connection's incoming
// bus; spec §4.3 notes one active receiver is sufficient for the node.
func (c *Connection) SubscribeIncoming() *broadcastReceiver[IncomingFrame] {
	return c.incoming.Subscribe()
}

func (c *Connection) registerChannel(ch *Channel) {
	c.mu.Lock()
	c.channels[ch.id] = ch
	c.mu.Unlock()
}

func (c *Connection) unregisterChannel(id ChannelId) {
	c.mu.Lock()
	delete(c.channels, id)
	c.mu.Unlock()
}

// Channels returns a snapshot of currently live channels.
func (c *Connection) Channels() []*Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		out = append(out, ch)
	}
	return out
}

// Close flips the closer, propagating to every channel, and closes both
// bus ends. Safe to call more than once.
func (c *Connection) Close() {
	c.closer.Close()

	c.mu.Lock()
	chans := make([]*Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		chans = append(chans, ch)
	}
	c.mu.Unlock()

	for _, ch := range chans {
		ch.Close()
	}

	c.outgoing.Close()
	c.incoming.Close()
}

// newChannelFactory stamps a factory with this connection's identity and
// bus handles (spec §4.4). The frame processor is applied by the
// incoming-frame handler and by Callback verbs, not by the channel
// itself (spec §4.2 notes the channel reader only tags and publishes);
// the factory only needs connection identity, bus handles and the
// shared closer.
func (c *Connection) newChannelFactory(lf logging.LoggerFactory) *ChannelFactory {
	return &ChannelFactory{
		conn:   c,
		logger: loggerFactory(lf).NewLogger("channel"),
	}
}
