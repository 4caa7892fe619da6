package maviola

import (
	"github.com/pion/logging"

	"github.com/istalabs/maviola/message"
)

// ChannelFactory is stamped with a connection's identity and bus handles,
// and mints new Channels as a transport accepts them (spec §4.4). A
// transport's ConnectionBuilder.Build receives one of these and calls
// New/Spawn once per accepted stream (or once, for single-channel
// transports).
type ChannelFactory struct {
	conn     *Connection
	logger   logging.LeveledLogger
	dialects message.Set
}

// Dialects returns the dialect set a transport should hand its codec for
// CRC_EXTRA lookups (spec §3.1: "wire.go takes it as a parameter rather
// than hardcoding a table"). Nil until NodeConf.Build sets it, which it
// does before calling the ConnectionBuilder, so transports always see the
// node's real dialect set by the time Build runs.
func (f *ChannelFactory) Dialects() message.Set { return f.dialects }

// New builds a Channel bound to sender/receiver, described by info, and
// registers it with the owning connection. It does not start the
// channel's reader/writer loops; call Spawn for that. Splitting New from
// Spawn lets a caller (e.g. the Network splice, network.go) observe the
// channel's id before frames start flowing.
func (f *ChannelFactory) New(info ChannelInfo, sender Sender, receiver Receiver) *Channel {
	ch := &Channel{
		id:       NewChannelId(),
		connID:   f.conn.id,
		info:     info,
		sender:   sender,
		receiver: receiver,
		outgoing: f.conn.outgoing,
		incoming: f.conn.incoming,
		connCloser: f.conn.closer,
		local:    NewSharedCloser(),
		logger:   f.logger,
	}
	f.conn.registerChannel(ch)
	ch.OnClose(func(c *Channel) {
		f.conn.unregisterChannel(c.id)
		f.logger.Debugf("channel %s closed", c.id)
	})
	return ch
}

// Build is New followed immediately by Spawn, the common case for
// transports that don't need the pre-spawn hook.
func (f *ChannelFactory) Build(info ChannelInfo, sender Sender, receiver Receiver) *Channel {
	ch := f.New(info, sender, receiver)
	ch.Spawn()
	return ch
}

// BuildSoleChannel is Build for a transport that mints exactly one
// channel for the lifetime of its connection (a client-style builder:
// TCPClient, UDPClient, UnixClient, Serial, FileReader, FileWriter).
// Unlike a listener, whose accepted-channel count rising and falling is
// routine, a client-style connection has no transport left once its one
// channel dies, so that death is promoted to closing the owning
// connection. This is what lets network.go's watchSubDeath/handleSubDeath
// see the sub-connection as dead and apply Retry, instead of the
// connection sitting open with zero channels forever.
func (f *ChannelFactory) BuildSoleChannel(info ChannelInfo, sender Sender, receiver Receiver) *Channel {
	ch := f.New(info, sender, receiver)
	prevOnClose := ch.onClose
	ch.OnClose(func(c *Channel) {
		if prevOnClose != nil {
			prevOnClose(c)
		}
		f.conn.Close()
	})
	ch.Spawn()
	return ch
}

// Closer exposes the owning connection's shared closer so a transport's
// top-level accept loop can observe shutdown (spec §4.3/§5).
func (f *ChannelFactory) Closer() *SharedCloser { return f.conn.closer }

// ConnectionID returns the id new channels will be stamped with.
func (f *ChannelFactory) ConnectionID() ConnectionId { return f.conn.id }
