package maviola

// Callback is the immutable per-event handle delivered with every
// incoming event (spec §4.10): it holds the source channel/connection id
// and a sender into the outgoing bus, and exposes the routing verbs.
// It has no back-reference to the Node (spec §9: "No back-reference to
// the node is needed or desirable") and remains usable after the
// incoming handler has moved on — it becomes inert only once the
// connection closes, at which point every verb returns ErrClosed.
type Callback struct {
	channelID ChannelId
	connID    ConnectionId
	outgoing  *broadcast[OutgoingFrame]
	processor *FrameProcessor
}

func newCallback(channelID ChannelId, connID ConnectionId, outgoing *broadcast[OutgoingFrame], processor *FrameProcessor) *Callback {
	return &Callback{channelID: channelID, connID: connID, outgoing: outgoing, processor: processor}
}

// ChannelID returns the id of the channel this event arrived on.
func (c *Callback) ChannelID() ChannelId { return c.channelID }

// ConnectionID returns the id of the connection this event arrived on.
func (c *Callback) ConnectionID() ConnectionId { return c.connID }

// publish clones f, runs process_outgoing on the clone (spec §4.10:
// "Every verb first runs process_outgoing on a cloned frame, then
// publishes"), and sends it with the given scope.
func (c *Callback) publish(f Frame, scope BroadcastScope) error {
	clone := f.Clone()
	if c.processor != nil {
		if err := c.processor.ProcessOutgoing(clone); err != nil {
			return err
		}
	}
	of := OutgoingFrame{
		Frame:            clone,
		Scope:            scope,
		SourceChannel:    c.channelID,
		SourceConnection: c.connID,
	}
	if err := c.outgoing.Send(of); err != nil {
		return ErrClosed
	}
	return nil
}

// Send delivers f to every channel of every connection (scope All).
func (c *Callback) Send(f Frame) error {
	return c.publish(f, ScopeBroadcastAll())
}

// Respond delivers f back to exactly the source channel.
func (c *Callback) Respond(f Frame) error {
	return c.publish(f, ScopeExactChannelID(c.channelID))
}

// Broadcast delivers f to every channel except the source channel.
func (c *Callback) Broadcast(f Frame) error {
	return c.publish(f, ScopeExceptChannelID(c.channelID))
}

// BroadcastWithin delivers f to every channel of the source connection
// except the source channel.
func (c *Callback) BroadcastWithin(f Frame) error {
	return c.publish(f, ScopeExceptChannelWithinID(c.channelID, c.connID))
}

// BroadcastExcept delivers f to every connection except the source
// connection.
func (c *Callback) BroadcastExcept(f Frame) error {
	return c.publish(f, ScopeExceptConnectionID(c.connID))
}

// Forward delivers f to every channel of a specific (possibly different)
// connection, for routing between connections.
func (c *Callback) Forward(f Frame, conn ConnectionId) error {
	return c.publish(f, ScopeExactConnectionID(conn))
}
