package maviola

import (
	"errors"
	"io"
	"sync"

	"github.com/pion/logging"
)

// Channel drives one bidirectional stream bound to a transport endpoint
// against the connection's frame bus (spec §4.2). It owns two
// cooperating goroutines (reader, writer) and closes — independently of
// its siblings — the moment either one exits.
type Channel struct {
	id     ChannelId
	connID ConnectionId
	info   ChannelInfo

	sender   Sender
	receiver Receiver

	outgoing *broadcast[OutgoingFrame]
	incoming *broadcast[IncomingFrame]

	// connCloser is the owning connection's closer: channels observe it
	// to stop and never close it from their own loops. A sole channel
	// built by ChannelFactory.BuildSoleChannel closes the owning
	// connection through its onClose hook.
	connCloser *SharedCloser
	// local closes when either loop exits (EOF, I/O error, or
	// connCloser firing), independent of sibling channels (spec §3
	// "Channel: ... closes when either loop exits").
	local *SharedCloser

	logger logging.LeveledLogger

	closeOnce sync.Once
	onClose   func(*Channel)
}

func (ch *Channel) ID() ChannelId           { return ch.id }
func (ch *Channel) ConnectionID() ConnectionId { return ch.connID }
func (ch *Channel) Info() ChannelInfo       { return ch.info }
func (ch *Channel) IsClosed() bool          { return ch.local.IsClosed() }
func (ch *Channel) Done() <-chan struct{}   { return ch.local.Done() }

// Spawn starts the reader and writer loops. onClose, if set via
// OnClose before Spawn, runs once, on the channel's first close: a loop
// ending on an error or EOF, an explicit Close, or both loops exiting.
func (ch *Channel) Spawn() {
	var wg sync.WaitGroup
	wg.Add(2)
	go ch.readLoop(&wg)
	go ch.writeLoop(&wg)
	go func() {
		wg.Wait()
		ch.closeInternal()
	}()
}

// OnClose registers a callback run exactly once when the channel closes.
// Must be called before Spawn to reliably observe the close that ends
// the loops started by Spawn (a close that races Spawn itself is
// harmless: closeInternal is idempotent, onClose just won't be the one
// that triggered it).
func (ch *Channel) OnClose(f func(*Channel)) { ch.onClose = f }

func (ch *Channel) readLoop(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		if ch.local.IsClosed() || ch.connCloser.IsClosed() {
			return
		}
		frame, err := ch.receiver.Receive()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				ch.logger.Debugf("channel %s: read error: %v", ch.id, err)
			}
			ch.Close()
			return
		}
		if err := ch.incoming.Send(IncomingFrame{Frame: frame, ChannelID: ch.id}); err != nil {
			// incoming bus closed underneath us: connection is going
			// down, nothing more to do.
			return
		}
	}
}

func (ch *Channel) writeLoop(wg *sync.WaitGroup) {
	defer wg.Done()
	sub := ch.outgoing.Subscribe()
	defer sub.Release()

	for {
		of, err := sub.RecvLogging(ch.local, func(n uint64) {
			ch.logger.Debugf("channel %s: outgoing bus lagged by %d frames", ch.id, n)
		})
		if err != nil {
			return
		}
		if !of.Scope.ShouldSend(ch.id, ch.connID) {
			continue
		}
		if err := ch.sender.Send(of.Frame); err != nil {
			ch.logger.Debugf("channel %s: write error: %v", ch.id, err)
			ch.Close()
			return
		}
	}
}

// Close requests the channel to stop. It closes the underlying
// sender/receiver if they support io.Closer, which unblocks a reader
// parked in a blocking Receive.
func (ch *Channel) Close() {
	ch.closeInternal()
}

func (ch *Channel) closeInternal() {
	ch.closeOnce.Do(func() {
		ch.local.Close()
		if closer, ok := ch.receiver.(io.Closer); ok {
			_ = closer.Close()
		}
		if closer, ok := ch.sender.(io.Closer); ok {
			_ = closer.Close()
		}
		if ch.outgoing != nil {
			// Unsubscribe bookkeeping happens via sub.Release in
			// writeLoop; nothing to do here beyond notifying.
		}
		if ch.onClose != nil {
			ch.onClose(ch)
		}
	})
}
