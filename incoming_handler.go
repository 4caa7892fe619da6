package maviola

import (
	"time"

	"github.com/pion/logging"

	"github.com/istalabs/maviola/dialects/minimal"
)

// incomingFrameHandler is the single task that drains a connection's
// incoming bus, runs the processor pipeline, updates the peer table on
// heartbeats, and republishes everything as node Events (spec §4.8).
type incomingFrameHandler struct {
	conn      *Connection
	processor *FrameProcessor
	peers     *peerTable

	distributor *eventDistributor
	closer      *SharedCloser
	logger      logging.LeveledLogger
}

func newIncomingFrameHandler(conn *Connection, processor *FrameProcessor, peers *peerTable,
	distributor *eventDistributor, closer *SharedCloser, lf logging.LoggerFactory,
) *incomingFrameHandler {
	return &incomingFrameHandler{
		conn:        conn,
		processor:   processor,
		peers:       peers,
		distributor: distributor,
		closer:      closer,
		logger:      loggerFactory(lf).NewLogger("incoming"),
	}
}

func (h *incomingFrameHandler) start() { go h.run() }

func (h *incomingFrameHandler) run() {
	sub := h.conn.SubscribeIncoming()
	defer sub.Release()

	for {
		inf, err := sub.RecvLogging(h.closer, func(n uint64) {
			h.logger.Debugf("incoming bus lagged by %d frames", n)
		})
		if err != nil {
			return
		}
		if err := h.handle(inf); err != nil {
			h.logger.Debugf("incoming frame handler stopping: %v", err)
			return
		}
	}
}

// handle runs the exact 4-step sequence of spec §4.8: process_incoming,
// reject on *FrameError, heartbeat-driven peer tracking, then the Frame
// event every surviving frame gets regardless of whether it was a
// heartbeat.
func (h *incomingFrameHandler) handle(inf IncomingFrame) error {
	cb := newCallback(inf.ChannelID, h.conn.id, h.conn.outgoing, h.processor)
	frame := inf.Frame

	if h.processor != nil {
		if err := h.processor.ProcessIncoming(frame); err != nil {
			fe, _ := asFrameError(err, frame.MessageID()).(*FrameError)
			return h.distributor.publish(InvalidEvent{Frame: frame, Err: fe, Callback: cb})
		}
	}

	if frame.MessageID() == minimal.HeartbeatMessageID {
		peer, isNew := h.peers.Touch(frame.SystemID(), frame.ComponentID(), time.Now())
		if isNew {
			if err := h.distributor.publish(NewPeerEvent{Peer: peer}); err != nil {
				return err
			}
		}
	}

	return h.distributor.publish(FrameEvent{Frame: frame, Callback: cb})
}
