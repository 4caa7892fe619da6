package maviola

import (
	"time"

	"github.com/pion/logging"

	"github.com/istalabs/maviola/dialects/minimal"
)

// heartbeatEmitter is active only on identified nodes and originates a
// heartbeat frame into the outgoing bus on a fixed period (spec §4.6).
type heartbeatEmitter struct {
	endpoint       *Endpoint
	conn           *Connection
	processor      *FrameProcessor
	version        Version
	dialectVersion uint8
	interval       time.Duration

	guard  *Guarded
	logger logging.LeveledLogger
}

func newHeartbeatEmitter(endpoint *Endpoint, conn *Connection, processor *FrameProcessor,
	version Version, dialectVersion uint8, interval time.Duration, closer *SharedCloser, lf logging.LoggerFactory,
) *heartbeatEmitter {
	return &heartbeatEmitter{
		endpoint:       endpoint,
		conn:           conn,
		processor:      processor,
		version:        version,
		dialectVersion: dialectVersion,
		interval:       interval,
		guard:          NewGuarded(closer),
		logger:         loggerFactory(lf).NewLogger("heartbeat"),
	}
}

// start spawns the periodic emitter task.
func (h *heartbeatEmitter) start() { go h.run() }

// stop flips the local switch without touching the node-wide closer
// (spec §4.11: Deactivate stops only the heartbeat emitter).
func (h *heartbeatEmitter) stop() { h.guard.Off() }

func (h *heartbeatEmitter) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.guard.Done():
			return
		case <-ticker.C:
			if err := h.tick(); err != nil {
				h.logger.Debugf("heartbeat emitter stopping: %v", err)
				h.guard.Off()
				return
			}
		}
	}
}

func (h *heartbeatEmitter) tick() error {
	seq := h.endpoint.NextSequence(h.version)
	msg := &minimal.MessageHeartbeat{
		Type:           minimal.MavTypeGeneric,
		Autopilot:      minimal.MavAutopilotGeneric,
		BaseMode:       0,
		CustomMode:     0,
		SystemStatus:   minimal.MavStateActive,
		MavlinkVersion: h.dialectVersion,
	}
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	var f Frame
	if h.version == VersionV1 {
		f = NewV1Frame(seq, h.endpoint.SystemID, h.endpoint.ComponentID, minimal.HeartbeatMessageID, payload)
	} else {
		f = NewV2Frame(seq, h.endpoint.SystemID, h.endpoint.ComponentID, minimal.HeartbeatMessageID, payload)
	}

	// Heartbeats run through the same processor pipeline as any other
	// originated frame so a signing/dialect policy applies uniformly
	// (spec §8's pipeline invariant doesn't carve out an exception for
	// self-originated traffic).
	if h.processor != nil {
		if err := h.processor.ProcessOutgoing(f); err != nil {
			return err
		}
	}

	return h.conn.Send(OutgoingFrame{Frame: f, Scope: ScopeBroadcastAll()})
}
