package maviola

import (
	"time"

	"github.com/pion/logging"

	"github.com/istalabs/maviola/message"
)

// DefaultEventBusCapacity bounds how far an event consumer can lag before
// observing Lagged (spec §4.1, applied to the event distributor the same
// way as the frame buses).
const DefaultEventBusCapacity = 1 << 12

// NodeConf is the node builder of spec §4.11: it collects every knob a
// node needs and Build assembles them into a running Node. Zero-value
// Duration fields fall back to the package defaults.
type NodeConf struct {
	// Version is the MAVLink wire version this node originates frames as.
	// Build accepts VersionAny, but a node built with it does not
	// originate frames: Send returns ErrInactive and Activate is a no-op.
	Version Version

	// Endpoint identifies this node as (system id, component id). A nil
	// Endpoint builds a proxy node: one with no identity of its own, no
	// outgoing sequence counter, and no heartbeat emitter (spec §9).
	Endpoint *Endpoint

	// Builder constructs the underlying connection; required.
	Builder ConnectionBuilder

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	Dialects      message.Set
	StrictDialect bool

	Signer *SignerConfig
	Compat *CompatConfig

	UserProcessors []UserProcessor

	LoggerFactory logging.LoggerFactory
}

// Build runs the connection builder, assembles the event distributor,
// spawns the incoming-frame handler and inactive-peer monitor, and
// returns an open node (spec §4.11). The heartbeat emitter, if this is an
// identified node, is not started until Activate is called.
func (c NodeConf) Build() (*Node, error) {
	if c.Builder == nil {
		return nil, &BuildError{Transport: "node", Err: ErrEmpty}
	}

	lf := loggerFactory(c.LoggerFactory)
	logger := lf.NewLogger("node")

	heartbeatInterval := c.HeartbeatInterval
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	heartbeatTimeout := c.HeartbeatTimeout
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = DefaultHeartbeatTimeout
	}

	conn := newConnection(c.Builder.Info(), c.Builder.Repairable(), lf)
	factory := conn.newChannelFactory(lf)
	factory.dialects = c.Dialects
	if err := c.Builder.Build(factory); err != nil {
		conn.Close()
		return nil, &BuildError{Transport: c.Builder.Info().Kind, Err: err}
	}

	processor := &FrameProcessor{
		Signer:         c.Signer,
		Compat:         c.Compat,
		Dialects:       c.Dialects,
		StrictDialect:  c.StrictDialect,
		UserProcessors: c.UserProcessors,
	}

	var dialectVersion uint8
	if len(c.Dialects) > 0 {
		dialectVersion = c.Dialects[0].Version
	}

	n := &Node{
		version:           c.Version,
		endpoint:          c.Endpoint,
		conn:              conn,
		processor:         processor,
		peers:             newPeerTable(),
		distributor:       newEventDistributor(DefaultEventBusCapacity),
		heartbeatInterval: heartbeatInterval,
		heartbeatTimeout:  heartbeatTimeout,
		dialectVersion:    dialectVersion,
		loggerFactory:     lf,
		logger:            logger,
	}

	newIncomingFrameHandler(conn, processor, n.peers, n.distributor, conn.closer, lf).start()
	newInactivePeerMonitor(n.peers, heartbeatTimeout, n.distributor, conn.closer, lf).start()

	return n, nil
}
