package maviola

import (
	"strconv"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/istalabs/maviola/message"
)

// retryKind enumerates the three retry policies of spec §4.12.
type retryKind int

const (
	retryNever retryKind = iota
	retryAlways
	retryAttempts
)

// Retry governs whether a dead, repairable sub-connection gets rebuilt.
type Retry struct {
	kind     retryKind
	interval time.Duration
	max      int
}

// RetryNever never rebuilds a dead sub-connection.
func RetryNever() Retry { return Retry{kind: retryNever} }

// RetryAlways rebuilds indefinitely, waiting interval between attempts.
func RetryAlways(interval time.Duration) Retry {
	return Retry{kind: retryAlways, interval: interval}
}

// RetryAttempts rebuilds up to n times, waiting interval between attempts.
func RetryAttempts(n int, interval time.Duration) Retry {
	return Retry{kind: retryAttempts, interval: interval, max: n}
}

func (r Retry) allows(attempt int) bool {
	switch r.kind {
	case retryAlways:
		return true
	case retryAttempts:
		return attempt < r.max
	default:
		return false
	}
}

// subState is the per-sub-connection state machine of spec §4.12:
// Building → Live → Dying → (Retrying | GiveUp).
type subState int

const (
	subBuilding subState = iota
	subLive
	subDying
	subRetrying
	subGiveUp
)

type subConnState struct {
	mu      sync.Mutex
	builder ConnectionBuilder
	conn    *Connection
	attempt int
	state   subState
}

// NetworkBuilder is the composite ConnectionBuilder of spec §4.12: it
// wraps N sub-builders behind one parent connection, splicing frames
// between the parent and each live sub-connection and applying Retry to
// sub-connection death.
type NetworkBuilder struct {
	Sub   []ConnectionBuilder
	Retry Retry

	LoggerFactory logging.LoggerFactory
}

func (b *NetworkBuilder) Info() ConnectionInfo {
	return ConnectionInfo{Kind: "network", Params: map[string]string{
		"sub_connections": strconv.Itoa(len(b.Sub)),
	}}
}

// Repairable is always true: the network manages its own sub-connection
// repair via Retry, so an outer Network wrapping a Network never needs to
// rebuild this one wholesale.
func (b *NetworkBuilder) Repairable() bool { return true }

// Build implements spec §4.12 steps 1-2: it stands up every sub-connection
// and splices its buses to the parent's. Sub-connections that fail to
// build immediately enter the same Dying→Retry/GiveUp path a later death
// would (spec §5: "the Network component upgrades transport-level failure
// into a retry decision rather than a node-level failure").
func (b *NetworkBuilder) Build(factory *ChannelFactory) error {
	lf := loggerFactory(b.LoggerFactory)
	net := &network{
		parent:   factory.conn,
		retry:    b.Retry,
		lf:       lf,
		logger:   lf.NewLogger("network"),
		dialects: factory.Dialects(),
		subs:     make([]*subConnState, len(b.Sub)),
	}
	for i, sb := range b.Sub {
		net.subs[i] = &subConnState{builder: sb}
	}

	go net.watchParentClose()
	for _, st := range net.subs {
		net.bringUp(st)
	}
	return nil
}

// network holds the live splice state behind one NetworkBuilder.Build
// call. It outlives Build: every goroutine it spawns keeps running until
// the parent connection closes.
type network struct {
	parent   *Connection
	retry    Retry
	lf       logging.LoggerFactory
	logger   logging.LeveledLogger
	dialects message.Set

	mu   sync.Mutex
	subs []*subConnState
}

func (n *network) bringUp(st *subConnState) {
	st.mu.Lock()
	st.state = subBuilding
	st.mu.Unlock()

	subConn := newConnection(st.builder.Info(), st.builder.Repairable(), n.lf)
	subFactory := subConn.newChannelFactory(n.lf)
	subFactory.dialects = n.dialects

	if err := st.builder.Build(subFactory); err != nil {
		n.logger.Warnf("sub-connection %s failed to build: %v", st.builder.Info().Kind, err)
		subConn.Close()
		n.handleSubDeath(st)
		return
	}

	st.mu.Lock()
	st.conn = subConn
	st.state = subLive
	st.mu.Unlock()

	go n.spliceIncoming(st, subConn)
	go n.spliceOutgoing(st, subConn)
	go n.watchSubDeath(st, subConn)
}

// spliceIncoming republishes every frame a sub-connection receives onto
// the parent's incoming bus, tagged with the real (globally unique)
// channel id it arrived on — no id rewriting is needed because
// ChannelId/ConnectionId never collide across sub-connections (spec
// §4.12 step 2, simplified: see DESIGN.md).
func (n *network) spliceIncoming(st *subConnState, subConn *Connection) {
	sub := subConn.SubscribeIncoming()
	defer sub.Release()
	for {
		inf, err := sub.Recv(subConn.closer)
		if err != nil {
			return
		}
		_ = n.parent.incoming.Send(inf)
	}
}

// spliceOutgoing forwards every frame submitted to the parent's outgoing
// bus onto this sub-connection's outgoing bus unmodified. Each
// sub-channel's own writeLoop self-filters the scope against its own real
// ids, so forwarding verbatim is correct (the same globally-unique-id
// argument as spliceIncoming).
func (n *network) spliceOutgoing(st *subConnState, subConn *Connection) {
	sub := n.parent.outgoing.Subscribe()
	defer sub.Release()
	for {
		of, err := sub.Recv(n.parent.closer)
		if err != nil {
			return
		}
		_ = subConn.outgoing.Send(of)
	}
}

func (n *network) watchSubDeath(st *subConnState, subConn *Connection) {
	<-subConn.closer.Done()
	n.handleSubDeath(st)
}

// handleSubDeath runs the Dying→(Retrying|GiveUp) transition of spec
// §4.12. A non-repairable sub-connection, or one that has exhausted
// Retry, gives up for good; otherwise it's rebuilt after the retry
// interval, elapsed against either a timer or the parent closing early.
func (n *network) handleSubDeath(st *subConnState) {
	st.mu.Lock()
	if st.state == subGiveUp {
		st.mu.Unlock()
		return
	}
	st.state = subDying

	if !st.builder.Repairable() || !n.retry.allows(st.attempt) {
		st.state = subGiveUp
		st.mu.Unlock()
		n.checkAllGivenUp()
		return
	}

	st.attempt++
	st.state = subRetrying
	interval := n.retry.interval
	st.mu.Unlock()

	go func() {
		select {
		case <-time.After(interval):
			n.bringUp(st)
		case <-n.parent.closer.Done():
		}
	}()
}

// checkAllGivenUp closes the parent connection once every sub-connection
// has independently given up (spec §4.12 step 3 / SPEC_FULL.md §9).
func (n *network) checkAllGivenUp() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, st := range n.subs {
		st.mu.Lock()
		gaveUp := st.state == subGiveUp
		st.mu.Unlock()
		if !gaveUp {
			return
		}
	}
	n.parent.Close()
}

// watchParentClose propagates a parent shutdown to every live
// sub-connection (spec §4.12 step 4).
func (n *network) watchParentClose() {
	<-n.parent.closer.Done()
	n.mu.Lock()
	subs := append([]*subConnState(nil), n.subs...)
	n.mu.Unlock()
	for _, st := range subs {
		st.mu.Lock()
		c := st.conn
		st.mu.Unlock()
		if c != nil {
			c.Close()
		}
	}
}
