package maviola

import (
	"time"

	"github.com/pion/logging"
)

// inactivePeerMonitor evicts peers that have gone quiet for longer than the
// heartbeat timeout and publishes PeerLost for each (spec §4.7). It runs on
// a fixed period equal to the timeout itself — tight enough that eviction
// lags silence by at most one period, per spec §9's "eventual eviction"
// reading of the expiry race.
type inactivePeerMonitor struct {
	peers       *peerTable
	timeout     time.Duration
	distributor *eventDistributor
	closer      *SharedCloser
	logger      logging.LeveledLogger
}

func newInactivePeerMonitor(peers *peerTable, timeout time.Duration, distributor *eventDistributor,
	closer *SharedCloser, lf logging.LoggerFactory,
) *inactivePeerMonitor {
	return &inactivePeerMonitor{
		peers:       peers,
		timeout:     timeout,
		distributor: distributor,
		closer:      closer,
		logger:      loggerFactory(lf).NewLogger("inactive-peers"),
	}
}

func (m *inactivePeerMonitor) start() { go m.run() }

func (m *inactivePeerMonitor) run() {
	ticker := time.NewTicker(m.timeout)
	defer ticker.Stop()

	for {
		select {
		case <-m.closer.Done():
			m.drainOnShutdown()
			return
		case <-ticker.C:
			if !m.tick() {
				return
			}
		}
	}
}

func (m *inactivePeerMonitor) tick() bool {
	now := time.Now()
	for _, p := range m.peers.Expire(now, m.timeout) {
		if err := m.distributor.publish(PeerLostEvent{Peer: p}); err != nil {
			m.logger.Debugf("inactive peer monitor stopping: %v", err)
			return false
		}
	}
	return true
}

// drainOnShutdown empties the peer table and announces every remaining
// peer as lost (spec §4.7). The distributor may already be mid-close, so
// publish errors here are not logged as failures — they just mean nobody
// is left to hear it.
func (m *inactivePeerMonitor) drainOnShutdown() {
	for _, p := range m.peers.DrainAll() {
		_ = m.distributor.publish(PeerLostEvent{Peer: p})
	}
}
