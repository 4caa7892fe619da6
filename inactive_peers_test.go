package maviola

import (
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInactivePeerMonitorEvictsStalePeer(t *testing.T) {
	peers := newPeerTable()
	peers.Touch(1, 1, time.Now())

	distributor := newEventDistributor(8)
	sub := distributor.subscribe()
	defer sub.Release()

	closer := NewSharedCloser()
	mon := newInactivePeerMonitor(peers, 20*time.Millisecond, distributor, closer, logging.NewDefaultLoggerFactory())
	mon.start()
	defer closer.Close()

	evt, err := sub.Recv(closer)
	require.NoError(t, err)
	ple, ok := evt.(PeerLostEvent)
	require.True(t, ok)
	assert.Equal(t, byte(1), ple.Peer.SystemID)
	assert.Equal(t, 0, peers.Len())
}

func TestInactivePeerMonitorDrainsOnShutdown(t *testing.T) {
	peers := newPeerTable()
	peers.Touch(1, 1, time.Now())
	peers.Touch(2, 2, time.Now())

	distributor := newEventDistributor(8)
	sub := distributor.subscribe()
	defer sub.Release()

	closer := NewSharedCloser()
	mon := newInactivePeerMonitor(peers, time.Hour, distributor, closer, logging.NewDefaultLoggerFactory())
	mon.start()

	closer.Close()

	seen := make(map[byte]bool)
	for i := 0; i < 2; i++ {
		evt, err := sub.Recv(closer)
		require.NoError(t, err)
		ple, ok := evt.(PeerLostEvent)
		require.True(t, ok)
		seen[ple.Peer.SystemID] = true
	}
	assert.True(t, seen[1])
	assert.True(t, seen[2])
	assert.Equal(t, 0, peers.Len())
}
