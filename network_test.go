package maviola

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/istalabs/maviola/dialects/minimal"
)

func TestRetryAllows(t *testing.T) {
	assert.False(t, RetryNever().allows(0))
	assert.True(t, RetryAlways(time.Millisecond).allows(1000))

	r := RetryAttempts(3, time.Millisecond)
	assert.True(t, r.allows(0))
	assert.True(t, r.allows(2))
	assert.False(t, r.allows(3))
}

func TestNetworkSplicesIncomingFromSubToParent(t *testing.T) {
	subA := newFakeBuilder()
	subB := newFakeBuilder()
	nb := &NetworkBuilder{Sub: []ConnectionBuilder{subA, subB}, Retry: RetryNever()}

	n, err := NodeConf{Version: VersionV2, Endpoint: NewEndpoint(1, 1), Builder: nb, Dialects: dialectSet()}.Build()
	require.NoError(t, err)
	defer n.Close()

	subA.recv.frames <- NewV1Frame(0, 11, 1, minimal.HeartbeatMessageID, []byte{1})

	frame, _, err := n.RecvFrame()
	require.NoError(t, err)
	assert.Equal(t, byte(11), frame.SystemID())
}

func TestNetworkSplicesOutgoingToEverySub(t *testing.T) {
	subA := newFakeBuilder()
	subB := newFakeBuilder()
	nb := &NetworkBuilder{Sub: []ConnectionBuilder{subA, subB}, Retry: RetryNever()}

	n, err := NodeConf{Version: VersionV2, Endpoint: NewEndpoint(1, 1), Builder: nb, Dialects: dialectSet()}.Build()
	require.NoError(t, err)
	defer n.Close()

	require.NoError(t, n.Send(&minimal.MessageHeartbeat{MavlinkVersion: 3}))

	select {
	case <-subA.send.sent:
	case <-time.After(time.Second):
		t.Fatal("sub A never received the broadcast frame")
	}
	select {
	case <-subB.send.sent:
	case <-time.After(time.Second):
		t.Fatal("sub B never received the broadcast frame")
	}
}

func TestNetworkGivesUpOnlyWhenEverySubGivesUp(t *testing.T) {
	subA := newFakeBuilder()
	subA.repairable = false
	subB := newFakeBuilder()
	subB.repairable = false
	nb := &NetworkBuilder{Sub: []ConnectionBuilder{subA, subB}, Retry: RetryNever()}

	n, err := NodeConf{Version: VersionV2, Endpoint: NewEndpoint(1, 1), Builder: nb, Dialects: dialectSet()}.Build()
	require.NoError(t, err)
	defer n.Close()

	// Simulate the transport telling its sub-connection it died: a real
	// transport (TCPClient, Serial, ...) closes its own Connection when its
	// single channel's I/O fails. subA/subB's factory.Closer() is that
	// sub-connection's SharedCloser, so closing it is the equivalent signal.
	subA.factory.Closer().Close()

	time.Sleep(30 * time.Millisecond)
	assert.False(t, n.IsClosed(), "one dead non-repairable sub must not bring the whole network down")

	subB.factory.Closer().Close()

	require.Eventually(t, n.IsClosed, time.Second, 10*time.Millisecond)
}

func TestNetworkBuilderInfoReportsSubCount(t *testing.T) {
	nb := &NetworkBuilder{Sub: []ConnectionBuilder{newFakeBuilder(), newFakeBuilder(), newFakeBuilder()}}
	info := nb.Info()
	assert.Equal(t, "network", info.Kind)
	assert.Equal(t, "3", info.Params["sub_connections"])
}
