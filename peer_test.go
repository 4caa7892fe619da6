package maviola

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeerTableTouchNewPeer(t *testing.T) {
	pt := newPeerTable()
	now := time.Now()

	p, isNew := pt.Touch(1, 1, now)
	assert.True(t, isNew)
	assert.Equal(t, byte(1), p.SystemID)
	assert.Equal(t, 1, pt.Len())
}

func TestPeerTableTouchExistingPeerRefreshesActivity(t *testing.T) {
	pt := newPeerTable()
	t0 := time.Now()
	t1 := t0.Add(time.Second)

	_, isNew := pt.Touch(1, 1, t0)
	assert.True(t, isNew)

	p, isNew := pt.Touch(1, 1, t1)
	assert.False(t, isNew)
	assert.Equal(t, t1, p.LastActive)
	assert.Equal(t, 1, pt.Len())
}

func TestPeerTableExpireEvictsStalePeers(t *testing.T) {
	pt := newPeerTable()
	base := time.Now()
	pt.Touch(1, 1, base)
	pt.Touch(2, 2, base.Add(2*time.Second))

	expired := pt.Expire(base.Add(2*time.Second), time.Second)
	assert.Len(t, expired, 1)
	assert.Equal(t, byte(1), expired[0].SystemID)
	assert.Equal(t, 1, pt.Len())
}

func TestPeerTableDrainAllClearsTable(t *testing.T) {
	pt := newPeerTable()
	pt.Touch(1, 1, time.Now())
	pt.Touch(2, 2, time.Now())

	drained := pt.DrainAll()
	assert.Len(t, drained, 2)
	assert.Equal(t, 0, pt.Len())
}

func TestPeerTableSnapshotIsACopy(t *testing.T) {
	pt := newPeerTable()
	pt.Touch(1, 1, time.Now())

	snap := pt.Snapshot()
	require := assert.New(t)
	require.Len(snap, 1)

	pt.Touch(2, 2, time.Now())
	require.Len(snap, 1, "snapshot must not observe later mutations")
}

func TestEndpointNextSequenceIsIndependentPerVersion(t *testing.T) {
	e := NewEndpoint(1, 1)
	assert.Equal(t, byte(0), e.NextSequence(VersionV1))
	assert.Equal(t, byte(1), e.NextSequence(VersionV1))
	assert.Equal(t, byte(0), e.NextSequence(VersionV2))
	assert.Equal(t, byte(2), e.NextSequence(VersionV1))
}
