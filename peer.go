package maviola

import (
	"sync"
	"sync/atomic"
	"time"
)

// PeerKey identifies a remote MAVLink endpoint (spec §3 "Peer").
type PeerKey struct {
	SystemID    byte
	ComponentID byte
}

// Peer is a remote endpoint observed via heartbeats.
type Peer struct {
	SystemID    byte
	ComponentID byte
	LastActive  time.Time
}

func (p Peer) Key() PeerKey {
	return PeerKey{SystemID: p.SystemID, ComponentID: p.ComponentID}
}

// peerTable is the node-wide map of observed peers, guarded by a single
// RwLock never nested with any other lock (spec §5 "Shared resources").
type peerTable struct {
	mu    sync.RWMutex
	peers map[PeerKey]Peer
}

func newPeerTable() *peerTable {
	return &peerTable{peers: make(map[PeerKey]Peer)}
}

// Touch records activity from (sysID, compID) at instant now. Returns the
// updated Peer and whether it is new (spec §8 invariant: "either peer
// already present and last_active strictly increases, or peer absent and
// exactly one NewPeer event is emitted").
func (t *peerTable) Touch(sysID, compID byte, now time.Time) (Peer, bool) {
	key := PeerKey{SystemID: sysID, ComponentID: compID}

	t.mu.Lock()
	defer t.mu.Unlock()

	p, existed := t.peers[key]
	if !existed {
		p = Peer{SystemID: sysID, ComponentID: compID, LastActive: now}
	} else {
		p.LastActive = now
	}
	t.peers[key] = p
	return p, !existed
}

// Snapshot returns a copy of the peer map's current values.
func (t *peerTable) Snapshot() []Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, p)
	}
	return out
}

// Len reports the current peer count (used by Node.HasPeers).
func (t *peerTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

// Expire collects peers idle longer than timeout as of now (a read-lock
// snapshot), then removes exactly those under a separate write lock.
// Between the two critical sections a heartbeat may refresh a peer and
// save it from eviction; spec §9 accepts this ("the invariant is
// eventual eviction under continued silence, not immediate").
func (t *peerTable) Expire(now time.Time, timeout time.Duration) []Peer {
	t.mu.RLock()
	stale := make([]PeerKey, 0)
	for k, p := range t.peers {
		if now.Sub(p.LastActive) > timeout {
			stale = append(stale, k)
		}
	}
	t.mu.RUnlock()

	if len(stale) == 0 {
		return nil
	}

	removed := make([]Peer, 0, len(stale))
	t.mu.Lock()
	for _, k := range stale {
		if p, ok := t.peers[k]; ok && now.Sub(p.LastActive) > timeout {
			removed = append(removed, p)
			delete(t.peers, k)
		}
	}
	t.mu.Unlock()
	return removed
}

// DrainAll removes and returns every peer, used on node shutdown (spec
// §4.7: "On shutdown, emit PeerLost for every remaining peer and clear
// the map.").
func (t *peerTable) DrainAll() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		out = append(out, p)
	}
	t.peers = make(map[PeerKey]Peer)
	return out
}

// Endpoint is a node's own identity plus its per-version outgoing
// sequence counter (spec §3 "Endpoint").
type Endpoint struct {
	SystemID    byte
	ComponentID byte

	seqV1 atomic.Uint32
	seqV2 atomic.Uint32
}

// NewEndpoint builds an identified endpoint.
func NewEndpoint(sysID, compID byte) *Endpoint {
	return &Endpoint{SystemID: sysID, ComponentID: compID}
}

// NextSequence atomically increments and returns the next sequence byte
// for the given version (spec §8 invariant: "strictly increasing modulo
// 256").
func (e *Endpoint) NextSequence(v Version) byte {
	if v == VersionV1 {
		return byte(e.seqV1.Add(1) - 1)
	}
	return byte(e.seqV2.Add(1) - 1)
}
