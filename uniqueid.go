package maviola

import (
	"fmt"
	"sync/atomic"
	"time"
)

// uniqueCounter backs UniqueId's monotonic tiebreaker; shared process-wide
// so two ids minted in the same nanosecond still order distinctly.
var uniqueCounter atomic.Uint64

// UniqueId is a (timestamp, counter) pair that is unique for the lifetime
// of the process (spec §3: "never serialized"). ConnectionId and ChannelId
// are both UniqueId under the hood.
type UniqueId struct {
	ts  int64
	seq uint64
}

// NewUniqueId mints a fresh, globally unique id.
func NewUniqueId() UniqueId {
	return UniqueId{
		ts:  time.Now().UnixNano(),
		seq: uniqueCounter.Add(1),
	}
}

func (u UniqueId) String() string {
	return fmt.Sprintf("%d-%d", u.ts, u.seq)
}

// Less gives UniqueId a total order, convenient for deterministic test
// output and for sorting in diagnostics; not used for correctness.
func (u UniqueId) Less(other UniqueId) bool {
	if u.ts != other.ts {
		return u.ts < other.ts
	}
	return u.seq < other.seq
}

// ConnectionId identifies a Connection for the life of the program.
type ConnectionId struct{ id UniqueId }

// NewConnectionId mints a fresh ConnectionId.
func NewConnectionId() ConnectionId { return ConnectionId{NewUniqueId()} }

func (c ConnectionId) String() string { return "conn-" + c.id.String() }

// ChannelId identifies a Channel for the life of the program.
type ChannelId struct{ id UniqueId }

// NewChannelId mints a fresh ChannelId.
func NewChannelId() ChannelId { return ChannelId{NewUniqueId()} }

func (c ChannelId) String() string { return "chan-" + c.id.String() }
