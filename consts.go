package maviola

import "time"

// Bus capacities. The outgoing bus fans every frame out to every channel of
// every connection and is by far the busier of the two (§4.1); the incoming
// bus has a single consumer, the incoming-frame handler.
const (
	DefaultOutgoingBusCapacity = 1 << 15
	DefaultIncomingBusCapacity = 1 << 10
)

// Heartbeat and peer-liveness defaults (spec §6).
const (
	DefaultHeartbeatInterval = 1000 * time.Millisecond
	DefaultHeartbeatTimeout  = 1200 * time.Millisecond
)

// Transport defaults (spec §6).
const (
	DefaultServerHangUpTimeout = 50 * time.Millisecond
	DefaultUDPRetryInterval    = 20 * time.Millisecond
	DefaultUDPRetryAttempts    = 5
)

// Polling intervals for cooperative shutdown (spec §5).
const (
	connectionClosePoll = 10 * time.Millisecond
	channelClosePoll     = 100 * time.Microsecond
	eventStreamPoll      = 1 * time.Millisecond
	incomingBusIdlePoll  = 50 * time.Microsecond
)

// netBufferSize bounds a single frame on byte-stream transports: header +
// 255-byte max payload + checksum + signature block.
const netBufferSize = 280
