package maviola

import "fmt"

// Sync/bus errors (spec §7 "Sync/Bus"). Empty, Timeout and Lagged are
// recoverable; Closed is terminal.
var (
	ErrEmpty   = fmt.Errorf("bus: empty")
	ErrClosed  = fmt.Errorf("bus: closed")
	ErrTimeout = fmt.Errorf("bus: timeout")
)

// LaggedError reports that a broadcast receiver fell behind and N items
// were dropped from under it. Recoverable: the receiver should log and
// keep consuming.
type LaggedError struct {
	N uint64
}

func (e *LaggedError) Error() string {
	return fmt.Sprintf("bus: receiver lagged by %d items", e.N)
}

// Node-level errors (spec §7 "Node").
var (
	// ErrNoPeers is returned by Connection.send when no channel is
	// currently subscribed to the outgoing bus.
	ErrNoPeers = fmt.Errorf("node: no peers")

	// ErrInactive is returned by Node.Send on a node that cannot
	// originate frames: a proxy node (no Endpoint) or a node built with
	// VersionAny.
	ErrInactive = fmt.Errorf("node: inactive")
)

// NotInDialectError reports that a message id is not known to any
// dialect configured on the frame processor.
type NotInDialectError struct {
	MessageID uint32
}

func (e *NotInDialectError) Error() string {
	return fmt.Sprintf("node: message id %d is not in any configured dialect", e.MessageID)
}

// FrameErrorKind enumerates the ways process_incoming/process_outgoing can
// reject a frame (spec §4.5).
type FrameErrorKind int

const (
	FrameErrorSignature FrameErrorKind = iota
	FrameErrorIncompatible
	FrameErrorNotInDialect
	FrameErrorVersion
	FrameErrorMalformed
)

func (k FrameErrorKind) String() string {
	switch k {
	case FrameErrorSignature:
		return "signature"
	case FrameErrorIncompatible:
		return "incompatible"
	case FrameErrorNotInDialect:
		return "not_in_dialect"
	case FrameErrorVersion:
		return "version"
	case FrameErrorMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// FrameError is the error surfaced as Event.Invalid when a frame fails the
// processor pipeline. It is never silently dropped (spec §7).
type FrameError struct {
	Kind      FrameErrorKind
	MessageID uint32
	Expected  Version
	Got       Version
	Err       error
}

func (e *FrameError) Error() string {
	switch e.Kind {
	case FrameErrorNotInDialect:
		return fmt.Sprintf("frame: message id %d not in any configured dialect", e.MessageID)
	case FrameErrorVersion:
		return fmt.Sprintf("frame: version mismatch: expected %s, got %s", e.Expected, e.Got)
	default:
		if e.Err != nil {
			return fmt.Sprintf("frame: %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("frame: %s", e.Kind)
	}
}

func (e *FrameError) Unwrap() error { return e.Err }

// BuildError wraps configuration failures returned by a ConnectionBuilder
// (spec §7 "Build"): a bad address, an existing/missing path, and so on.
type BuildError struct {
	Transport string
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build: %s: %v", e.Transport, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
