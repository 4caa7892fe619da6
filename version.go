package maviola

// Version tags the MAVLink frame wire format a node originates and/or
// accepts. The source models this as a phantom-typed node flavor; per
// spec §9 ("do not emulate a phantom-type machine") we use a small tagged
// variant instead, enforcing "only versioned, identified nodes originate
// frames" with a runtime check at send time: Node.Send returns
// ErrInactive on a proxy node or a VersionAny node (see node.go).
type Version int

const (
	// VersionV2 wraps outgoing frames in MAVLink v2.
	VersionV2 Version = iota
	// VersionV1 wraps outgoing frames in MAVLink v1.
	VersionV1
	// VersionAny accepts either version on input; a node built with it
	// does not originate frames.
	VersionAny
)

func (v Version) String() string {
	switch v {
	case VersionV2:
		return "v2"
	case VersionV1:
		return "v1"
	case VersionAny:
		return "any"
	default:
		return "unknown"
	}
}
