package maviola

import (
	"github.com/istalabs/maviola/message"
)

// Frame is a versioned MAVLink frame (spec §3 "Frame"): opaque except for
// the field accessors below, decode-by-dialect, and in-place mutation of
// header/signature during processing.
type Frame interface {
	Version() Version
	Sequence() byte
	SetSequence(byte)
	SystemID() byte
	ComponentID() byte
	MessageID() uint32
	Payload() []byte
	SetPayload([]byte)

	// IncompatFlags/CompatFlags are v2-only; v1 frames report 0 for both.
	IncompatFlags() byte
	SetIncompatFlags(byte)
	CompatFlags() byte
	SetCompatFlags(byte)

	Checksum() uint16
	SetChecksum(uint16)

	// Signature is the optional v2 signature link; nil on v1 frames or
	// unsigned v2 frames.
	Signature() []byte
	SetSignature(linkID byte, timestamp uint64, sig [6]byte)
	ClearSignature()
	HasSignature() bool

	// Decode resolves the payload to a concrete Message via dialects.
	Decode(dialects message.Set) (message.Message, error)

	// Clone returns a deep copy safe to mutate independently (used before
	// applying a per-recipient process_outgoing pass, spec §4.10).
	Clone() Frame
}

// incompatFlagSigned marks a v2 frame as carrying a signature block
// (MAVLink IFLAG_SIGNED, bit 0).
const incompatFlagSigned byte = 0x01

// V1Frame is a MAVLink v1 wire frame.
type V1Frame struct {
	seq      byte
	sysID    byte
	compID   byte
	msgID    uint32
	payload  []byte
	checksum uint16
}

// NewV1Frame builds a v1 frame ready for checksum computation by the
// codec (wire.go).
func NewV1Frame(seq, sysID, compID byte, msgID uint32, payload []byte) *V1Frame {
	return &V1Frame{seq: seq, sysID: sysID, compID: compID, msgID: msgID, payload: payload}
}

func (f *V1Frame) Version() Version       { return VersionV1 }
func (f *V1Frame) Sequence() byte         { return f.seq }
func (f *V1Frame) SetSequence(v byte)     { f.seq = v }
func (f *V1Frame) SystemID() byte         { return f.sysID }
func (f *V1Frame) ComponentID() byte      { return f.compID }
func (f *V1Frame) MessageID() uint32      { return f.msgID }
func (f *V1Frame) Payload() []byte        { return f.payload }
func (f *V1Frame) SetPayload(p []byte)    { f.payload = p }
func (f *V1Frame) IncompatFlags() byte    { return 0 }
func (f *V1Frame) SetIncompatFlags(byte)  {}
func (f *V1Frame) CompatFlags() byte      { return 0 }
func (f *V1Frame) SetCompatFlags(byte)    {}
func (f *V1Frame) Checksum() uint16       { return f.checksum }
func (f *V1Frame) SetChecksum(c uint16)   { f.checksum = c }
func (f *V1Frame) Signature() []byte      { return nil }
func (f *V1Frame) SetSignature(byte, uint64, [6]byte) {}
func (f *V1Frame) ClearSignature()        {}
func (f *V1Frame) HasSignature() bool     { return false }

func (f *V1Frame) Decode(dialects message.Set) (message.Message, error) {
	return dialects.Decode(f.msgID, f.payload)
}

func (f *V1Frame) Clone() Frame {
	cp := *f
	cp.payload = append([]byte(nil), f.payload...)
	return &cp
}

// V2Frame is a MAVLink v2 wire frame, with optional incompat/compat flags
// and an optional signature block.
type V2Frame struct {
	seq      byte
	sysID    byte
	compID   byte
	msgID    uint32
	incompat byte
	compat   byte
	payload  []byte
	checksum uint16

	signed    bool
	linkID    byte
	timestamp uint64
	sig       [6]byte
}

// NewV2Frame builds a v2 frame ready for checksum computation by the
// codec (wire.go).
func NewV2Frame(seq, sysID, compID byte, msgID uint32, payload []byte) *V2Frame {
	return &V2Frame{seq: seq, sysID: sysID, compID: compID, msgID: msgID, payload: payload}
}

func (f *V2Frame) Version() Version     { return VersionV2 }
func (f *V2Frame) Sequence() byte       { return f.seq }
func (f *V2Frame) SetSequence(v byte)   { f.seq = v }
func (f *V2Frame) SystemID() byte       { return f.sysID }
func (f *V2Frame) ComponentID() byte    { return f.compID }
func (f *V2Frame) MessageID() uint32    { return f.msgID }
func (f *V2Frame) Payload() []byte      { return f.payload }
func (f *V2Frame) SetPayload(p []byte)  { f.payload = p }
func (f *V2Frame) IncompatFlags() byte  { return f.incompat }
func (f *V2Frame) CompatFlags() byte    { return f.compat }
func (f *V2Frame) Checksum() uint16     { return f.checksum }
func (f *V2Frame) SetChecksum(c uint16) { f.checksum = c }

func (f *V2Frame) SetIncompatFlags(v byte) { f.incompat = v }
func (f *V2Frame) SetCompatFlags(v byte)   { f.compat = v }

func (f *V2Frame) Signature() []byte {
	if !f.signed {
		return nil
	}
	out := make([]byte, 13)
	out[0] = f.linkID
	putUint48LE(out[1:7], f.timestamp)
	copy(out[7:13], f.sig[:])
	return out
}

func (f *V2Frame) SetSignature(linkID byte, timestamp uint64, sig [6]byte) {
	f.signed = true
	f.linkID = linkID
	f.timestamp = timestamp
	f.sig = sig
	f.incompat |= incompatFlagSigned
}

func (f *V2Frame) ClearSignature() {
	f.signed = false
	f.linkID = 0
	f.timestamp = 0
	f.sig = [6]byte{}
	f.incompat &^= incompatFlagSigned
}

func (f *V2Frame) HasSignature() bool { return f.signed }

func (f *V2Frame) Decode(dialects message.Set) (message.Message, error) {
	return dialects.Decode(f.msgID, f.payload)
}

func (f *V2Frame) Clone() Frame {
	cp := *f
	cp.payload = append([]byte(nil), f.payload...)
	return &cp
}

func putUint48LE(b []byte, v uint64) {
	for i := 0; i < 6; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func getUint48LE(b []byte) uint64 {
	var v uint64
	for i := 0; i < 6; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}

// OutgoingFrame pairs a frame with the routing rule that decides which
// channels transmit it (spec §3). SourceChannel/SourceConnection are set
// when the frame originated from an incoming callback; routing reads only
// Scope, which carries its own channel and connection ids.
type OutgoingFrame struct {
	Frame            Frame
	Scope            BroadcastScope
	SourceChannel    ChannelId
	SourceConnection ConnectionId
}

// IncomingFrame pairs a frame with the id of the channel that produced it;
// this id seeds the Callback delivered alongside it (spec §3).
type IncomingFrame struct {
	Frame     Frame
	ChannelID ChannelId
}
