// Package message defines the dialect/message catalog boundary the node
// runtime consults (spec.md §1: "the MAVLink dialect catalog ... assumed
// available; the core consults it only to decode heartbeats and to
// validate message IDs"). Layout (message + dialects/<name>) mirrors the
// pkg/message, pkg/dialects/common convention of github.com/bluenviron/
// gomavlib/v3, observed via its consumers in the example pack.
package message

import "fmt"

// Message is anything a dialect can encode to, and decode from, a MAVLink
// payload.
type Message interface {
	// GetID returns the dialect-wide unique message id.
	GetID() uint32
	// Encode serializes the message body (the payload carried inside a
	// Frame).
	Encode() ([]byte, error)
	// Decode populates the message from a payload previously produced by
	// Encode (or received over the wire).
	Decode(payload []byte) error
}

// Raw is the fallback representation for a message id not known to any
// configured dialect: the frame processor's incoming dialect step (spec
// §4.5) only rejects unknown ids in strict mode, so an unrecognized
// received message must still be representable.
type Raw struct {
	ID      uint32
	Payload []byte
}

func (m *Raw) GetID() uint32 { return m.ID }

func (m *Raw) Encode() ([]byte, error) {
	return append([]byte(nil), m.Payload...), nil
}

func (m *Raw) Decode(payload []byte) error {
	m.Payload = append([]byte(nil), payload...)
	return nil
}

// Factory constructs a zero-value Message ready to Decode into.
type Factory func() Message

type registration struct {
	factory  Factory
	crcExtra byte
}

// Dialect is a versioned set of message schemas identified by message id
// (spec glossary: "Dialect").
type Dialect struct {
	Name    string
	Version uint8

	messages map[uint32]registration
}

// NewDialect creates an empty dialect ready for Register calls.
func NewDialect(name string, version uint8) *Dialect {
	return &Dialect{Name: name, Version: version, messages: make(map[uint32]registration)}
}

// Register adds a message schema to the dialect. crcExtra is the MAVLink
// CRC_EXTRA byte mixed into the frame checksum for this message id; it is
// a property of the schema, not of the wire codec, which is why it
// travels with the dialect rather than with wire.go.
func (d *Dialect) Register(id uint32, crcExtra byte, factory Factory) {
	d.messages[id] = registration{factory: factory, crcExtra: crcExtra}
}

// Has reports whether id is known to this dialect.
func (d *Dialect) Has(id uint32) bool {
	_, ok := d.messages[id]
	return ok
}

// CRCExtra returns the CRC_EXTRA byte for id, if known.
func (d *Dialect) CRCExtra(id uint32) (byte, bool) {
	r, ok := d.messages[id]
	if !ok {
		return 0, false
	}
	return r.crcExtra, true
}

// Decode builds and decodes a Message for id from payload. Returns an
// error if id is not registered.
func (d *Dialect) Decode(id uint32, payload []byte) (Message, error) {
	r, ok := d.messages[id]
	if !ok {
		return nil, fmt.Errorf("message: id %d not in dialect %q", id, d.Name)
	}
	msg := r.factory()
	if err := msg.Decode(payload); err != nil {
		return nil, fmt.Errorf("message: decode id %d: %w", id, err)
	}
	return msg, nil
}

// Set is an ordered list of dialects consulted together, as configured on
// a FrameProcessor (spec §3 "FrameProcessor: dialect set").
type Set []*Dialect

// Has reports whether any dialect in the set knows id.
func (s Set) Has(id uint32) bool {
	for _, d := range s {
		if d.Has(id) {
			return true
		}
	}
	return false
}

// Decode tries each dialect in order and returns the first successful
// decode.
func (s Set) Decode(id uint32, payload []byte) (Message, error) {
	for _, d := range s {
		if d.Has(id) {
			return d.Decode(id, payload)
		}
	}
	return nil, fmt.Errorf("message: id %d not in any of %d dialects", id, len(s))
}

// CRCExtra returns the CRC_EXTRA byte for id from the first dialect that
// knows it.
func (s Set) CRCExtra(id uint32) (byte, bool) {
	for _, d := range s {
		if extra, ok := d.CRCExtra(id); ok {
			return extra, true
		}
	}
	return 0, false
}
