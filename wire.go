package maviola

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/istalabs/maviola/message"
)

// Sender and Receiver are the codec primitives spec.md §6 treats as
// external collaborators ("assumed available ... propagate I/O errors").
// Every Channel (channel.go) is built from exactly one of each.
type Sender interface {
	Send(Frame) error
}

type Receiver interface {
	Receive() (Frame, error)
}

const (
	magicV1 = 0xFE
	magicV2 = 0xFD
)

// CRCExtraLookup resolves the MAVLink CRC_EXTRA byte for a message id;
// message.Set satisfies it via its CRCExtra method.
type CRCExtraLookup func(msgID uint32) (byte, bool)

func lookupFromSet(dialects message.Set) CRCExtraLookup {
	return func(msgID uint32) (byte, bool) { return dialects.CRCExtra(msgID) }
}

// StreamReceiver reads framed MAVLink v1/v2 frames off a byte stream.
type StreamReceiver struct {
	r        io.Reader
	crcExtra CRCExtraLookup
}

// NewStreamReceiver builds a Receiver over r, consulting dialects for
// CRC_EXTRA bytes.
func NewStreamReceiver(r io.Reader, dialects message.Set) *StreamReceiver {
	return &StreamReceiver{r: r, crcExtra: lookupFromSet(dialects)}
}

func (sr *StreamReceiver) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(sr.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Receive blocks until one full frame (v1 or v2) has been read, or
// returns an I/O error (including io.EOF at stream end).
func (sr *StreamReceiver) Receive() (Frame, error) {
	magic := make([]byte, 1)
	for {
		if _, err := io.ReadFull(sr.r, magic); err != nil {
			return nil, err
		}
		switch magic[0] {
		case magicV1:
			return sr.receiveV1()
		case magicV2:
			return sr.receiveV2()
		default:
			// Resync: skip bytes until a magic byte is seen, matching
			// how real MAVLink parsers tolerate stray bytes on the wire.
			continue
		}
	}
}

func (sr *StreamReceiver) receiveV1() (Frame, error) {
	hdr, err := sr.readFull(4) // len, seq, sysid, compid
	if err != nil {
		return nil, err
	}
	length, seq, sysID, compID := hdr[0], hdr[1], hdr[2], hdr[3]

	msgIDB, err := sr.readFull(1)
	if err != nil {
		return nil, err
	}
	msgID := uint32(msgIDB[0])

	payload, err := sr.readFull(int(length))
	if err != nil {
		return nil, err
	}

	crcB, err := sr.readFull(2)
	if err != nil {
		return nil, err
	}
	checksum := binary.LittleEndian.Uint16(crcB)

	crcExtra, _ := sr.crcExtra(msgID)
	computed := crc16MAVLink(func(acc *uint16) {
		crc16Accumulate(acc, length)
		crc16Accumulate(acc, seq)
		crc16Accumulate(acc, sysID)
		crc16Accumulate(acc, compID)
		crc16Accumulate(acc, byte(msgID))
		for _, b := range payload {
			crc16Accumulate(acc, b)
		}
		crc16Accumulate(acc, crcExtra)
	})
	if computed != checksum {
		return nil, &FrameError{Kind: FrameErrorMalformed, MessageID: msgID,
			Err: fmt.Errorf("v1 checksum mismatch: got %#04x want %#04x", checksum, computed)}
	}

	f := NewV1Frame(seq, sysID, compID, msgID, payload)
	f.SetChecksum(checksum)
	return f, nil
}

func (sr *StreamReceiver) receiveV2() (Frame, error) {
	hdr, err := sr.readFull(6) // len, incompat, compat, seq, sysid, compid
	if err != nil {
		return nil, err
	}
	length, incompat, compat, seq, sysID, compID := hdr[0], hdr[1], hdr[2], hdr[3], hdr[4], hdr[5]

	msgIDB, err := sr.readFull(3)
	if err != nil {
		return nil, err
	}
	msgID := uint32(msgIDB[0]) | uint32(msgIDB[1])<<8 | uint32(msgIDB[2])<<16

	payload, err := sr.readFull(int(length))
	if err != nil {
		return nil, err
	}

	crcB, err := sr.readFull(2)
	if err != nil {
		return nil, err
	}
	checksum := binary.LittleEndian.Uint16(crcB)

	var sig []byte
	if incompat&incompatFlagSigned != 0 {
		sig, err = sr.readFull(13)
		if err != nil {
			return nil, err
		}
	}

	crcExtra, _ := sr.crcExtra(msgID)
	computed := crc16MAVLink(func(acc *uint16) {
		crc16Accumulate(acc, length)
		crc16Accumulate(acc, incompat)
		crc16Accumulate(acc, compat)
		crc16Accumulate(acc, seq)
		crc16Accumulate(acc, sysID)
		crc16Accumulate(acc, compID)
		crc16Accumulate(acc, byte(msgID))
		crc16Accumulate(acc, byte(msgID>>8))
		crc16Accumulate(acc, byte(msgID>>16))
		for _, b := range payload {
			crc16Accumulate(acc, b)
		}
		crc16Accumulate(acc, crcExtra)
	})
	if computed != checksum {
		return nil, &FrameError{Kind: FrameErrorMalformed, MessageID: msgID,
			Err: fmt.Errorf("v2 checksum mismatch: got %#04x want %#04x", checksum, computed)}
	}

	f := NewV2Frame(seq, sysID, compID, msgID, payload)
	f.SetIncompatFlags(incompat)
	f.SetCompatFlags(compat)
	f.SetChecksum(checksum)
	if sig != nil {
		var s [6]byte
		copy(s[:], sig[7:13])
		f.SetSignature(sig[0], getUint48LE(sig[1:7]), s)
	}
	return f, nil
}

// Close closes the underlying reader if it supports io.Closer, so a
// Channel can unblock a reader parked in a blocking Receive (channel.go
// closeInternal).
func (sr *StreamReceiver) Close() error {
	if c, ok := sr.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// StreamSender writes framed MAVLink v1/v2 frames to a byte stream.
type StreamSender struct {
	w        io.Writer
	crcExtra CRCExtraLookup
}

// NewStreamSender builds a Sender over w, consulting dialects for
// CRC_EXTRA bytes.
func NewStreamSender(w io.Writer, dialects message.Set) *StreamSender {
	return &StreamSender{w: w, crcExtra: lookupFromSet(dialects)}
}

// Send encodes and writes f. The frame's checksum is (re)computed here,
// so callers do not need to set it themselves.
func (sw *StreamSender) Send(f Frame) error {
	switch fr := f.(type) {
	case *V1Frame:
		return sw.sendV1(fr)
	case *V2Frame:
		return sw.sendV2(fr)
	default:
		return fmt.Errorf("wire: unsupported frame type %T", f)
	}
}

func (sw *StreamSender) sendV1(f *V1Frame) error {
	length := byte(len(f.payload))
	crcExtra, _ := sw.crcExtra(f.msgID)
	checksum := crc16MAVLink(func(acc *uint16) {
		crc16Accumulate(acc, length)
		crc16Accumulate(acc, f.seq)
		crc16Accumulate(acc, f.sysID)
		crc16Accumulate(acc, f.compID)
		crc16Accumulate(acc, byte(f.msgID))
		for _, b := range f.payload {
			crc16Accumulate(acc, b)
		}
		crc16Accumulate(acc, crcExtra)
	})
	f.SetChecksum(checksum)

	buf := make([]byte, 0, 6+len(f.payload)+2)
	buf = append(buf, magicV1, length, f.seq, f.sysID, f.compID, byte(f.msgID))
	buf = append(buf, f.payload...)
	buf = append(buf, byte(checksum), byte(checksum>>8))
	_, err := sw.w.Write(buf)
	return err
}

// computeChecksumV2 is the MAVLink v2 CRC over f's current header,
// payload and flags, seeded with crcExtra. sendV2 uses it at write time;
// the signer (processor.go) must use the same function before signing,
// since the signature covers this checksum and has to match what the
// receiver recomputes off the wire (spec §8: "Sign then verify with
// Reject is the identity on valid frames").
func computeChecksumV2(f *V2Frame, crcExtra byte) uint16 {
	return crc16MAVLink(func(acc *uint16) {
		crc16Accumulate(acc, byte(len(f.payload)))
		crc16Accumulate(acc, f.incompat)
		crc16Accumulate(acc, f.compat)
		crc16Accumulate(acc, f.seq)
		crc16Accumulate(acc, f.sysID)
		crc16Accumulate(acc, f.compID)
		crc16Accumulate(acc, byte(f.msgID))
		crc16Accumulate(acc, byte(f.msgID>>8))
		crc16Accumulate(acc, byte(f.msgID>>16))
		for _, b := range f.payload {
			crc16Accumulate(acc, b)
		}
		crc16Accumulate(acc, crcExtra)
	})
}

func (sw *StreamSender) sendV2(f *V2Frame) error {
	length := byte(len(f.payload))
	crcExtra, _ := sw.crcExtra(f.msgID)
	checksum := computeChecksumV2(f, crcExtra)
	f.SetChecksum(checksum)

	buf := make([]byte, 0, netBufferSize)
	buf = append(buf, magicV2, length, f.incompat, f.compat, f.seq, f.sysID, f.compID,
		byte(f.msgID), byte(f.msgID>>8), byte(f.msgID>>16))
	buf = append(buf, f.payload...)
	buf = append(buf, byte(checksum), byte(checksum>>8))
	if f.signed {
		buf = append(buf, f.linkID)
		var ts [6]byte
		putUint48LE(ts[:], f.timestamp)
		buf = append(buf, ts[:]...)
		buf = append(buf, f.sig[:]...)
	}
	_, err := sw.w.Write(buf)
	return err
}

// Close closes the underlying writer if it supports io.Closer.
func (sw *StreamSender) Close() error {
	if c, ok := sw.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// crc16Accumulate is MAVLink's CRC-16/MCRF4XX (X.25) running checksum
// step.
func crc16Accumulate(acc *uint16, b byte) {
	tmp := b ^ byte(*acc&0xFF)
	tmp ^= tmp << 4
	*acc = (*acc >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
}

func crc16MAVLink(accumulate func(acc *uint16)) uint16 {
	acc := uint16(0xFFFF)
	accumulate(&acc)
	return acc
}
