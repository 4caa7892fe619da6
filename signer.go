package maviola

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"sync/atomic"
)

// Strategy is the policy applied to one artifact (signature or compat
// flags) in one direction (incoming or outgoing); spec §4.5.
type Strategy int

const (
	// StrategyStrip removes the artifact and passes the frame on.
	StrategyStrip Strategy = iota
	// StrategyProxy passes the frame unchanged, without verifying.
	StrategyProxy
	// StrategySign/StrategyEnforce produces or requires the artifact,
	// replacing or adding it. Two names, one value: signing calls it
	// Sign, compat-flag enforcement calls it Enforce.
	StrategySign
	// StrategyReSign/StrategyReEnforce overwrites any existing artifact.
	StrategyReSign
	// StrategyReject fails with a FrameError if the artifact is missing
	// or invalid.
	StrategyReject
)

// StrategyEnforce is an alias for StrategySign used by compat-flag
// configuration for readability.
const StrategyEnforce = StrategySign

// StrategyReEnforce is an alias for StrategyReSign.
const StrategyReEnforce = StrategyReSign

// SignatureKey is the shared secret used to sign and/or verify v2 frames.
// Up to 32 bytes; shorter keys are zero-padded, matching MAVLink's own
// convention.
type SignatureKey struct {
	key [32]byte
}

// NewSignatureKey builds a key from up to 32 bytes of secret material.
func NewSignatureKey(secret []byte) *SignatureKey {
	k := &SignatureKey{}
	n := len(secret)
	if n > 32 {
		n = 32
	}
	copy(k.key[:], secret[:n])
	return k
}

// SignerConfig configures the frame processor's signing subsystem (spec
// §3 "FrameProcessor: optional signer").
type SignerConfig struct {
	Key      *SignatureKey
	Incoming Strategy
	Outgoing Strategy

	// LinkID identifies this processor's signing channel per the MAVLink
	// v2 signature link id convention; defaults to 0.
	LinkID byte

	// nextTimestamp yields the signature timestamp of each signed frame;
	// NewSignerConfig sets it to a counter that starts at 1.
	nextTimestamp func() uint64
}

// NewSignerConfig builds a signer with a monotonically increasing
// timestamp source (MAVLink's signature timestamp is a 48-bit counter of
// 10-microsecond ticks since 2015-01-01; we only need it to be strictly
// increasing per signed frame for the wire-compat round trip, not
// wall-clock exact).
func NewSignerConfig(key *SignatureKey, incoming, outgoing Strategy) *SignerConfig {
	var counter uint64
	return &SignerConfig{
		Key: key, Incoming: incoming, Outgoing: outgoing,
		nextTimestamp: func() uint64 {
			return atomic.AddUint64(&counter, 1)
		},
	}
}

// sign computes and attaches the MAVLink v2 signature block to f,
// truncated to 48 bits of SHA256(key || header || payload || crc ||
// link_id || timestamp).
func (c *SignerConfig) sign(f *V2Frame) {
	// The incompat-flags byte covered by the signature must already
	// carry the "signed" bit, so set it before hashing.
	f.incompat |= incompatFlagSigned

	ts := c.nextTimestamp()
	h := sha256.New()
	h.Write(c.Key.key[:])
	h.Write(signedHeaderBytes(f))
	h.Write(f.Payload())
	var crcB [2]byte
	binary.LittleEndian.PutUint16(crcB[:], f.Checksum())
	h.Write(crcB[:])
	h.Write([]byte{c.LinkID})
	var tsB [6]byte
	putUint48LE(tsB[:], ts)
	h.Write(tsB[:])

	sum := h.Sum(nil)
	var sig [6]byte
	copy(sig[:], sum[:6])
	f.SetSignature(c.LinkID, ts, sig)
}

// verify recomputes the signature over f's current header/payload/crc and
// compares it, in constant time, against the attached signature.
func (c *SignerConfig) verify(f *V2Frame) bool {
	if !f.signed {
		return false
	}
	h := sha256.New()
	h.Write(c.Key.key[:])
	h.Write(signedHeaderBytes(f))
	h.Write(f.Payload())
	var crcB [2]byte
	binary.LittleEndian.PutUint16(crcB[:], f.Checksum())
	h.Write(crcB[:])
	h.Write([]byte{f.linkID})
	var tsB [6]byte
	putUint48LE(tsB[:], f.timestamp)
	h.Write(tsB[:])

	sum := h.Sum(nil)
	return subtle.ConstantTimeCompare(sum[:6], f.sig[:]) == 1
}

// signedHeaderBytes is the portion of the frame header covered by the
// signature: everything from the magic byte through message id.
func signedHeaderBytes(f *V2Frame) []byte {
	return []byte{
		magicV2, byte(len(f.payload)), f.incompat, f.compat, f.seq, f.sysID, f.compID,
		byte(f.msgID), byte(f.msgID >> 8), byte(f.msgID >> 16),
	}
}
