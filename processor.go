package maviola

import (
	"github.com/istalabs/maviola/message"
)

// UserProcessor is a user-supplied pipeline stage (spec §3 "zero or more
// user processors"). Implementations mutate the frame in place and
// return a FrameError to reject it.
type UserProcessor interface {
	ProcessIncoming(f Frame) error
	ProcessOutgoing(f Frame) error
}

// FrameProcessor is the ordered, immutable-after-build pipeline shared by
// reference across a node (spec §3 "FrameProcessor"). Building one is the
// only place its fields are set; process_incoming/process_outgoing never
// mutate the processor itself, only the frame passed to them, so a single
// instance can be safely shared across every channel and callback
// without locking (spec §5).
type FrameProcessor struct {
	Signer *SignerConfig
	Compat *CompatConfig

	Dialects      message.Set
	StrictDialect bool

	UserProcessors []UserProcessor
}

// ProcessIncoming runs the incoming pipeline of spec §4.5:
//  1. user processors in registration order
//  2. compat-flag check
//  3. signature check
//  4. dialect/message-id validation (strict mode only)
func (p *FrameProcessor) ProcessIncoming(f Frame) error {
	for _, up := range p.UserProcessors {
		if err := up.ProcessIncoming(f); err != nil {
			return asFrameError(err, f.MessageID())
		}
	}

	if v2, ok := f.(*V2Frame); ok && p.Compat != nil {
		if ferr := p.Compat.check(v2); ferr != nil {
			return ferr
		}
	}

	if p.Signer != nil {
		if v2, ok := f.(*V2Frame); ok {
			switch p.Signer.Incoming {
			case StrategyStrip:
				v2.ClearSignature()
			case StrategyProxy:
				// leave as-is, unverified
			case StrategyReject:
				if !p.Signer.verify(v2) {
					return &FrameError{Kind: FrameErrorSignature, MessageID: f.MessageID()}
				}
			case StrategySign, StrategyReSign:
				// Incoming frames are not re-signed by the receiver; treat
				// as Reject so a misconfigured incoming Sign still protects
				// the node rather than silently accepting anything.
				if !p.Signer.verify(v2) {
					return &FrameError{Kind: FrameErrorSignature, MessageID: f.MessageID()}
				}
			}
		} else {
			switch p.Signer.Incoming {
			case StrategyReject, StrategySign, StrategyReSign:
				// A v1 frame carries no signature at all, so it can
				// never satisfy a policy that demands one (gomavlib
				// discards sub-2.0 frames once a signature key is
				// configured). Strip and Proxy have nothing to strip
				// or pass through unverified, so v1 frames are fine.
				return &FrameError{Kind: FrameErrorSignature, MessageID: f.MessageID()}
			}
		}
	}

	if p.StrictDialect && p.Dialects != nil && !p.Dialects.Has(f.MessageID()) {
		return &FrameError{Kind: FrameErrorNotInDialect, MessageID: f.MessageID()}
	}

	return nil
}

// ProcessOutgoing runs the outgoing pipeline of spec §4.5:
//  1. dialect validation
//  2. compat-flag application
//  3. signer
//  4. user processors
func (p *FrameProcessor) ProcessOutgoing(f Frame) error {
	if p.Dialects != nil && len(p.Dialects) > 0 && !p.Dialects.Has(f.MessageID()) {
		return &FrameError{Kind: FrameErrorNotInDialect, MessageID: f.MessageID()}
	}

	if v2, ok := f.(*V2Frame); ok {
		if p.Compat != nil {
			p.Compat.apply(v2)
		}
		if p.Signer != nil {
			// About to (re-)sign this frame means the wire's signed
			// incompat bit must be set before the checksum below is
			// computed, since that bit is itself part of the checksum's
			// covered header; sign() also sets it, but too late for the
			// checksum we're about to feed it.
			if p.Signer.Outgoing == StrategyReSign ||
				(p.Signer.Outgoing == StrategySign && !v2.HasSignature()) {
				v2.SetIncompatFlags(v2.IncompatFlags() | incompatFlagSigned)
			}

			// The signature covers the checksum, so it must be the real
			// wire checksum (what receiveV2 will recompute on the other
			// end), not whatever happens to be sitting on a freshly built
			// frame. Recompute it here, after compat flags (and the signed
			// bit, above) are applied and before the signer runs, mirroring
			// wire.go's computeChecksumV2.
			crcExtra, _ := p.Dialects.CRCExtra(v2.MessageID())
			v2.SetChecksum(computeChecksumV2(v2, crcExtra))

			switch p.Signer.Outgoing {
			case StrategyStrip:
				v2.ClearSignature()
			case StrategyProxy:
				// leave as-is
			case StrategySign:
				if !v2.HasSignature() {
					p.Signer.sign(v2)
				}
			case StrategyReSign:
				p.Signer.sign(v2)
			case StrategyReject:
				if !p.Signer.verify(v2) {
					return &FrameError{Kind: FrameErrorSignature, MessageID: f.MessageID()}
				}
			}
		}
	}

	for _, up := range p.UserProcessors {
		if err := up.ProcessOutgoing(f); err != nil {
			return asFrameError(err, f.MessageID())
		}
	}

	return nil
}

func asFrameError(err error, msgID uint32) error {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*FrameError); ok {
		return fe
	}
	return &FrameError{Kind: FrameErrorMalformed, MessageID: msgID, Err: err}
}
