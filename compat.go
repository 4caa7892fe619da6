package maviola

// CompatConfig configures the frame processor's compatibility-flag
// policy (spec §3 "FrameProcessor: optional compat-flag policy"):
// required incompat/compat bits plus an incoming and an outgoing
// Strategy. Only meaningful for v2 frames; v1 frames have no flag bytes
// and pass through untouched.
type CompatConfig struct {
	RequiredIncompat byte
	RequiredCompat   byte
	Incoming         Strategy
	Outgoing         Strategy
}

// apply enforces/strips the configured flags on an outgoing v2 frame per
// Outgoing strategy.
func (c *CompatConfig) apply(f *V2Frame) {
	switch c.Outgoing {
	case StrategyStrip:
		f.SetIncompatFlags(0)
		f.SetCompatFlags(0)
	case StrategyProxy:
		// leave as-is
	case StrategySign: // alias StrategyEnforce
		f.SetIncompatFlags(f.IncompatFlags() | c.RequiredIncompat)
		f.SetCompatFlags(f.CompatFlags() | c.RequiredCompat)
	case StrategyReSign: // alias StrategyReEnforce
		f.SetIncompatFlags(c.RequiredIncompat)
		f.SetCompatFlags(c.RequiredCompat)
	case StrategyReject:
		// Reject is meaningless on the outgoing side (there is nothing
		// to validate about a frame we are constructing); treat it as
		// Enforce so a misconfigured processor still produces a
		// self-consistent frame instead of silently doing nothing.
		f.SetIncompatFlags(f.IncompatFlags() | c.RequiredIncompat)
		f.SetCompatFlags(f.CompatFlags() | c.RequiredCompat)
	}
}

// check validates an incoming v2 frame's flags per Incoming strategy,
// returning a FrameError if the policy is violated.
func (c *CompatConfig) check(f *V2Frame) *FrameError {
	switch c.Incoming {
	case StrategyStrip:
		f.SetIncompatFlags(0)
		f.SetCompatFlags(0)
		return nil
	case StrategyProxy:
		return nil
	case StrategySign, StrategyReSign:
		f.SetIncompatFlags(f.IncompatFlags() | c.RequiredIncompat)
		f.SetCompatFlags(f.CompatFlags() | c.RequiredCompat)
		return nil
	case StrategyReject:
		if f.IncompatFlags()&c.RequiredIncompat != c.RequiredIncompat ||
			f.CompatFlags()&c.RequiredCompat != c.RequiredCompat {
			return &FrameError{Kind: FrameErrorIncompatible, MessageID: f.MessageID()}
		}
		return nil
	default:
		return nil
	}
}
