package maviola

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/istalabs/maviola/dialects/minimal"
)

func TestCompatConfigApplyEnforce(t *testing.T) {
	c := &CompatConfig{RequiredIncompat: 0x01, RequiredCompat: 0x02, Outgoing: StrategySign}
	f := NewV2Frame(0, 1, 1, minimal.HeartbeatMessageID, []byte{1})
	c.apply(f)
	assert.Equal(t, byte(0x01), f.IncompatFlags())
	assert.Equal(t, byte(0x02), f.CompatFlags())
}

func TestCompatConfigApplyStrip(t *testing.T) {
	c := &CompatConfig{RequiredIncompat: 0x01, Outgoing: StrategyStrip}
	f := NewV2Frame(0, 1, 1, minimal.HeartbeatMessageID, []byte{1})
	f.SetIncompatFlags(0xFF)
	c.apply(f)
	assert.Equal(t, byte(0), f.IncompatFlags())
}

func TestCompatConfigCheckRejectMissingFlags(t *testing.T) {
	c := &CompatConfig{RequiredIncompat: 0x01, Incoming: StrategyReject}
	f := NewV2Frame(0, 1, 1, minimal.HeartbeatMessageID, []byte{1})

	ferr := c.check(f)
	if assert.NotNil(t, ferr) {
		assert.Equal(t, FrameErrorIncompatible, ferr.Kind)
	}
}

func TestCompatConfigCheckAcceptsSatisfiedFlags(t *testing.T) {
	c := &CompatConfig{RequiredIncompat: 0x01, Incoming: StrategyReject}
	f := NewV2Frame(0, 1, 1, minimal.HeartbeatMessageID, []byte{1})
	f.SetIncompatFlags(0x01)

	assert.Nil(t, c.check(f))
}
