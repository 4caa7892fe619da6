package minimal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatEncodeDecodeRoundTrip(t *testing.T) {
	hb := &MessageHeartbeat{
		Type:           MavTypeGCS,
		Autopilot:      MavAutopilotGeneric,
		BaseMode:       0,
		CustomMode:     42,
		SystemStatus:   MavStateActive,
		MavlinkVersion: 3,
	}

	payload, err := hb.Encode()
	require.NoError(t, err)
	require.Len(t, payload, 9)

	var out MessageHeartbeat
	require.NoError(t, out.Decode(payload))
	assert.Equal(t, *hb, out)
}

func TestHeartbeatDecodeRejectsShortPayload(t *testing.T) {
	var hb MessageHeartbeat
	err := hb.Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDialectRegistersHeartbeat(t *testing.T) {
	assert.True(t, Dialect.Has(HeartbeatMessageID))
	extra, ok := Dialect.CRCExtra(HeartbeatMessageID)
	require.True(t, ok)
	assert.Equal(t, byte(50), extra)
}

func TestDialectDecodesHeartbeat(t *testing.T) {
	hb := &MessageHeartbeat{Type: MavTypeGeneric, MavlinkVersion: 3}
	payload, err := hb.Encode()
	require.NoError(t, err)

	msg, err := Dialect.Decode(HeartbeatMessageID, payload)
	require.NoError(t, err)
	got, ok := msg.(*MessageHeartbeat)
	require.True(t, ok)
	assert.Equal(t, uint8(3), got.MavlinkVersion)
}
