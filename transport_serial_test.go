package maviola

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialInfoReportsDeviceAndDefaultBaud(t *testing.T) {
	s := &Serial{Device: "/dev/ttyUSB0"}
	info := s.Info()
	assert.Equal(t, "serial", info.Kind)
	assert.Equal(t, "/dev/ttyUSB0", info.Params["device"])
	assert.Equal(t, "57600", info.Params["baud"])
}

func TestSerialInfoReportsExplicitBaud(t *testing.T) {
	s := &Serial{Device: "/dev/ttyUSB0", Baud: 115200}
	assert.Equal(t, "115200", s.Info().Params["baud"])
}

func TestSerialIsRepairable(t *testing.T) {
	assert.True(t, (&Serial{}).Repairable())
}

func TestSerialBuildFailsOnMissingDevice(t *testing.T) {
	s := &Serial{Device: "/dev/does-not-exist-maviola-test"}
	_, err := NodeConf{
		Version:  VersionV2,
		Endpoint: NewEndpoint(1, 1),
		Builder:  s,
		Dialects: dialectSet(),
	}.Build()
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "serial", buildErr.Transport)
}
