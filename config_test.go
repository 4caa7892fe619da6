package maviola

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "maviola.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  kind: tcp_server
  addr: "127.0.0.1:5760"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int(DefaultHeartbeatInterval/time.Millisecond), cfg.Heartbeat.IntervalMS)
	assert.Equal(t, int(DefaultHeartbeatTimeout/time.Millisecond), cfg.Heartbeat.TimeoutMS)
}

func TestLoadConfigRejectsUnknownEndpointKind(t *testing.T) {
	path := writeConfig(t, `
endpoint:
  kind: carrier_pigeon
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFileConfigBuildConnectionEveryKind(t *testing.T) {
	kinds := map[string]interface{}{
		"tcp_server":  &TCPServer{},
		"tcp_client":  &TCPClient{},
		"udp_server":  &UDPServer{},
		"udp_client":  &UDPClient{},
		"unix_server": &UnixServer{},
		"unix_client": &UnixClient{},
		"file_writer": &FileWriter{},
		"file_reader": &FileReader{},
		"serial":      &Serial{},
	}
	for kind, want := range kinds {
		cfg := &FileConfig{Endpoint: EndpointConfig{Kind: kind}}
		builder, err := cfg.buildConnection()
		require.NoError(t, err, kind)
		assert.IsType(t, want, builder, kind)
	}
}

func TestParseStrategyAliases(t *testing.T) {
	cases := map[string]Strategy{
		"":           StrategyProxy,
		"proxy":      StrategyProxy,
		"strip":      StrategyStrip,
		"sign":       StrategySign,
		"enforce":    StrategySign,
		"resign":     StrategyReSign,
		"re_enforce": StrategyReSign,
		"reject":     StrategyReject,
	}
	for in, want := range cases {
		got, err := parseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseStrategy("bogus")
	assert.Error(t, err)
}

func TestToNodeConfBuildsProxyNodeWithoutIdentity(t *testing.T) {
	cfg := &FileConfig{Endpoint: EndpointConfig{Kind: "tcp_client", Addr: "127.0.0.1:5760"}}
	conf, err := cfg.ToNodeConf()
	require.NoError(t, err)
	assert.Nil(t, conf.Endpoint)
	assert.Equal(t, VersionV2, conf.Version)
	assert.Len(t, conf.Dialects, 1)
}

func TestToNodeConfBuildsIdentifiedNode(t *testing.T) {
	cfg := &FileConfig{
		Endpoint: EndpointConfig{Kind: "tcp_client", Addr: "127.0.0.1:5760"},
		Identity: &IdentityConfig{SystemID: 7, ComponentID: 1},
	}
	conf, err := cfg.ToNodeConf()
	require.NoError(t, err)
	require.NotNil(t, conf.Endpoint)
	assert.Equal(t, byte(7), conf.Endpoint.SystemID)
}

func TestToNodeConfRejectsUnknownDialect(t *testing.T) {
	cfg := &FileConfig{
		Endpoint: EndpointConfig{Kind: "tcp_client", Addr: "127.0.0.1:5760"},
		Dialect:  "ardupilotmega",
	}
	_, err := cfg.ToNodeConf()
	assert.Error(t, err)
}

func TestToNodeConfWiresSignerConfig(t *testing.T) {
	cfg := &FileConfig{
		Endpoint: EndpointConfig{Kind: "tcp_client", Addr: "127.0.0.1:5760"},
		Signer: &SignerFileConfig{
			Key:      "sekrit",
			Incoming: "reject",
			Outgoing: "sign",
			LinkID:   3,
		},
	}
	conf, err := cfg.ToNodeConf()
	require.NoError(t, err)
	require.NotNil(t, conf.Signer)
	assert.Equal(t, StrategyReject, conf.Signer.Incoming)
	assert.Equal(t, StrategySign, conf.Signer.Outgoing)
	assert.Equal(t, byte(3), conf.Signer.LinkID)
}

func TestToNodeConfWiresCompatConfig(t *testing.T) {
	cfg := &FileConfig{
		Endpoint: EndpointConfig{Kind: "tcp_client", Addr: "127.0.0.1:5760"},
		Compat: &CompatFileConfig{
			RequiredIncompat: 0x01,
			RequiredCompat:   0x02,
			Incoming:         "reject",
			Outgoing:         "enforce",
		},
	}
	conf, err := cfg.ToNodeConf()
	require.NoError(t, err)
	require.NotNil(t, conf.Compat)
	assert.Equal(t, byte(0x01), conf.Compat.RequiredIncompat)
	assert.Equal(t, StrategySign, conf.Compat.Outgoing)
}

func TestToNodeConfRejectsBadSignerStrategy(t *testing.T) {
	cfg := &FileConfig{
		Endpoint: EndpointConfig{Kind: "tcp_client", Addr: "127.0.0.1:5760"},
		Signer:   &SignerFileConfig{Incoming: "whatever-this-is-not"},
	}
	_, err := cfg.ToNodeConf()
	assert.Error(t, err)
}
