package maviola

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/istalabs/maviola/dialects/minimal"
	"github.com/istalabs/maviola/message"
)

// FileConfig is the YAML-tagged struct-of-structs layout this package's
// config layer uses, grounded on DroneBridge/config/config.go's shape:
// one top-level struct whose fields are themselves yaml-tagged structs,
// loaded with gopkg.in/yaml.v3.
type FileConfig struct {
	Log       LogConfig       `yaml:"log"`
	Identity  *IdentityConfig `yaml:"identity"`
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`

	Dialect       string `yaml:"dialect"`
	StrictDialect bool   `yaml:"strict_dialect"`

	Signer *SignerFileConfig `yaml:"signer"`
	Compat *CompatFileConfig `yaml:"compat"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // trace, debug, info, warn, error
}

// IdentityConfig is present only for an identified node; its absence
// builds a proxy node (spec §9).
type IdentityConfig struct {
	SystemID    byte `yaml:"system_id"`
	ComponentID byte `yaml:"component_id"`
}

// EndpointConfig selects and configures exactly one transport (spec §6).
type EndpointConfig struct {
	Kind   string `yaml:"kind"` // tcp_server, tcp_client, udp_server, udp_client, unix_server, unix_client, file_writer, file_reader, serial
	Addr   string `yaml:"addr"`
	Path   string `yaml:"path"`
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// HeartbeatConfig overrides the package defaults in consts.go.
type HeartbeatConfig struct {
	IntervalMS int `yaml:"interval_ms"`
	TimeoutMS  int `yaml:"timeout_ms"`
}

// SignerFileConfig configures the v2 signature subsystem. Incoming and
// Outgoing are one of "strip", "proxy", "sign"/"enforce",
// "resign"/"re_enforce", "reject".
type SignerFileConfig struct {
	Key      string `yaml:"key"`
	Incoming string `yaml:"incoming"`
	Outgoing string `yaml:"outgoing"`
	LinkID   byte   `yaml:"link_id"`
}

// CompatFileConfig configures the v2 compat/incompat flag policy.
type CompatFileConfig struct {
	RequiredIncompat byte   `yaml:"required_incompat"`
	RequiredCompat   byte   `yaml:"required_compat"`
	Incoming         string `yaml:"incoming"`
	Outgoing         string `yaml:"outgoing"`
}

// LoadConfig reads and validates a YAML config file, filling in package
// defaults for anything left unset.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("maviola: read config: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("maviola: parse config: %w", err)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Heartbeat.IntervalMS <= 0 {
		cfg.Heartbeat.IntervalMS = int(DefaultHeartbeatInterval / time.Millisecond)
	}
	if cfg.Heartbeat.TimeoutMS <= 0 {
		cfg.Heartbeat.TimeoutMS = int(DefaultHeartbeatTimeout / time.Millisecond)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("maviola: invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *FileConfig) validate() error {
	switch c.Endpoint.Kind {
	case "tcp_server", "tcp_client", "udp_server", "udp_client",
		"unix_server", "unix_client", "file_writer", "file_reader", "serial":
	default:
		return fmt.Errorf("endpoint.kind %q not recognized", c.Endpoint.Kind)
	}
	return nil
}

func (c *FileConfig) buildConnection() (ConnectionBuilder, error) {
	switch c.Endpoint.Kind {
	case "tcp_server":
		return &TCPServer{Addr: c.Endpoint.Addr}, nil
	case "tcp_client":
		return &TCPClient{Addr: c.Endpoint.Addr}, nil
	case "udp_server":
		return &UDPServer{Addr: c.Endpoint.Addr}, nil
	case "udp_client":
		return &UDPClient{RemoteAddr: c.Endpoint.Addr}, nil
	case "unix_server":
		return &UnixServer{Path: c.Endpoint.Path}, nil
	case "unix_client":
		return &UnixClient{Path: c.Endpoint.Path}, nil
	case "file_writer":
		return &FileWriter{Path: c.Endpoint.Path}, nil
	case "file_reader":
		return &FileReader{Path: c.Endpoint.Path}, nil
	case "serial":
		return &Serial{Device: c.Endpoint.Device, Baud: c.Endpoint.Baud}, nil
	default:
		return nil, fmt.Errorf("endpoint.kind %q not recognized", c.Endpoint.Kind)
	}
}

func parseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "proxy":
		return StrategyProxy, nil
	case "strip":
		return StrategyStrip, nil
	case "sign", "enforce":
		return StrategySign, nil
	case "resign", "re_enforce":
		return StrategyReSign, nil
	case "reject":
		return StrategyReject, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", s)
	}
}

// ToNodeConf bridges a loaded FileConfig to the NodeConf builder (spec
// §4.11's "[NEW] Config loader ... can populate NodeConf").
func (c *FileConfig) ToNodeConf() (NodeConf, error) {
	builder, err := c.buildConnection()
	if err != nil {
		return NodeConf{}, err
	}

	var dialects message.Set
	switch c.Dialect {
	case "", "minimal":
		dialects = message.Set{minimal.Dialect}
	default:
		return NodeConf{}, fmt.Errorf("maviola: unknown dialect %q", c.Dialect)
	}

	var endpoint *Endpoint
	if c.Identity != nil {
		endpoint = NewEndpoint(c.Identity.SystemID, c.Identity.ComponentID)
	}

	var signer *SignerConfig
	if c.Signer != nil {
		in, err := parseStrategy(c.Signer.Incoming)
		if err != nil {
			return NodeConf{}, fmt.Errorf("signer.incoming: %w", err)
		}
		out, err := parseStrategy(c.Signer.Outgoing)
		if err != nil {
			return NodeConf{}, fmt.Errorf("signer.outgoing: %w", err)
		}
		signer = NewSignerConfig(NewSignatureKey([]byte(c.Signer.Key)), in, out)
		signer.LinkID = c.Signer.LinkID
	}

	var compat *CompatConfig
	if c.Compat != nil {
		in, err := parseStrategy(c.Compat.Incoming)
		if err != nil {
			return NodeConf{}, fmt.Errorf("compat.incoming: %w", err)
		}
		out, err := parseStrategy(c.Compat.Outgoing)
		if err != nil {
			return NodeConf{}, fmt.Errorf("compat.outgoing: %w", err)
		}
		compat = &CompatConfig{
			RequiredIncompat: c.Compat.RequiredIncompat,
			RequiredCompat:   c.Compat.RequiredCompat,
			Incoming:         in,
			Outgoing:         out,
		}
	}

	return NodeConf{
		Version:           VersionV2,
		Endpoint:          endpoint,
		Builder:           builder,
		HeartbeatInterval: time.Duration(c.Heartbeat.IntervalMS) * time.Millisecond,
		HeartbeatTimeout:  time.Duration(c.Heartbeat.TimeoutMS) * time.Millisecond,
		Dialects:          dialects,
		StrictDialect:     c.StrictDialect,
		Signer:            signer,
		Compat:            compat,
	}, nil
}
