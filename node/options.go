package node

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/session"
	"github.com/sirupsen/logrus"
)

// PeerConfig describes a peer the node connects to on Start and keeps
// reconnecting to when handshakes time out. Peers listed here are also
// accepted as inbound initiators with the same PSK.
type PeerConfig struct {
	Address  string `toml:"address"`
	Identity string `toml:"identity"`
	PSK      string `toml:"psk"`
}

// Options configures a Node.
type Options struct {
	ListenAddr string `toml:"listen_addr"`

	// Jedi enables the Kyber512 hybrid exchange.
	Jedi bool `toml:"jedi"`

	// AcceptUnknownPeers lets peers that are not in Peers open sessions,
	// using DefaultPSK.
	AcceptUnknownPeers bool   `toml:"accept_unknown_peers"`
	DefaultPSK         string `toml:"default_psk"`

	HandshakeTimeout  time.Duration `toml:"handshake_timeout"`
	IterationInterval time.Duration `toml:"iteration_interval"`
	KeepaliveInterval time.Duration `toml:"keepalive_interval"`
	IdleTimeout       time.Duration `toml:"idle_timeout"`

	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`
	LogFormat   string `toml:"log_format"`

	Peers []PeerConfig `toml:"peer"`

	// TimeProvider overrides the wall clock, for tests.
	TimeProvider crypto.TimeProvider `toml:"-"`
}

// NewOptions returns Options with the defaults used by zssp-node.
func NewOptions() *Options {
	return &Options{
		ListenAddr:        ":9993",
		Jedi:              true,
		HandshakeTimeout:  10 * time.Second,
		IterationInterval: 250 * time.Millisecond,
		KeepaliveInterval: 25 * time.Second,
		IdleTimeout:       5 * time.Minute,
		LogLevel:          "info",
		LogFormat:         "text",
		TimeProvider:      crypto.DefaultTimeProvider{},
	}
}

// Validate checks the options and fills in a missing TimeProvider.
func (o *Options) Validate() error {
	if o.ListenAddr == "" {
		return errors.New("config: listen_addr is not set")
	}
	if o.HandshakeTimeout <= 0 {
		return fmt.Errorf("config: handshake_timeout must be positive, got %v", o.HandshakeTimeout)
	}
	if o.IterationInterval <= 0 {
		return fmt.Errorf("config: iteration_interval must be positive, got %v", o.IterationInterval)
	}
	if o.KeepaliveInterval < 0 || o.IdleTimeout < 0 {
		return errors.New("config: keepalive_interval and idle_timeout must not be negative")
	}
	if _, err := ParsePSK(o.DefaultPSK); err != nil {
		return fmt.Errorf("config: default_psk: %w", err)
	}
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	if o.LogFormat != "text" && o.LogFormat != "json" {
		return fmt.Errorf("config: log_format must be text or json, got %q", o.LogFormat)
	}
	for i, p := range o.Peers {
		if p.Address == "" {
			return fmt.Errorf("config: peer %d: address is not set", i)
		}
		if _, err := ParseIdentity(p.Identity); err != nil {
			return fmt.Errorf("config: peer %d: %w", i, err)
		}
		if _, err := ParsePSK(p.PSK); err != nil {
			return fmt.Errorf("config: peer %d: psk: %w", i, err)
		}
	}
	if o.TimeProvider == nil {
		o.TimeProvider = crypto.DefaultTimeProvider{}
	}
	return nil
}

// LoadConfig reads a TOML file on top of NewOptions defaults and validates
// the result. Unknown keys are an error.
func LoadConfig(path string) (*Options, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig parses a TOML config body.
func ParseConfig(b []byte) (*Options, error) {
	opts := NewOptions()
	md, err := toml.Decode(string(b), opts)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		return nil, fmt.Errorf("config: undecoded keys in config file: %v", undecoded)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// ConfigureLogging applies LogLevel and LogFormat to the standard logrus
// logger.
func (o *Options) ConfigureLogging() error {
	level, err := logrus.ParseLevel(o.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if o.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// ParsePSK decodes a hex PSK. The empty string is the all-zero PSK.
func ParsePSK(s string) ([session.PSKSize]byte, error) {
	var psk [session.PSKSize]byte
	if s == "" {
		return psk, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return psk, err
	}
	if len(b) != session.PSKSize {
		return psk, fmt.Errorf("psk must be %d bytes, got %d", session.PSKSize, len(b))
	}
	copy(psk[:], b)
	return psk, nil
}

// ParseIdentity decodes a hex identity blob and checks that it carries a
// usable P-384 key.
func ParseIdentity(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}
	if _, ok := extractP384(b); !ok {
		return nil, fmt.Errorf("identity: %w", crypto.ErrInvalidPublicKey)
	}
	return b, nil
}

// extractP384 interprets an identity blob. Identities are the raw
// uncompressed P-384 static public key.
func extractP384(identity []byte) ([]byte, bool) {
	if crypto.ValidatePublicKey(identity) != nil {
		return nil, false
	}
	return identity, true
}
