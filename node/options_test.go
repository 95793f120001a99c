package node

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/zssp/crypto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentityHex(t *testing.T) string {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return hex.EncodeToString(kp.Public)
}

func TestNewOptionsDefaults(t *testing.T) {
	opts := NewOptions()
	require.NoError(t, opts.Validate())
	assert.Equal(t, ":9993", opts.ListenAddr)
	assert.True(t, opts.Jedi)
	assert.False(t, opts.AcceptUnknownPeers)
	assert.Equal(t, 10*time.Second, opts.HandshakeTimeout)
	assert.Equal(t, 250*time.Millisecond, opts.IterationInterval)
	assert.NotNil(t, opts.TimeProvider)
}

func TestParseConfig(t *testing.T) {
	identity := testIdentityHex(t)
	body := `
listen_addr = "127.0.0.1:7000"
jedi = false
accept_unknown_peers = true
handshake_timeout = "3s"
keepalive_interval = "10s"
log_level = "debug"
log_format = "json"
metrics_addr = "127.0.0.1:9100"

[[peer]]
address = "10.0.0.2:9993"
identity = "` + identity + `"
psk = "` + strings.Repeat("ab", 64) + `"

[[peer]]
address = "10.0.0.3:9993"
identity = "` + identity + `"
`
	opts, err := ParseConfig([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", opts.ListenAddr)
	assert.False(t, opts.Jedi)
	assert.True(t, opts.AcceptUnknownPeers)
	assert.Equal(t, 3*time.Second, opts.HandshakeTimeout)
	assert.Equal(t, 10*time.Second, opts.KeepaliveInterval)
	assert.Equal(t, 5*time.Minute, opts.IdleTimeout, "unset keys keep defaults")
	assert.Equal(t, "127.0.0.1:9100", opts.MetricsAddr)
	require.Len(t, opts.Peers, 2)
	assert.Equal(t, "10.0.0.2:9993", opts.Peers[0].Address)
	assert.Empty(t, opts.Peers[1].PSK)
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig([]byte("listen_adr = \":1\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undecoded")
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zssp.toml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr = \"127.0.0.1:0\"\n"), 0o600))

	opts, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:0", opts.ListenAddr)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	identity := testIdentityHex(t)
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"empty listen addr", func(o *Options) { o.ListenAddr = "" }},
		{"zero handshake timeout", func(o *Options) { o.HandshakeTimeout = 0 }},
		{"zero iteration interval", func(o *Options) { o.IterationInterval = 0 }},
		{"negative keepalive", func(o *Options) { o.KeepaliveInterval = -time.Second }},
		{"short default psk", func(o *Options) { o.DefaultPSK = "abcd" }},
		{"bad log level", func(o *Options) { o.LogLevel = "loud" }},
		{"bad log format", func(o *Options) { o.LogFormat = "xml" }},
		{"peer without address", func(o *Options) {
			o.Peers = []PeerConfig{{Identity: identity}}
		}},
		{"peer with bad identity", func(o *Options) {
			o.Peers = []PeerConfig{{Address: "127.0.0.1:1", Identity: "0102"}}
		}},
		{"peer with bad psk", func(o *Options) {
			o.Peers = []PeerConfig{{Address: "127.0.0.1:1", Identity: identity, PSK: "zz"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			tt.modify(opts)
			assert.Error(t, opts.Validate())
		})
	}

	opts := NewOptions()
	opts.TimeProvider = nil
	require.NoError(t, opts.Validate())
	assert.NotNil(t, opts.TimeProvider)
}

func TestParsePSK(t *testing.T) {
	psk, err := ParsePSK("")
	require.NoError(t, err)
	assert.Equal(t, [64]byte{}, psk)

	psk, err = ParsePSK(strings.Repeat("01", 64))
	require.NoError(t, err)
	assert.Equal(t, byte(1), psk[63])

	_, err = ParsePSK(strings.Repeat("01", 32))
	assert.Error(t, err)
	_, err = ParsePSK("not hex")
	assert.Error(t, err)
}

func TestParseIdentity(t *testing.T) {
	identity := testIdentityHex(t)
	b, err := ParseIdentity(identity)
	require.NoError(t, err)
	assert.Len(t, b, crypto.P384PublicKeySize)

	_, err = ParseIdentity("xyz")
	assert.Error(t, err)
	_, err = ParseIdentity(strings.Repeat("04", crypto.P384PublicKeySize))
	assert.ErrorIs(t, err, crypto.ErrInvalidPublicKey)
}

func TestConfigureLogging(t *testing.T) {
	level, formatter := logrus.GetLevel(), logrus.StandardLogger().Formatter
	defer func() {
		logrus.SetLevel(level)
		logrus.SetFormatter(formatter)
	}()

	opts := NewOptions()
	opts.LogLevel = "warn"
	opts.LogFormat = "json"
	require.NoError(t, opts.ConfigureLogging())
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	opts.LogLevel = "nope"
	assert.Error(t, opts.ConfigureLogging())
}
