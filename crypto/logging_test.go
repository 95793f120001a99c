package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevLevel := logrus.StandardLogger().Out, logrus.GetLevel()
	logrus.SetOutput(&buf)
	logrus.SetLevel(logrus.DebugLevel)
	t.Cleanup(func() {
		logrus.SetOutput(prevOut)
		logrus.SetLevel(prevLevel)
	})
	return &buf
}

func TestLoggerHelperFields(t *testing.T) {
	buf := captureLogs(t)

	NewLogger("Handshake").
		WithField("peer", "abc").
		WithFields(logrus.Fields{"round": 2}).
		WithError(errors.New("boom"), "decrypt").
		Warn("handshake failed")

	out := buf.String()
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "function=Handshake")
	assert.Contains(t, out, "package=crypto")
	assert.Contains(t, out, "peer=abc")
	assert.Contains(t, out, "round=2")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "operation=decrypt")
}

func TestLoggerHelperLevels(t *testing.T) {
	buf := captureLogs(t)

	NewLogger("Levels").Info("info line")
	NewLogger("Levels").Error("error line")

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, "info line")
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, "error line")
}

func TestLoggerHelperWrites(t *testing.T) {
	buf := captureLogs(t)

	NewPackageLogger("session", "Receive").WithField("kind", "data").Debug("packet accepted")

	out := buf.String()
	assert.Contains(t, out, "packet accepted")
	assert.Contains(t, out, "package=session")
	assert.Contains(t, out, "kind=data")
}

func TestSecureFieldHash(t *testing.T) {
	f := SecureFieldHash([]byte{0xde, 0xad, 0xbe, 0xef, 1, 2, 3, 4, 5}, "key")
	assert.Equal(t, "deadbeef01020304...", f["key_preview"])
	assert.Equal(t, 9, f["key_size"])

	f = SecureFieldHash(nil, "key")
	assert.Equal(t, "nil", f["key_preview"])
	assert.Equal(t, 0, f["key_size"])
}
