package node

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/opd-ai/zssp/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{session.ErrUnknownLocalSessionID, "unknown_session"},
		{session.ErrInvalidPacket, "invalid_packet"},
		{fmt.Errorf("wrapped: %w", session.ErrFailedAuthentication), "failed_authentication"},
		{session.ErrNewSessionRejected, "rejected"},
		{session.ErrRateLimited, "rate_limited"},
		{errReplayed, "replayed"},
		{errors.New("boom"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, dropReason(tt.err), tt.err.Error())
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.drop(session.ErrInvalidPacket)
	m.drop(session.ErrInvalidPacket)
	m.sessions.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `zssp_packets_dropped_total{reason="invalid_packet"} 2`)
	assert.Contains(t, string(body), "zssp_sessions 3")
}
