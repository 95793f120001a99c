package node

import (
	"errors"
	"net/http"

	"github.com/opd-ai/zssp/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the node's Prometheus instruments on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	packetsIn         prometheus.Counter
	packetsOut        prometheus.Counter
	drops             *prometheus.CounterVec
	handshakes        prometheus.Counter
	handshakeTimeouts prometheus.Counter
	rekeys            prometheus.Counter
	sessions          prometheus.Gauge
}

// NewMetrics creates and registers the node instruments.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		packetsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zssp_packets_received_total",
			Help: "Number of datagrams handed to the session layer",
		}),
		packetsOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zssp_packets_sent_total",
			Help: "Number of datagrams sent",
		}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "zssp_packets_dropped_total",
			Help: "Number of received datagrams dropped, by reason",
		}, []string{"reason"}),
		handshakes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zssp_handshakes_completed_total",
			Help: "Number of sessions that completed their initial handshake",
		}),
		handshakeTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zssp_handshake_timeouts_total",
			Help: "Number of sessions dropped before their handshake completed",
		}),
		rekeys: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zssp_rekey_offers_total",
			Help: "Number of rekey offers sent",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "zssp_sessions",
			Help: "Number of sessions in the session table",
		}),
	}
	m.registry.MustRegister(m.packetsIn, m.packetsOut, m.drops, m.handshakes,
		m.handshakeTimeouts, m.rekeys, m.sessions)
	return m
}

// Registry exposes the registry, for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) drop(err error) {
	m.drops.WithLabelValues(dropReason(err)).Inc()
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, session.ErrUnknownLocalSessionID):
		return "unknown_session"
	case errors.Is(err, session.ErrInvalidPacket):
		return "invalid_packet"
	case errors.Is(err, session.ErrFailedAuthentication):
		return "failed_authentication"
	case errors.Is(err, session.ErrNewSessionRejected):
		return "rejected"
	case errors.Is(err, session.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, errReplayed):
		return "replayed"
	default:
		return "other"
	}
}
