// Package metrics exposes the relay's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	// Gauges
	roomsActive      prometheus.Gauge
	membersConnected prometheus.Gauge
	brokerPeers      prometheus.Gauge

	// Counters
	messagesTotal  *prometheus.CounterVec
	chatRejected   prometheus.Counter
	signalsRouted  *prometheus.CounterVec
	signalsExpired prometheus.Counter

	// Histograms
	memberDuration prometheus.Histogram
}

// New registers the relay collectors on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "huddle_rooms_active",
			Help: "Number of rooms with at least one member",
		}),

		membersConnected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "huddle_members_connected",
			Help: "Number of members joined to a room",
		}),

		brokerPeers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "huddle_broker_peers",
			Help: "Number of peers connected to the broker",
		}),

		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_relay_messages_total",
			Help: "Relay messages handled, by type",
		}, []string{"type"}),

		chatRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "huddle_chat_rejected_total",
			Help: "Chat messages rejected by the per-member rate limit",
		}),

		signalsRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_broker_signals_total",
			Help: "Offers, answers and candidates forwarded by the broker",
		}, []string{"type"}),

		signalsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "huddle_broker_signals_expired_total",
			Help: "Signals addressed to a peer that is not connected",
		}),

		memberDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "huddle_member_duration_seconds",
			Help:    "Time members spend in a room",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

func (c *Collector) RecordRoomOpened() { c.roomsActive.Inc() }

func (c *Collector) RecordRoomClosed() { c.roomsActive.Dec() }

func (c *Collector) RecordMemberJoined() { c.membersConnected.Inc() }

// RecordMemberLeft records a member leaving after being joined since since.
func (c *Collector) RecordMemberLeft(since time.Time) {
	c.membersConnected.Dec()
	c.memberDuration.Observe(time.Since(since).Seconds())
}

func (c *Collector) RecordMessage(msgType string) {
	c.messagesTotal.WithLabelValues(msgType).Inc()
}

func (c *Collector) RecordChatRejected() { c.chatRejected.Inc() }

func (c *Collector) RecordPeerConnected() { c.brokerPeers.Inc() }

func (c *Collector) RecordPeerDisconnected() { c.brokerPeers.Dec() }

func (c *Collector) RecordSignal(msgType string) {
	c.signalsRouted.WithLabelValues(msgType).Inc()
}

func (c *Collector) RecordSignalExpired() { c.signalsExpired.Inc() }

// Handler serves the registry in the prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and embedding.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}
