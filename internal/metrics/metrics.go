// Prometheus collectors for bootstrap, feed and command activity
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fleet"

// Metrics groups every collector the client exports. A nil *Metrics is
// valid and records nothing, so components can run without a registry.
type Metrics struct {
	// BootstrapReads counts bootstrap reads. Labels: resource, outcome.
	BootstrapReads *prometheus.CounterVec
	// FeedMessages counts inbound feed messages. Labels: type.
	FeedMessages *prometheus.CounterVec
	// FeedParseErrors counts inbound frames that were not valid JSON.
	FeedParseErrors prometheus.Counter
	// FeedReconnects counts scheduled reconnects.
	FeedReconnects prometheus.Counter
	// FeedState is 1 for the connection manager's current state. Labels: state.
	FeedState *prometheus.GaugeVec
	// Commands counts operator commands. Labels: kind, channel, outcome.
	Commands *prometheus.CounterVec
	// Notifications counts notifications added to the ring. Labels: type.
	Notifications *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BootstrapReads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bootstrap",
			Name:      "reads_total",
			Help:      "Bootstrap reads by resource and outcome",
		}, []string{"resource", "outcome"}),
		FeedMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "messages_total",
			Help:      "Inbound feed messages by type",
		}, []string{"type"}),
		FeedParseErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "parse_errors_total",
			Help:      "Inbound feed frames that failed to decode",
		}),
		FeedReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Reconnects scheduled after a close",
		}),
		FeedState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "state",
			Help:      "Current connection manager state (1 = active)",
		}, []string{"state"}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "total",
			Help:      "Operator commands by kind, channel and outcome",
		}, []string{"kind", "channel", "outcome"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications added by type",
		}, []string{"type"}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// BootstrapRead records one bootstrap read.
func (m *Metrics) BootstrapRead(resource string, err error) {
	if m == nil {
		return
	}
	m.BootstrapReads.WithLabelValues(resource, outcome(err)).Inc()
}

// FeedMessage records one decoded inbound message.
func (m *Metrics) FeedMessage(kind string) {
	if m == nil {
		return
	}
	m.FeedMessages.WithLabelValues(kind).Inc()
}

// FeedParseError records an undecodable frame.
func (m *Metrics) FeedParseError() {
	if m == nil {
		return
	}
	m.FeedParseErrors.Inc()
}

// FeedReconnect records a scheduled reconnect.
func (m *Metrics) FeedReconnect() {
	if m == nil {
		return
	}
	m.FeedReconnects.Inc()
}

// SetFeedState marks state as the current one among all.
func (m *Metrics) SetFeedState(state string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.FeedState.WithLabelValues(s).Set(v)
	}
}

// Command records one command attempt on a channel ("push" or "durable").
func (m *Metrics) Command(kind, channel string, err error) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(kind, channel, outcome(err)).Inc()
}

// Notification records one notification.
func (m *Metrics) Notification(kind string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind).Inc()
}
