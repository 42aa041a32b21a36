package metrics

import "github.com/prometheus/client_golang/prometheus"

// MessagingMetrics exposes counters/histograms for inbound SMS processing.
type MessagingMetrics struct {
	inboundTotal        *prometheus.CounterVec
	conversationsOpened prometheus.Counter
	dedupeSkips         prometheus.Counter
	webhookLatency      *prometheus.HistogramVec
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "churchcomms",
			Subsystem: "messaging",
			Name:      "inbound_total",
			Help:      "Inbound SMS webhooks by resolution outcome",
		}, []string{"identity", "conversation", "tenant"}),
		conversationsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "churchcomms",
			Subsystem: "messaging",
			Name:      "conversations_opened_total",
			Help:      "Conversations created because no existing thread matched",
		}),
		dedupeSkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "churchcomms",
			Subsystem: "messaging",
			Name:      "dedupe_skips_total",
			Help:      "Webhooks acked without processing because the provider message id was already seen",
		}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "churchcomms",
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound SMS webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.conversationsOpened, m.dedupeSkips, m.webhookLatency)
	return m
}

// ObserveInbound records one processed webhook with the three cascade outcomes.
func (m *MessagingMetrics) ObserveInbound(identity, conversation, tenant string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(identity, conversation, tenant).Inc()
}

func (m *MessagingMetrics) ObserveConversationOpened() {
	if m == nil {
		return
	}
	m.conversationsOpened.Inc()
}

func (m *MessagingMetrics) ObserveDedupeSkip() {
	if m == nil {
		return
	}
	m.dedupeSkips.Inc()
}

func (m *MessagingMetrics) ObserveWebhookLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(outcome).Observe(seconds)
}
