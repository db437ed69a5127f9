package sevdesk

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts remote calls against the sevdesk API.
type Metrics struct {
	RemoteCalls *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	remoteCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sevsync_remote_calls_total",
		Help: "sevdesk API calls by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})
	prometheus.MustRegister(remoteCalls)

	return &Metrics{RemoteCalls: remoteCalls}
}
