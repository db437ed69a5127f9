package server

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts inbound order events by sync outcome.
type Metrics struct {
	Orders *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sevsync_order_events_total",
		Help: "Inbound order events by sync outcome.",
	}, []string{"outcome"})
	prometheus.MustRegister(orders)

	return &Metrics{Orders: orders}
}
