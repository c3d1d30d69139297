package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	NewsChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Name:      "news_checks_total",
		Help:      "Scenario news checks by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	Orders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Name:      "orders_total",
		Help:      "Order submissions by outcome.",
	}, []string{"outcome"})

	TokenRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Name:      "token_requests_total",
		Help:      "Brokerage access token requests by outcome.",
	}, []string{"outcome"})

	Signatures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "advisor",
		Name:      "signatures_total",
		Help:      "Order signatures by mode (remote or degraded).",
	}, []string{"mode"})

	Scenarios = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "advisor",
		Name:      "scenarios",
		Help:      "Registered scenarios.",
	})
)

func init() {
	registry.MustRegister(NewsChecks, Orders, TokenRequests, Signatures, Scenarios)
	registry.MustRegister(collectors.NewGoCollector())
}

// Handler serves the advisor registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
