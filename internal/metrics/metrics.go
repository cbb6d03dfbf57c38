package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several servers can coexist in one process
// (tests build one per case).
type Metrics struct {
	registry      *prometheus.Registry
	logins        *prometheus.CounterVec
	registrations *prometheus.CounterVec
	predictions   *prometheus.CounterVec
	probability   prometheus.Histogram
	requests      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noshow_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noshow_registrations_total",
			Help: "Registration attempts by result.",
		}, []string{"result"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noshow_predictions_total",
			Help: "Prediction requests by outcome.",
		}, []string{"outcome"}),
		probability: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "noshow_prediction_probability",
			Help:    "Distribution of predicted no-show probabilities.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "noshow_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"route", "code"}),
	}
	m.registry.MustRegister(
		m.logins, m.registrations, m.predictions, m.probability, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// The recorders below accept a nil receiver so callers never need to check.

func (m *Metrics) Login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Registration(result string) {
	if m != nil {
		m.registrations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Prediction(outcome string, probability float64) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.probability.Observe(probability)
	}
}

func (m *Metrics) Request(route, code string) {
	if m != nil {
		m.requests.WithLabelValues(route, code).Inc()
	}
}

func (m *Metrics) PredictionsCounter(outcome string) prometheus.Counter {
	return m.predictions.WithLabelValues(outcome)
}

func (m *Metrics) LoginsCounter(result string) prometheus.Counter {
	return m.logins.WithLabelValues(result)
}
