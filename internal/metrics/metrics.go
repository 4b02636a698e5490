// Package metrics exposes Prometheus counters for OTP outcomes and HTTP traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the service registers.
type Metrics struct {
	OTPSends        *prometheus.CounterVec
	OTPVerifies     *prometheus.CounterVec
	Registrations   *prometheus.CounterVec
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry, so tests never collide
// with each other or with the global default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		OTPSends: f.NewCounterVec(prometheus.CounterOpts{
			Name: "otp_send_total",
			Help: "OTP send attempts by outcome",
		}, []string{"outcome"}),
		OTPVerifies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "otp_verify_total",
			Help: "OTP verification attempts by outcome",
		}, []string{"outcome"}),
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "seller_registrations_total",
			Help: "Seller registration submissions by outcome",
		}, []string{"outcome"}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		}, []string{"method", "endpoint"}),
		gatherer: reg,
	}
}

// SendOutcome counts one SendOTP result.
func (m *Metrics) SendOutcome(outcome string) { m.OTPSends.WithLabelValues(outcome).Inc() }

// VerifyOutcome counts one VerifyOTP result.
func (m *Metrics) VerifyOutcome(outcome string) { m.OTPVerifies.WithLabelValues(outcome).Inc() }

func (m *Metrics) RegistrationOutcome(outcome string) {
	m.Registrations.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
