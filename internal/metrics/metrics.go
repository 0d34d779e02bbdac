package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for the identity and booking flows.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	signUps        *prometheus.CounterVec
	logins         *prometheus.CounterVec
	bookings       *prometheus.CounterVec
	bookingLatency *prometheus.HistogramVec
	photos         *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		signUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "identity",
			Name:      "signups_total",
			Help:      "Sign-up attempts by outcome",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "identity",
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "slots",
			Name:      "attempts_total",
			Help:      "Slot booking attempts by doctor and outcome",
		}, []string{"doctor", "outcome"}),
		bookingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "slots",
			Name:      "latency_seconds",
			Help:      "Latency of slot booking decisions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		photos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "identity",
			Name:      "photo_uploads_total",
			Help:      "Identity photo uploads by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.signUps, m.logins, m.bookings, m.bookingLatency, m.photos)
	return m
}

func (m *Metrics) ObserveSignUp(outcome string) {
	if m == nil {
		return
	}
	m.signUps.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBooking(doctor, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(doctor, outcome).Inc()
	m.bookingLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *Metrics) ObservePhoto(outcome string) {
	if m == nil {
		return
	}
	m.photos.WithLabelValues(outcome).Inc()
}
