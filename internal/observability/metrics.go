package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the auth-flow counters exported on /metrics.
type Metrics struct {
	requests      *prometheus.CounterVec
	logins        *prometheus.CounterVec
	twoFactor     *prometheus.CounterVec
	guardDenials  *prometheus.CounterVec
	pageRedirects *prometheus.CounterVec
}

// NewMetrics registers counters on the given registerer. Pass a fresh
// prometheus.NewRegistry in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by path, method and status",
			},
			[]string{"path", "method", "status"},
		),
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		twoFactor: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_two_factor_submissions_total",
				Help: "Two-factor code submissions by outcome",
			},
			[]string{"outcome"},
		),
		guardDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_guard_denials_total",
				Help: "API guard denials by reason",
			},
			[]string{"reason"},
		),
		pageRedirects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_page_redirects_total",
				Help: "Page gate redirects by target",
			},
			[]string{"target"},
		),
	}
	reg.MustRegister(m.requests, m.logins, m.twoFactor, m.guardDenials, m.pageRedirects)
	return m
}

// RecordRequest counts a completed HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

// RecordLogin counts a login attempt outcome (ok, invalid_credentials,
// rate_limited, upstream_error).
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// RecordTwoFactor counts a code submission outcome.
func (m *Metrics) RecordTwoFactor(outcome string) {
	if m == nil {
		return
	}
	m.twoFactor.WithLabelValues(outcome).Inc()
}

// RecordGuardDenial counts an API guard rejection.
func (m *Metrics) RecordGuardDenial(reason string) {
	if m == nil {
		return
	}
	m.guardDenials.WithLabelValues(reason).Inc()
}

// RecordPageRedirect counts a page-gate redirect.
func (m *Metrics) RecordPageRedirect(target string) {
	if m == nil {
		return
	}
	m.pageRedirects.WithLabelValues(target).Inc()
}
