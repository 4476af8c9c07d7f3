// Package metrics collects authentication metrics and exposes them to
// Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the services and guards report to.
type Recorder interface {
	// PasswordLogin records a password login attempt. namespace is "user"
	// or "admin"; outcome is "success", "invalid_credentials" or "error".
	PasswordLogin(namespace, outcome string)
	Registration(namespace, outcome string)
	TokenIssued(role string)
	GuardRejected(guard, reason string)
	// OAuthResolved records the identity resolver outcome: "matched",
	// "linked", "created" or "failed".
	OAuthResolved(provider, outcome string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	passwordLogins  *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	tokensIssued    *prometheus.CounterVec
	guardRejections *prometheus.CounterVec
	oauthResolved   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		passwordLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "externship_auth_password_logins_total",
			Help: "Password login attempts by namespace and outcome.",
		}, []string{"namespace", "outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "externship_auth_registrations_total",
			Help: "Password registrations by namespace and outcome.",
		}, []string{"namespace", "outcome"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "externship_auth_tokens_issued_total",
			Help: "Access tokens issued by role.",
		}, []string{"role"}),
		guardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "externship_auth_guard_rejections_total",
			Help: "Requests rejected by a route guard, by guard and reason.",
		}, []string{"guard", "reason"}),
		oauthResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "externship_auth_oauth_resolutions_total",
			Help: "OAuth identity resolutions by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}

	reg.MustRegister(
		c.passwordLogins,
		c.registrations,
		c.tokensIssued,
		c.guardRejections,
		c.oauthResolved,
	)

	return c
}

func (c *Collector) PasswordLogin(namespace, outcome string) {
	c.passwordLogins.WithLabelValues(namespace, outcome).Inc()
}

func (c *Collector) Registration(namespace, outcome string) {
	c.registrations.WithLabelValues(namespace, outcome).Inc()
}

func (c *Collector) TokenIssued(role string) {
	c.tokensIssued.WithLabelValues(role).Inc()
}

func (c *Collector) GuardRejected(guard, reason string) {
	c.guardRejections.WithLabelValues(guard, reason).Inc()
}

func (c *Collector) OAuthResolved(provider, outcome string) {
	c.oauthResolved.WithLabelValues(provider, outcome).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used in tests and when metrics are disabled.
type Nop struct{}

func (Nop) PasswordLogin(string, string) {}
func (Nop) Registration(string, string)  {}
func (Nop) TokenIssued(string)           {}
func (Nop) GuardRejected(string, string) {}
func (Nop) OAuthResolved(string, string) {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
