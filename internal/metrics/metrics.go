package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Domain
	CampaignsProposed         prometheus.Counter
	CampaignDecisions         *prometheus.CounterVec
	Joins                     prometheus.Counter
	Pledges                   prometheus.Counter
	DonationsConfirmed        prometheus.Counter
	ConfirmedAmount           prometheus.Counter
	AcknowledgementsPublished prometheus.Counter
	EmailsSent                *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sahaaya_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sahaaya_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sahaaya_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
			[]string{"method", "endpoint"},
		),

		CampaignsProposed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sahaaya_campaigns_proposed_total",
			Help: "Total number of campaigns proposed",
		}),
		CampaignDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sahaaya_campaign_decisions_total",
				Help: "Admin decisions on campaigns",
			},
			[]string{"status"},
		),
		Joins: factory.NewCounter(prometheus.CounterOpts{
			Name: "sahaaya_campaign_joins_total",
			Help: "Total number of participants enrolled",
		}),
		Pledges: factory.NewCounter(prometheus.CounterOpts{
			Name: "sahaaya_donation_pledges_total",
			Help: "Total number of donation pledges recorded",
		}),
		DonationsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sahaaya_donations_confirmed_total",
			Help: "Total number of donations confirmed as received",
		}),
		ConfirmedAmount: factory.NewCounter(prometheus.CounterOpts{
			Name: "sahaaya_donations_confirmed_amount_total",
			Help: "Sum of confirmed donation amounts",
		}),
		AcknowledgementsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "sahaaya_acknowledgements_published_total",
			Help: "Total number of acknowledgements published",
		}),
		EmailsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sahaaya_emails_sent_total",
				Help: "Acknowledgement emails by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// NewDefault registers with the global Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

func (m *Metrics) IncRequestsInFlight(method, endpoint string) {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.WithLabelValues(method, endpoint).Inc()
}

func (m *Metrics) DecRequestsInFlight(method, endpoint string) {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.WithLabelValues(method, endpoint).Dec()
}

func (m *Metrics) RecordProposal() {
	if m == nil {
		return
	}
	m.CampaignsProposed.Inc()
}

func (m *Metrics) RecordDecision(status string) {
	if m == nil {
		return
	}
	m.CampaignDecisions.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordJoin() {
	if m == nil {
		return
	}
	m.Joins.Inc()
}

func (m *Metrics) RecordPledge() {
	if m == nil {
		return
	}
	m.Pledges.Inc()
}

// RecordConfirmation counts a confirmed donation and adds its amount.
func (m *Metrics) RecordConfirmation(amount float64) {
	if m == nil {
		return
	}
	m.DonationsConfirmed.Inc()
	if amount > 0 {
		m.ConfirmedAmount.Add(amount)
	}
}

func (m *Metrics) RecordPublish() {
	if m == nil {
		return
	}
	m.AcknowledgementsPublished.Inc()
}

func (m *Metrics) RecordEmail(outcome string) {
	if m == nil {
		return
	}
	m.EmailsSent.WithLabelValues(outcome).Inc()
}
