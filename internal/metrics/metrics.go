package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailflow_emails_total",
			Help: "Delivery attempts by outcome",
		},
		[]string{"stage"}, // sent|failed
	)

	CampaignsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailflow_campaigns_active",
			Help: "Number of campaigns with a running dispatch loop",
		},
	)

	CampaignsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailflow_campaigns_completed_total",
			Help: "Campaigns whose pending set drained to zero",
		},
	)

	TrackingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailflow_tracking_events_total",
			Help: "Tracking endpoint hits by event type",
		},
		[]string{"type"}, // open|click|unsubscribe
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EmailsTotal,
		CampaignsActive,
		CampaignsCompleted,
		TrackingEvents,
	)
}
