package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MailCheck tracks the mail polling loop.
type MailCheck struct {
	Cycles          *prometheus.CounterVec
	MessagesCreated prometheus.Counter
	MessagesDropped prometheus.Counter
}

// NewMailCheck registers the mail check metrics on the default registry.
func NewMailCheck() *MailCheck {
	return &MailCheck{
		Cycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trudesk_mailcheck_cycles_total",
			Help: "Poll cycles by outcome (ok, error, skipped).",
		}, []string{"status"}),
		MessagesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trudesk_mailcheck_tickets_created_total",
			Help: "Tickets created from inbound mail.",
		}),
		MessagesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trudesk_mailcheck_messages_dropped_total",
			Help: "Inbound messages dropped during ingestion.",
		}),
	}
}
