package outbound

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportsValidatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snowbridge_outbound_exports_validated_total",
			Help: "Total number of programs translated into a delivery ticket",
		})
	exportsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snowbridge_outbound_exports_rejected_total",
			Help: "Total number of programs refused by the exporter, by send error kind",
		}, []string{"kind"})
	ticketsDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snowbridge_outbound_tickets_delivered_total",
			Help: "Total number of tickets redeemed with the queue",
		})
)
