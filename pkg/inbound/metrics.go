package inbound

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snowbridge_inbound_messages_received_total",
			Help: "Total number of inbound messages forwarded to the destination",
		})
	messagesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snowbridge_inbound_messages_rejected_total",
			Help: "Total number of inbound messages rejected, by reason",
		}, []string{"reason"})
)
