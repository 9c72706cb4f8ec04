package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carbid"

var (
	BidsSubmitted = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "bids_submitted_total", Help: "Bids accepted for intake and enqueued"})
	BidsRejected  = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "bids_rejected_total", Help: "Bid submissions refused before enqueue"},
		[]string{"reason"},
	)

	ConsumerMessagesReceived = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "consumer_messages_received_total", Help: "Bid intake messages received"})
	ConsumerMessagesInvalid  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "consumer_messages_invalid_total", Help: "Bid intake messages that could not be parsed"})
	ConsumerPersistErrors    = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "consumer_persist_errors_total", Help: "Bid intake messages that failed to persist"})
	ConsumerBidsPersisted    = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "consumer_bids_persisted_total", Help: "Bids written by the consumer"})
	ConsumerDuplicates       = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "consumer_duplicates_total", Help: "Redelivered bid intake messages skipped by submission id"})
	ConsumerDeleteErrors     = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "consumer_delete_errors_total", Help: "Failed deletes of processed intake messages"})

	BidTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "bid_transitions_total", Help: "Bid status transitions"},
		[]string{"to"},
	)
	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "booking_transitions_total", Help: "Booking status transitions"},
		[]string{"to"},
	)
	Conversions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "bid_conversions_total", Help: "Bid to booking conversion attempts by outcome"},
		[]string{"outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_sent_total", Help: "Notification deliveries by channel and outcome"},
		[]string{"channel", "outcome"},
	)
	OutboxBacklog = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "outbox_pending_events", Help: "Outbox events waiting for delivery"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
