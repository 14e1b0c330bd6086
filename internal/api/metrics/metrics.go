// Package metrics defines all custom Prometheus metrics of the escrow API.
// It is the single source of truth for metric names, labels, and help
// strings. Metrics register with the default registry on package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "escrow"

// ── Transaction metrics ───────────────────────────────────────────────────────

// TransactionsCreatedTotal counts newly created transactions.
var TransactionsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_created_total",
		Help:      "Total number of transactions created.",
	},
)

// StatusChangesTotal counts applied status changes.
// Label:
//   - status: the new transaction status (e.g. "shipped")
var StatusChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_changes_total",
		Help:      "Total number of transaction status changes, by new status.",
	},
	[]string{"status"},
)

// StatusChangeErrorsTotal counts rejected status changes.
// Label:
//   - reason: error kind (e.g. "not_found", "validation_failed")
var StatusChangeErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_change_errors_total",
		Help:      "Total number of status changes that failed, by error kind.",
	},
	[]string{"reason"},
)

// ── Chat metrics ──────────────────────────────────────────────────────────────

// MessagesSentTotal counts user-authored chat messages.
// Label:
//   - type: "text" or "image"
var MessagesSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of chat messages sent by users, by type.",
	},
	[]string{"type"},
)

// ChatQueueDepth tracks the number of messages waiting in each dispatcher shard.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var ChatQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "chat_queue_depth",
		Help:      "Current number of messages pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ChatDroppedTotal counts messages not fanned out because a shard was full.
var ChatDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chat_dropped_total",
		Help:      "Total number of chat messages dropped by the live fan-out.",
	},
)

// ChatSubscribers tracks open websocket subscriptions.
var ChatSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "chat_subscribers",
		Help:      "Current number of live chat websocket subscribers.",
	},
)

// ChatDeliveryDuration measures how long one fan-out to all subscribers takes.
var ChatDeliveryDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "chat_delivery_duration_seconds",
		Help:      "Duration of delivering one message to every live subscriber.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
)

// ── Edge metrics ──────────────────────────────────────────────────────────────

// IdempotencyTotal counts idempotency decisions.
// Label:
//   - result: "hit" (replayed) or "miss" (new request)
var IdempotencyTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotency_total",
		Help:      "Total number of idempotency key checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// RateLimitedTotal counts auth requests refused by the rate limiter.
var RateLimitedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the auth rate limiter.",
	},
)
