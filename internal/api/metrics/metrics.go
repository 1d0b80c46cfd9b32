// Package metrics defines and registers all custom Prometheus metrics for the
// messaging core. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

// ── Conversation metrics ──────────────────────────────────────────────────────

// ConversationsCreatedTotal counts newly created conversations.
// Labels:
//   - kind: "direct" or "group"
//   - approval_status: initial status decided by the approval gate
var ConversationsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conversations_created_total",
		Help:      "Total number of conversations created, by kind and initial approval status.",
	},
	[]string{"kind", "approval_status"},
)

// DirectConversationsReusedTotal counts startDirect calls answered with an
// existing conversation, including the ones resolved after a uniqueness race.
var DirectConversationsReusedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "direct_conversations_reused_total",
		Help:      "Total number of direct chat requests resolved to an existing conversation.",
	},
)

// ApprovalsTotal counts approval calls.
// Label:
//   - result: "approved" (state changed) or "noop" (already approved)
var ApprovalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approvals_total",
		Help:      "Total number of approval calls, by result.",
	},
	[]string{"result"},
)

// MembershipChangesTotal counts successful membership mutations.
// Label:
//   - action: "added", "removed", "promoted", "rejected_last_admin"
var MembershipChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "membership_changes_total",
		Help:      "Total number of group membership changes, by action.",
	},
	[]string{"action"},
)

// ── Message metrics ───────────────────────────────────────────────────────────

// MessagesAppendedTotal counts messages appended to a log.
// Label:
//   - kind: conversation kind
var MessagesAppendedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_appended_total",
		Help:      "Total number of messages appended.",
	},
	[]string{"kind"},
)

// MessageAppendRejectedTotal counts appends refused by a domain rule.
// Label:
//   - reason: "not_approved", "forbidden", "invalid"
var MessageAppendRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "message_append_rejected_total",
		Help:      "Total number of message appends rejected, by reason.",
	},
	[]string{"reason"},
)

// MessageAppendDuration measures reserve + insert + enqueue of one message.
var MessageAppendDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "message_append_duration_seconds",
		Help:      "Duration of a message append from validation to enqueue.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsCreatedTotal counts notifications written.
// Label:
//   - kind: "info", "success", "warning", "task"
var NotificationsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Total number of notifications created, by kind.",
	},
	[]string{"kind"},
)

// ── Realtime metrics ──────────────────────────────────────────────────────────

// RealtimeQueueDepth tracks the number of events waiting in each dispatcher worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var RealtimeQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// RealtimePublishedTotal counts events handed to the bus.
// Labels:
//   - type: event type (e.g. "message.created")
//   - result: "ok" or "error"
var RealtimePublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_published_total",
		Help:      "Total number of events published on the realtime bus.",
	},
	[]string{"type", "result"},
)

// RealtimeSubscribers tracks live bus subscriptions in this process.
var RealtimeSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_subscribers",
		Help:      "Current number of live realtime subscriptions.",
	},
)

// RealtimeEvictionsTotal counts subscribers dropped because they fell behind.
var RealtimeEvictionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_evictions_total",
		Help:      "Total number of slow subscribers evicted from the bus.",
	},
)

// WebsocketConnections tracks open websocket connections.
var WebsocketConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "websocket_connections",
		Help:      "Current number of open websocket connections.",
	},
)
