// Package metrics defines all custom Prometheus metrics for the notes API. It
// is the single source of truth for metric names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation; HTTP request metrics are added separately by the
// echoprometheus middleware in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "notes"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts register and login attempts.
// Labels:
//   - action: "register" or "login"
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of register and login attempts, by outcome.",
	},
	[]string{"action", "result"},
)

// ── Note metrics ──────────────────────────────────────────────────────────────

// NotesCreatedTotal counts newly created notes.
// Label:
//   - in_collection: "true" when the note was created into a collection
var NotesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notes_created_total",
		Help:      "Total number of notes created.",
	},
	[]string{"in_collection"},
)

// NotesDeletedTotal counts notes removed one at a time or by a user cascade.
// Label:
//   - reason: "request" or "user_deleted"
var NotesDeletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notes_deleted_total",
		Help:      "Total number of notes deleted.",
	},
	[]string{"reason"},
)

// ── Relation metrics ──────────────────────────────────────────────────────────

// NoteMovesTotal counts note reassignments between collections.
// Label:
//   - kind: "attach", "move" or "detach"
var NoteMovesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "note_moves_total",
		Help:      "Total number of note reassignments, by kind.",
	},
	[]string{"kind"},
)

// RelationRepairsTotal counts collection member lists that had to be fixed
// after the fact.
// Label:
//   - stage: "create_append_failed", "retried", "stale", "retry_failed", "dropped" or "reconciled"
var RelationRepairsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relation_repairs_total",
		Help:      "Total number of collection member lists repaired or left for repair.",
	},
	[]string{"stage"},
)

// ── User metrics ──────────────────────────────────────────────────────────────

// UsersDeletedTotal counts deleted accounts.
var UsersDeletedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_deleted_total",
		Help:      "Total number of user accounts deleted.",
	},
)

// ── Rate limit metrics ────────────────────────────────────────────────────────

// RateLimitRejectedTotal counts requests rejected by the rate limiter.
// Label:
//   - scope: "anonymous" or "authenticated"
var RateLimitRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejected_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
	[]string{"scope"},
)
