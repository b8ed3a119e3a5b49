// Package metrics defines the domain Prometheus metrics of the booking back
// office. HTTP request metrics come from the echoprometheus middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tourdesk"

// ReservationsCreatedTotal counts committed reservations.
var ReservationsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_created_total",
		Help:      "Total number of reservations created.",
	},
)

// ReservationsRejectedTotal counts booking attempts that were refused.
// Label:
//   - reason: "capacity", "not_found", "validation" or "error"
var ReservationsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_rejected_total",
		Help:      "Total number of reservation attempts rejected, by reason.",
	},
	[]string{"reason"},
)

// ReservationsCancelledTotal counts cancellation requests.
// Label:
//   - outcome: "cancelled" or "already_cancelled"
var ReservationsCancelledTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_cancelled_total",
		Help:      "Total number of cancellation requests, by outcome.",
	},
	[]string{"outcome"},
)

// AuditEntriesTotal counts committed audit entries.
// Label:
//   - action: the audit action kind (e.g. "package_create")
var AuditEntriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_entries_total",
		Help:      "Total number of audit entries committed, by action.",
	},
	[]string{"action"},
)

// AuditExportsTotal counts audit archive uploads.
// Label:
//   - result: "ok" or "error"
var AuditExportsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_exports_total",
		Help:      "Total number of audit archive exports, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok" or "denied"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)
