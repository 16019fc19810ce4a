// Package metrics defines all custom Prometheus metrics for the identity
// API. It is the single source of truth for metric names, labels, and help
// strings; promauto registers everything with the default registry at
// package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success", "failure" (duplicate identity or store rejection),
//     "error" (unrecoverable)
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// LoginsThrottledTotal counts logins rejected by the failure limiter before
// credentials were even checked.
var LoginsThrottledTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_throttled_total",
		Help:      "Total number of login attempts rejected by the rate limiter.",
	},
)

// RoleGrantsTotal counts role-grant attempts.
// Label:
//   - result: "success", "redundant", "invalid", "rejected", "error"
var RoleGrantsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_grants_total",
		Help:      "Total number of role grant attempts, by result.",
	},
	[]string{"result"},
)

// TokensIssuedTotal counts signed tokens handed to clients.
// Label:
//   - flow: "register" or "login"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of bearer tokens issued, by flow.",
	},
	[]string{"flow"},
)
