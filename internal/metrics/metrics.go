// ABOUTME: Prometheus collectors for decisions, store health, and purge runs
// ABOUTME: Registered on the default registry, scraped via the API's /metrics

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Decisions counts arbitration outcomes by resulting mode.
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdguard_decisions_total",
		Help: "Arbitration decisions by resulting mode.",
	}, []string{"mode"})

	// DecisionFailures counts decisions that failed closed on a store error.
	DecisionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdguard_decision_failures_total",
		Help: "Decisions that failed closed because the store errored.",
	})

	// StoreFailures counts store operations that returned an error.
	StoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdguard_store_failures_total",
		Help: "Store operations that returned an error.",
	})

	// PurgeRuns counts purge reconciliation runs by outcome.
	PurgeRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdguard_purge_runs_total",
		Help: "Purge reconciliation runs by outcome.",
	}, []string{"outcome"})

	// EventsPublished counts access events handed to the notifier.
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdguard_events_published_total",
		Help: "Access events handed to the notification channel.",
	})

	// AuthDenials counts rejected mutation attempts.
	AuthDenials = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdguard_auth_denials_total",
		Help: "Mutation attempts rejected by the authorization gate.",
	})

	// MirrorDrift counts mirror files found out of sync with the store.
	MirrorDrift = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdguard_mirror_drift_total",
		Help: "Mirror files modified out of band and flagged by the watcher.",
	})
)
