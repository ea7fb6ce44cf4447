// Package metrics exposes the Prometheus counters of the message pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valentina_messages_received_total",
		Help: "Inbound message events accepted by the intake.",
	})

	MessagesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_messages_dropped_total",
		Help: "Inbound message events dropped before processing.",
	}, []string{"reason"}) // duplicate, stale, locked, empty, unmentioned

	ObjectionsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_objections_handled_total",
		Help: "Messages answered by the objection interceptor.",
	}, []string{"kind"})

	LookupsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_lookups_total",
		Help: "Registry lookups by kind and serving source.",
	}, []string{"kind", "source"})

	LookupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_lookup_failures_total",
		Help: "Registry lookups that exhausted every provider.",
	}, []string{"kind"})

	RepliesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_replies_sent_total",
		Help: "Outbound replies by dispatch kind.",
	}, []string{"kind"}) // text, mobile_image, fiber_text, rule

	BackendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valentina_backend_errors_total",
		Help: "Dialogue backend calls that returned an error.",
	})

	TakeoverLocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valentina_takeover_locks_total",
		Help: "Operator messages that engaged or refreshed a takeover lock.",
	})
)
