package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blunt"

var (
	Composed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "composed_total",
		Help:      "Blunts persisted, by recipient mode.",
	}, []string{"mode"})

	Rejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_total",
		Help:      "Compose attempts turned away, by reason.",
	}, []string{"reason"})

	Moderation = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moderation_total",
		Help:      "Moderation outcomes. fail_open counts calls that errored and were let through.",
	}, []string{"verdict"})

	Replies = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replies_total",
		Help:      "Replies appended to blunts.",
	})
)
