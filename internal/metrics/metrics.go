// Package metrics holds domain counters exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TasksCreated counts persisted tasks per storage backend.
var TasksCreated = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tasks_created_total",
		Help: "Total number of tasks persisted",
	},
	[]string{"backend"},
)
