package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_batch_runs_total",
		Help: "Completed batch job runs by job name.",
	}, []string{"job"})

	absencesSynthesized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_absences_synthesized_total",
		Help: "Absence rows written for students with no scan on a scheduled day.",
	})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_notifications_sent_total",
		Help: "Notification emails sent by kind.",
	}, []string{"kind"})

	batchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classtrack_batch_failures_total",
		Help: "Isolated per-student failures inside batch runs.",
	})
)
