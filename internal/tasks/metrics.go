package tasks

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "launcherd_tasks_started_total",
			Help: "Total number of background tasks started.",
		},
	)

	tasksFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcherd_tasks_finished_total",
			Help: "Total number of background tasks finished, by terminal status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(tasksStarted)
	prometheus.MustRegister(tasksFinished)
}
