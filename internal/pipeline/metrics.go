package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	bytesDownloaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "launcherd_pipeline_bytes_downloaded_total",
			Help: "Total bytes downloaded by install and update pipelines.",
		},
	)

	filesVerified = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "launcherd_pipeline_files_verified_total",
			Help: "Total files that passed verification.",
		},
	)

	filesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "launcherd_pipeline_files_failed_total",
			Help: "Total files that failed verification.",
		},
	)
)

func init() {
	prometheus.MustRegister(bytesDownloaded)
	prometheus.MustRegister(filesVerified)
	prometheus.MustRegister(filesFailed)
}
