package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type KeeperMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var (
	keeperOnce     sync.Once
	keeperRegistry *KeeperMetrics
)

// Keeper returns the process-wide scheduled job metrics registry.
func Keeper() *KeeperMetrics {
	keeperOnce.Do(func() {
		keeperRegistry = &KeeperMetrics{
			runs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "plasmavault",
				Subsystem: "keeper",
				Name:      "job_runs_total",
				Help:      "Count of keeper job runs by job and outcome.",
			}, []string{"job", "outcome"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "plasmavault",
				Subsystem: "keeper",
				Name:      "job_duration_seconds",
				Help:      "Duration of keeper job runs.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"job"}),
		}
		prometheus.MustRegister(keeperRegistry.runs, keeperRegistry.duration)
	})
	return keeperRegistry
}

func (m *KeeperMetrics) ObserveRun(job string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.runs.WithLabelValues(job, outcome).Inc()
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
}
