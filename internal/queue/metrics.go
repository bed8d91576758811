package queue

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// QueueDepth tracks pending tasks per queue as last seen by the admin API.
	QueueDepth *prometheus.GaugeVec
	// QueueDeadSize tracks archived (exhausted) tasks per queue.
	QueueDeadSize *prometheus.GaugeVec

	metricsOnce sync.Once
)

// MustRegisterMetrics registers the queue gauges once per process.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Pending tasks per queue",
		}, []string{"queue"})
		QueueDeadSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_dead_size",
			Help:      "Archived tasks per queue",
		}, []string{"queue"})
		reg.MustRegister(QueueDepth, QueueDeadSize)
	})
}

func observeQueue(name string, pending, archived int) {
	if QueueDepth != nil {
		QueueDepth.WithLabelValues(name).Set(float64(pending))
	}
	if QueueDeadSize != nil {
		QueueDeadSize.WithLabelValues(name).Set(float64(archived))
	}
}
