package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "standards",
		Subsystem: "import",
		Name:      "batches_total",
		Help:      "Total number of import batches broken down by result.",
	}, []string{"result"})

	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "standards",
		Subsystem: "import",
		Name:      "write_conflicts_total",
		Help:      "Database write conflicts surfaced during imports.",
	}, []string{"kind"})
)

func recordImport(result string) {
	importsTotal.WithLabelValues(result).Inc()
}

func recordWriteConflict(kind string) {
	writeConflicts.WithLabelValues(kind).Inc()
}
