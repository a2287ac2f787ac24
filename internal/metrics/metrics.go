package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meili_operator",
			Name:      "remote_requests_total",
			Help:      "Total number of requests issued against Meilisearch servers",
		},
		[]string{"operation", "outcome"},
	)

	KeysAdoptedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meili_operator",
			Name:      "keys_adopted_total",
			Help:      "Total number of remote keys adopted instead of created",
		},
		[]string{"match"},
	)

	FastTeardownsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meili_operator",
			Name:      "fast_teardowns_total",
			Help:      "Total number of dependent CRs removed without remote cleanup",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(
		RemoteRequestsTotal,
		KeysAdoptedTotal,
		FastTeardownsTotal,
	)
}
