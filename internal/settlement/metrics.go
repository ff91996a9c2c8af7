package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tournament",
		Subsystem: "settlement",
		Name:      "runs_total",
		Help:      "Settlement calls by outcome and reason.",
	}, []string{"outcome", "reason"})

	consistencyViolations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tournament",
		Subsystem: "settlement",
		Name:      "consistency_violations_total",
		Help:      "Settlements aborted because ledger state was inconsistent.",
	})

	settledPoolUSDC = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tournament",
		Subsystem: "settlement",
		Name:      "pool_usdc_total",
		Help:      "Sum of settled tournament pools in USDC.",
	})
)

func observeResult(r Result) {
	settlementRuns.WithLabelValues(string(r.Outcome), r.Reason).Inc()
	if r.TotalPool != nil {
		settledPoolUSDC.Add(r.TotalPool.InexactFloat64())
	}
}
