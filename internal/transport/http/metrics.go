package httptransport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentChallenges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tournament",
		Subsystem: "x402",
		Name:      "challenges_total",
		Help:      "402 payment challenges issued.",
	})

	paymentAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tournament",
		Subsystem: "x402",
		Name:      "attempts_total",
		Help:      "Entry payment attempts by result code.",
	}, []string{"result"})

	entriesConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tournament",
		Subsystem: "entries",
		Name:      "confirmed_total",
		Help:      "Tournament entries newly confirmed.",
	})
)
