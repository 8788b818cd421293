package blockprocessor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chratos_blockprocessor_processed_total",
		Help: "Total number of blocks committed through ledger.Process, by ProcessResult",
	}, []string{"result"})

	rejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chratos_blockprocessor_rejected_total",
		Help: "Total number of blocks dropped before reaching the ledger, by reason",
	}, []string{"reason"})
)
