package wire

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	parseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chratos_wire_parse_errors_total",
		Help: "Total number of UDP datagrams that failed to parse, by status",
	}, []string{"status"})

	insufficientWorkTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chratos_wire_insufficient_work_total",
		Help: "Total number of otherwise well-formed messages dropped for insufficient proof-of-work",
	})
)

// RecordParseStatus increments the parse-error counters for every
// non-success ParseStatus, per spec.md §4.2 ("every non-success status
// increments the error counter; insufficient_work additionally tags a
// sub-detail").
func RecordParseStatus(status ParseStatus) {
	if status == StatusSuccess {
		return
	}
	parseErrorsTotal.WithLabelValues(status.String()).Inc()
	if status == StatusInsufficientWork {
		insufficientWorkTotal.Inc()
	}
}
