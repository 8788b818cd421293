package election

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	electionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chratos_election_active",
		Help: "Number of elections currently live",
	})

	confirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chratos_election_confirmed_total",
		Help: "Total number of elections that reached quorum",
	})
)
