package voteprocessor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var outcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chratos_voteprocessor_outcomes_total",
	Help: "Total number of votes processed, by outcome (invalid, replay, vote, dropped_full)",
}, []string{"outcome"})
