package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var digestBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chatforum_digest_builds_total",
	Help: "Digest builds by outcome (ok, notice, failure, rejected).",
}, []string{"outcome"})
