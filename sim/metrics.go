package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gamesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minesbot_games_total",
		Help: "Simulated games by outcome.",
	}, []string{"outcome"})
	movesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minesbot_moves_total",
		Help: "Moves played by kind, safe or guess.",
	}, []string{"kind"})
	stepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "minesbot_step_duration_seconds",
		Help:    "Time to play one move and update knowledge.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})
)
