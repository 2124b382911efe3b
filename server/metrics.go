package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minesbot_server_games_started_total",
		Help: "Games started on the game server.",
	})
	gamesEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minesbot_server_games_ended_total",
		Help: "Games ended on the game server by result.",
	}, []string{"result"})
	movesHandled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minesbot_server_moves_total",
		Help: "Moves applied to the running game.",
	})
	playersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "minesbot_server_players_connected",
		Help: "Players currently connected.",
	})
)
