package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tomasstrnad1997/minesbot/agent"
	"github.com/tomasstrnad1997/minesbot/db"
	"github.com/tomasstrnad1997/minesbot/knowledge"
	"github.com/tomasstrnad1997/minesbot/mines"
	"github.com/tomasstrnad1997/minesbot/protocol"
	"github.com/tomasstrnad1997/minesbot/sim"
)

var (
	height      int
	width       int
	mineCount   int
	seed        int64
	cascade     bool
	saturate    bool
	verbose     bool
	serverAddr  string
	games       int
	workers     int
	record      bool
	metricsAddr string
	limit       int

	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "autoplay",
		Short: "A minesweeper bot that only guesses when logic runs out",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		},
		SilenceUsage: true,
	}
	playCmd = &cobra.Command{
		Use:   "play",
		Short: "Play one game locally or on a game server and print the board",
		RunE:  runPlay,
	}
	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Play many games and report the win rate",
		RunE:  runBench,
	}
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show games recorded in the DB_PATH database",
		RunE:  runHistory,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.IntVar(&height, "height", 16, "board height")
	flags.IntVar(&width, "width", 16, "board width")
	flags.IntVar(&mineCount, "mines", 40, "number of mines")
	flags.Int64Var(&seed, "seed", 0, "random seed, 0 picks one from the clock")
	flags.BoolVar(&cascade, "cascade", true, "reveal zero regions automatically")
	flags.BoolVar(&saturate, "saturate", false, "repeat subset inference until nothing new is derived")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	playCmd.Flags().StringVar(&serverAddr, "server", "", "play on the game server at this address")

	benchCmd.Flags().IntVarP(&games, "games", "n", 1000, "number of games")
	benchCmd.Flags().IntVar(&workers, "workers", 0, "games played in parallel, 0 means one per CPU")
	benchCmd.Flags().BoolVar(&record, "record", false, "store every game in the DB_PATH database")
	benchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	historyCmd.Flags().IntVar(&limit, "limit", 20, "number of games to list")

	rootCmd.AddCommand(playCmd, benchCmd, historyCmd)
}

func resolveSeed() int64 {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return seed
}

func knowledgeOptions() []knowledge.Option {
	if saturate {
		return []knowledge.Option{knowledge.WithSaturation()}
	}
	return nil
}

func params() mines.GameParams {
	return mines.GameParams{Height: height, Width: width, Mines: mineCount, Cascade: cascade}
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	rng := rand.New(rand.NewSource(resolveSeed()))
	logger.Info("playing", "seed", seed)
	if serverAddr != "" {
		return playRemote(ctx, rng)
	}

	board, err := mines.CreateBoardFromParams(params(), rng)
	if err != nil {
		return err
	}
	a, err := agent.New(height, width, rng, knowledgeOptions()...)
	if err != nil {
		return err
	}
	game := agent.NewGame(board, a)
	result, err := game.Play(ctx)
	if err != nil {
		return err
	}
	board.Print(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "%s after %d moves, %d guesses, %d mines found\n",
		result.State, result.Moves, result.Guesses, result.MinesFound)
	stats := a.Knowledge().Stats()
	logger.Debug("knowledge", "updates", stats.Updates, "derived", stats.Derived, "harvested", stats.Harvested)
	return nil
}

func playRemote(ctx context.Context, rng *rand.Rand) error {
	conn, err := protocol.Dial(ctx, serverAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	player := agent.NewRemotePlayer(conn, rng, logger, knowledgeOptions()...)
	result, err := player.Play(ctx, params())
	if err != nil {
		return err
	}
	fmt.Printf("%s after %d moves, %d guesses\n", result.State, result.Moves, result.Guesses)
	return nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if metricsAddr != "" {
		srv := serveMetrics(metricsAddr)
		defer srv.Close()
	}
	var recorder sim.Recorder
	if record {
		store, err := db.InitStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.InitializeTables(); err != nil {
			return err
		}
		recorder = store
	}
	cfg := sim.Config{
		Height:   height,
		Width:    width,
		Mines:    mineCount,
		Cascade:  cascade,
		Saturate: saturate,
		Games:    games,
		Workers:  workers,
		Seed:     resolveSeed(),
	}
	logger.Info("benchmark started", "games", games, "seed", cfg.Seed, "saturate", saturate)
	start := time.Now()
	summary, err := sim.Run(ctx, cfg, recorder)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "games   %d\n", summary.Games)
	fmt.Fprintf(out, "won     %d (%.1f%%)\n", summary.Won, 100*summary.WinRate())
	fmt.Fprintf(out, "lost    %d\n", summary.Lost)
	fmt.Fprintf(out, "stuck   %d\n", summary.Stuck)
	fmt.Fprintf(out, "moves   %d (%d guesses)\n", summary.Moves, summary.Guesses)
	logger.Info("benchmark finished", "elapsed", time.Since(start))
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := db.InitStore()
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := cmd.Context()
	recent, err := store.ListGames(ctx, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, g := range recent {
		fmt.Fprintf(out, "%5d %s %dx%d/%d %-6s moves=%d guesses=%d seed=%d\n",
			g.ID, g.PlayedAt.Format(time.DateTime), g.Height, g.Width, g.Mines, g.Outcome, g.Moves, g.Guesses, g.Seed)
	}
	counts, err := store.OutcomeCounts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "won=%d lost=%d stuck=%d\n", counts["won"], counts["lost"], counts["stuck"])
	return nil
}
