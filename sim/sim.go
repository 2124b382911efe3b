// Package sim plays batches of independent games on random boards.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomasstrnad1997/minesbot/agent"
	"github.com/tomasstrnad1997/minesbot/db"
	"github.com/tomasstrnad1997/minesbot/knowledge"
	"github.com/tomasstrnad1997/minesbot/mines"
)

type Config struct {
	Height   int
	Width    int
	Mines    int
	Cascade  bool
	Saturate bool
	Games    int
	// Workers bounds the games played at once, 0 means one per CPU
	Workers int
	// Game i is played with seed Seed+i
	Seed int64
}

// Recorder stores finished games. It is called from a single goroutine at
// a time.
type Recorder interface {
	RecordGame(ctx context.Context, record db.GameRecord) (int64, error)
}

type GameResult struct {
	Seed int64
	agent.Result
}

func (r GameResult) Outcome() string {
	if r.Stuck {
		return "stuck"
	}
	return r.State.String()
}

type Summary struct {
	Games   int
	Won     int
	Lost    int
	Stuck   int
	Moves   int
	Guesses int
	Results []GameResult
}

func (s Summary) WinRate() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Won) / float64(s.Games)
}

func (cfg Config) params() mines.GameParams {
	return mines.GameParams{Height: cfg.Height, Width: cfg.Width, Mines: cfg.Mines, Cascade: cfg.Cascade}
}

// PlayOne plays a single game with the given seed used for both the mine
// layout and the agent's guesses.
func PlayOne(ctx context.Context, cfg Config, seed int64) (GameResult, error) {
	rng := rand.New(rand.NewSource(seed))
	board, err := mines.CreateBoardFromParams(cfg.params(), rng)
	if err != nil {
		return GameResult{}, err
	}
	var opts []knowledge.Option
	if cfg.Saturate {
		opts = append(opts, knowledge.WithSaturation())
	}
	a, err := agent.New(cfg.Height, cfg.Width, rng, opts...)
	if err != nil {
		return GameResult{}, err
	}
	game := agent.NewGame(board, a)
	for !game.State().Terminal() {
		if err := ctx.Err(); err != nil {
			return GameResult{}, err
		}
		start := time.Now()
		move, err := game.Step()
		stepSeconds.Observe(time.Since(start).Seconds())
		if errors.Is(err, agent.ErrNoMovesAvailable) {
			break
		}
		if err != nil {
			return GameResult{}, fmt.Errorf("game with seed %d: %w", seed, err)
		}
		kind := "safe"
		if move.Guess {
			kind = "guess"
		}
		movesTotal.WithLabelValues(kind).Inc()
	}
	result := GameResult{Seed: seed, Result: game.Result()}
	gamesTotal.WithLabelValues(result.Outcome()).Inc()
	return result, nil
}

// Run plays cfg.Games games. A nil recorder skips recording. Results are
// ordered by game index whatever the number of workers.
func Run(ctx context.Context, cfg Config, recorder Recorder) (Summary, error) {
	if _, err := mines.CreateBoard(cfg.Height, cfg.Width, cfg.Mines, nil); err != nil {
		return Summary{}, err
	}
	results := make([]GameResult, cfg.Games)
	var recordMux sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g.SetLimit(workers)
	for i := range cfg.Games {
		seed := cfg.Seed + int64(i)
		g.Go(func() error {
			result, err := PlayOne(ctx, cfg, seed)
			if err != nil {
				return err
			}
			results[i] = result
			if recorder == nil {
				return nil
			}
			recordMux.Lock()
			defer recordMux.Unlock()
			_, err = recorder.RecordGame(ctx, db.GameRecord{
				Height:     cfg.Height,
				Width:      cfg.Width,
				Mines:      cfg.Mines,
				Outcome:    result.Outcome(),
				Moves:      result.Moves,
				Guesses:    result.Guesses,
				MinesFound: result.MinesFound,
				Seed:       seed,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summary{Games: cfg.Games, Results: results}
	for _, r := range results {
		switch {
		case r.Stuck:
			summary.Stuck++
		case r.State == agent.Won:
			summary.Won++
		case r.State == agent.Lost:
			summary.Lost++
		}
		summary.Moves += r.Moves
		summary.Guesses += r.Guesses
	}
	return summary, nil
}
