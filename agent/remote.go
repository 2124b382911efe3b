package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/tomasstrnad1997/minesbot/knowledge"
	"github.com/tomasstrnad1997/minesbot/mines"
	"github.com/tomasstrnad1997/minesbot/protocol"
)

var ErrGameAborted = errors.New("game aborted by server")

// RemotePlayer plays games on a game server through a protocol connection.
type RemotePlayer struct {
	conn     *protocol.Conn
	rng      *rand.Rand
	logger   *slog.Logger
	opts     []knowledge.Option
	PlayerId uint32
}

func NewRemotePlayer(conn *protocol.Conn, rng *rand.Rand, logger *slog.Logger, opts ...knowledge.Option) *RemotePlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemotePlayer{conn: conn, rng: rng, logger: logger, opts: opts}
}

// remoteGame is the client side view of one game in progress.
type remoteGame struct {
	params   *mines.GameParams
	agent    *Agent
	revealed int
	blown    bool
	ended    bool
	endType  protocol.GameEndType
	updated  bool
}

func (g *remoteGame) expectEnd() bool {
	return g.blown || g.revealed+g.params.Mines == g.params.Height*g.params.Width
}

func (p *RemotePlayer) router(game *remoteGame) *protocol.Router {
	router := protocol.NewRouter()
	router.RegisterHandler(protocol.TextMessage, func(data []byte) error {
		msg, err := protocol.DecodeTextMessage(data)
		if err != nil {
			return err
		}
		p.logger.Debug("server message", "text", msg)
		return nil
	})
	router.RegisterHandler(protocol.StartGame, func(data []byte) error {
		params, err := protocol.DecodeGameStart(data)
		if err != nil {
			return err
		}
		a, err := New(params.Height, params.Width, p.rng, p.opts...)
		if err != nil {
			return err
		}
		game.params = params
		game.agent = a
		return nil
	})
	router.RegisterHandler(protocol.CellUpdate, func(data []byte) error {
		if game.agent == nil {
			return fmt.Errorf("cell update before game start")
		}
		cells, err := protocol.DecodeCellUpdates(data)
		if err != nil {
			return err
		}
		for _, cell := range cells {
			switch {
			case cell.Value == mines.ShowMine:
				game.blown = true
			case cell.Value <= knowledge.MaxCount:
				err := game.agent.Observe(cell.Cell, int(cell.Value))
				if errors.Is(err, knowledge.ErrDuplicateMove) {
					continue
				}
				if err != nil {
					return fmt.Errorf("server reported an inconsistent board: observe %s: %w", cell.Cell, err)
				}
				game.revealed++
			}
		}
		game.updated = true
		return nil
	})
	router.RegisterHandler(protocol.GameEnd, func(data []byte) error {
		endType, err := protocol.DecodeGameEnd(data)
		if err != nil {
			return err
		}
		// A previous game being aborted
		if game.agent == nil {
			return nil
		}
		game.ended = true
		game.endType = endType
		return nil
	})
	return router
}

func (p *RemotePlayer) receiveUntil(router *protocol.Router, done func() bool) error {
	for !done() {
		data, err := p.conn.Receive()
		if err != nil {
			return err
		}
		if err := router.HandleMessage(data); err != nil {
			return err
		}
	}
	return nil
}

// Play requests a new game with params and plays it to the end. Cancelling
// ctx closes the connection.
func (p *RemotePlayer) Play(ctx context.Context, params mines.GameParams) (Result, error) {
	stop := context.AfterFunc(ctx, func() { p.conn.Close() })
	defer stop()

	game := &remoteGame{}
	router := p.router(game)
	start, err := protocol.EncodeGameStart(params)
	if err != nil {
		return Result{}, err
	}
	if err := p.conn.Send(start); err != nil {
		return Result{}, err
	}
	if err := p.receiveUntil(router, func() bool { return game.agent != nil }); err != nil {
		return Result{}, p.wrap(ctx, err)
	}
	p.logger.Info("game started", "height", game.params.Height, "width", game.params.Width, "mines", game.params.Mines)

	result := Result{State: Playing}
	for !game.ended {
		if game.expectEnd() {
			if err := p.receiveUntil(router, func() bool { return game.ended }); err != nil {
				return result, p.wrap(ctx, err)
			}
			break
		}
		move, err := game.agent.NextMove()
		if errors.Is(err, ErrNoMovesAvailable) {
			result.Stuck = true
			break
		}
		if err != nil {
			return result, err
		}
		result.Moves++
		if move.Guess {
			result.Guesses++
		}
		encoded, err := protocol.EncodeMove(mines.Move{Cell: move.Cell, Type: mines.Reveal, PlayerId: p.PlayerId})
		if err != nil {
			return result, err
		}
		if err := p.conn.Send(encoded); err != nil {
			return result, p.wrap(ctx, err)
		}
		game.updated = false
		if err := p.receiveUntil(router, func() bool { return game.updated || game.ended }); err != nil {
			return result, p.wrap(ctx, err)
		}
		if _, err := game.agent.kb.ResolveTotal(game.params.Mines); err != nil {
			return result, fmt.Errorf("server reported an inconsistent board: %w", err)
		}
	}
	result.MinesFound = game.agent.kb.MineCount()

	if game.ended {
		switch game.endType {
		case protocol.Win:
			result.State = Won
		case protocol.Loss:
			result.State = Lost
		default:
			return result, ErrGameAborted
		}
	}
	p.logger.Info("game finished", "state", result.State, "moves", result.Moves, "guesses", result.Guesses)
	return result, nil
}

func (p *RemotePlayer) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
