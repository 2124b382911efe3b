package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomasstrnad1997/minesbot/knowledge"
	"github.com/tomasstrnad1997/minesbot/mines"
)

var ErrGameOver = errors.New("game is over")

type State int

const (
	Fresh State = iota
	Playing
	Won
	Lost
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Playing:
		return "playing"
	case Won:
		return "won"
	case Lost:
		return "lost"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) Terminal() bool {
	return s == Won || s == Lost
}

type Result struct {
	State      State
	Moves      int
	Guesses    int
	MinesFound int
	// Stuck is set when the agent ran out of moves before the game ended
	Stuck bool
}

// Game plays one board with one agent.
type Game struct {
	board   *mines.Board
	agent   *Agent
	state   State
	moves   int
	guesses int
	stuck   bool
}

func NewGame(board *mines.Board, agent *Agent) *Game {
	return &Game{board: board, agent: agent}
}

func (g *Game) State() State {
	return g.state
}

func (g *Game) Board() *mines.Board {
	return g.board
}

func (g *Game) Agent() *Agent {
	return g.agent
}

func (g *Game) Result() Result {
	return Result{
		State:      g.state,
		Moves:      g.moves,
		Guesses:    g.guesses,
		MinesFound: g.agent.kb.MineCount(),
		Stuck:      g.stuck,
	}
}

// Step makes one move and feeds every cell it revealed to the agent.
func (g *Game) Step() (Move, error) {
	if g.state.Terminal() {
		return Move{}, ErrGameOver
	}
	move, err := g.agent.NextMove()
	if err != nil {
		if errors.Is(err, ErrNoMovesAvailable) {
			g.stuck = true
		}
		return Move{}, err
	}
	g.state = Playing
	g.moves++
	if move.Guess {
		g.guesses++
	}

	result, err := g.board.Reveal(move.Cell)
	if err != nil {
		return move, err
	}
	if result.Result == mines.MineBlown {
		g.state = Lost
		return move, nil
	}
	for _, tile := range result.UpdatedCells {
		err := g.agent.Observe(tile.Pos, g.board.NeighborMineCount(tile.Pos))
		if err != nil && !errors.Is(err, knowledge.ErrDuplicateMove) {
			return move, fmt.Errorf("observe %s: %w", tile.Pos, err)
		}
	}
	if _, err := g.agent.kb.ResolveTotal(g.board.Mines); err != nil {
		return move, err
	}
	g.flagKnownMines()
	if g.allMinesFound() {
		g.state = Won
	}
	return move, nil
}

func (g *Game) flagKnownMines() {
	for _, c := range g.agent.kb.Mines() {
		if !g.board.Tiles[c.Row][c.Col].Flagged {
			g.board.Flag(c)
		}
	}
}

// allMinesFound reports whether the agent's mines are exactly the board's.
func (g *Game) allMinesFound() bool {
	kb := g.agent.kb
	if kb.MineCount() != g.board.Mines {
		return false
	}
	for _, c := range g.board.MineCells() {
		if !kb.IsMine(c) {
			return false
		}
	}
	return true
}

// Play steps until the game is won or lost, the agent runs out of moves or
// ctx is done.
func (g *Game) Play(ctx context.Context) (Result, error) {
	for !g.state.Terminal() {
		if err := ctx.Err(); err != nil {
			return g.Result(), err
		}
		if _, err := g.Step(); err != nil {
			if errors.Is(err, ErrNoMovesAvailable) {
				return g.Result(), nil
			}
			return g.Result(), err
		}
	}
	return g.Result(), nil
}
