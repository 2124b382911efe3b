// Package agent picks moves from the knowledge gathered about a board and
// drives whole games, locally or against a remote game server.
package agent

import (
	"errors"
	"math/rand"

	"github.com/tomasstrnad1997/minesbot/knowledge"
	"github.com/tomasstrnad1997/minesbot/mines"
)

var ErrNoMovesAvailable = errors.New("no moves available")

type Move struct {
	Cell mines.Cell
	// Guess is set when no cell was known to be safe
	Guess bool
}

type Agent struct {
	kb     *knowledge.KnowledgeBase
	height int
	width  int
	rng    *rand.Rand
}

// New creates an agent for a height x width board. A nil rng uses the global
// source for random moves.
func New(height, width int, rng *rand.Rand, opts ...knowledge.Option) (*Agent, error) {
	kb, err := knowledge.New(height, width, opts...)
	if err != nil {
		return nil, err
	}
	return &Agent{kb: kb, height: height, width: width, rng: rng}, nil
}

func (a *Agent) Knowledge() *knowledge.KnowledgeBase {
	return a.kb
}

// Observe feeds the mine count revealed at cell into the knowledge base.
func (a *Agent) Observe(cell mines.Cell, count int) error {
	return a.kb.Update(cell, count)
}

// SafeMove returns a cell known to be safe that has not been played yet.
// It does not modify any knowledge.
func (a *Agent) SafeMove() (mines.Cell, bool) {
	for _, c := range a.kb.Safes() {
		if !a.kb.Moved(c) {
			return c, true
		}
	}
	return mines.Cell{}, false
}

// RandomMove picks uniformly among cells that were not played and are not
// known to be mines.
func (a *Agent) RandomMove() (mines.Cell, error) {
	var candidates []mines.Cell
	for r := 0; r < a.height; r++ {
		for c := 0; c < a.width; c++ {
			cell := mines.Cell{Row: r, Col: c}
			if !a.kb.Moved(cell) && !a.kb.IsMine(cell) {
				candidates = append(candidates, cell)
			}
		}
	}
	if len(candidates) == 0 {
		return mines.Cell{}, ErrNoMovesAvailable
	}
	intn := rand.Intn
	if a.rng != nil {
		intn = a.rng.Intn
	}
	return candidates[intn(len(candidates))], nil
}

// NextMove prefers a safe cell and falls back to a random one.
func (a *Agent) NextMove() (Move, error) {
	if cell, ok := a.SafeMove(); ok {
		return Move{Cell: cell}, nil
	}
	cell, err := a.RandomMove()
	if err != nil {
		return Move{}, err
	}
	return Move{Cell: cell, Guess: true}, nil
}
