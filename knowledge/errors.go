package knowledge

import (
	"errors"
	"fmt"

	"github.com/tomasstrnad1997/minesbot/mines"
)

var (
	// ErrDuplicateMove is returned by Update for a cell that was already
	// observed. Knowledge is left untouched.
	ErrDuplicateMove = errors.New("cell already observed")

	// ErrKnownMine is returned by Update for a cell already deduced to be a
	// mine.
	ErrKnownMine = errors.New("cell is known to be a mine")

	ErrInvalidDimensions = errors.New("board dimensions must be positive")

	errConflict = errors.New("contradiction")
)

type InvalidCountError struct {
	Cell  mines.Cell
	Count int
	// Max is the largest count the cell's neighbourhood can hold
	Max    int
	reason string
}

func (e InvalidCountError) Error() string {
	return fmt.Sprintf("Invalid mine count %d at %s (allowed 0-%d): %s", e.Count, e.Cell, e.Max, e.reason)
}

type CellOutOfBoundsError struct {
	Cell   mines.Cell
	Height int
	Width  int
}

func (e CellOutOfBoundsError) Error() string {
	return fmt.Sprintf("Cell out of range - %s - Board (%d, %d)", e.Cell, e.Height, e.Width)
}
