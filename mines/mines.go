package mines

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
)

// Cell is a board coordinate. Rows and columns are 0-indexed.
type Cell struct {
	Row int
	Col int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d, %d)", c.Row, c.Col)
}

// Neighbors returns the cells within one row and column of c that lie on a
// height x width grid, not including c itself. Order is row-major.
func (c Cell) Neighbors(height, width int) []Cell {
	cells := make([]Cell, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			n := Cell{c.Row + dr, c.Col + dc}
			if n.Row >= 0 && n.Row < height && n.Col >= 0 && n.Col < width {
				cells = append(cells, n)
			}
		}
	}
	return cells
}

type Tile struct {
	Mine     bool
	Revealed bool
	Flagged  bool
	Pos      Cell
}

type Board struct {
	Height  int
	Width   int
	Mines   int
	Cascade bool
	// Tiles is indexed [row][col]
	Tiles         [][]*Tile
	RevealedCells int
}

type GameParams struct {
	Height  int
	Width   int
	Mines   int
	Cascade bool
}

type MoveType byte

const (
	Reveal MoveType = 0x01
	Flag   MoveType = 0x02
)

type Move struct {
	Cell     Cell
	Type     MoveType
	PlayerId uint32
}

func (move Move) String() string {
	msg := move.Cell.String() + " "
	switch move.Type {
	case Reveal:
		return msg + "Reveal"
	case Flag:
		return msg + "Flag"
	default:
		return msg + "UNKNOWN"
	}
}

type MoveResultType int

const (
	NoChange MoveResultType = iota
	MineBlown
	CellRevealed
	Flagged
	GameWon
)

type MoveResult struct {
	Result       MoveResultType
	UpdatedCells []*Tile
}

const (
	ShowMine byte = 0x10
	ShowFlag byte = 0x20
	Unflag   byte = 0x30
)

// UpdatedCell is the client visible state of a tile. Value is the
// neighbouring mine count (0-8) for a revealed safe tile, otherwise one of
// ShowMine, ShowFlag or Unflag.
type UpdatedCell struct {
	Cell  Cell
	Value byte
}

type InvalidBoardParamsError struct {
	height int
	width  int
	mines  int
}

type InvalidMoveError struct {
	board *Board
	cell  Cell
}

type InvalidMineError struct {
	cell   Cell
	reason string
}

func (e InvalidMoveError) Error() string {
	return fmt.Sprintf("Move out of range - %s - Board (%d, %d)", e.cell, e.board.Height, e.board.Width)
}

func (e InvalidBoardParamsError) Error() string {
	switch {
	case e.width <= 0:
		return fmt.Sprintf("Cannot create a board with width: %d", e.width)
	case e.height <= 0:
		return fmt.Sprintf("Cannot create a board with height: %d", e.height)
	case e.mines < 0:
		return fmt.Sprintf("Cannot create a board with negative amount of mines: %d", e.mines)
	case e.mines > e.width*e.height:
		return fmt.Sprintf("Not enough space for %d mines. (%d > %d * %d)", e.mines, e.mines, e.height, e.width)
	default:
		return "Cannot construct board: unknown error"
	}
}

func (e InvalidMineError) Error() string {
	return fmt.Sprintf("Cannot place mine at %s: %s", e.cell, e.reason)
}

func validParams(height, width, mines int) bool {
	return height > 0 && width > 0 && mines >= 0 && mines <= width*height
}

func emptyBoard(height, width int) *Board {
	tiles := make([][]*Tile, height)
	for r := range tiles {
		tiles[r] = make([]*Tile, width)
		for c := 0; c < width; c++ {
			tiles[r][c] = &Tile{Pos: Cell{r, c}}
		}
	}
	return &Board{Height: height, Width: width, Tiles: tiles}
}

func CreateBoardFromParams(params GameParams, rng *rand.Rand) (*Board, error) {
	board, err := CreateBoard(params.Height, params.Width, params.Mines, rng)
	if err != nil {
		return nil, err
	}
	board.Cascade = params.Cascade
	return board, nil
}

// CreateBoard places mines uniformly at random. A nil rng uses the global
// source.
func CreateBoard(height, width, mines int, rng *rand.Rand) (*Board, error) {
	if !validParams(height, width, mines) {
		return nil, &InvalidBoardParamsError{height, width, mines}
	}
	board := emptyBoard(height, width)
	positions := make([]int, width*height)
	for i := range positions {
		positions[i] = i
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(positions), func(i, j int) {
		positions[i], positions[j] = positions[j], positions[i]
	})
	for _, position := range positions[:mines] {
		board.Tiles[position/width][position%width].Mine = true
	}
	board.Mines = mines
	return board, nil
}

// CreateBoardWithMines builds a board with a fixed mine layout.
func CreateBoardWithMines(height, width int, mines []Cell) (*Board, error) {
	if !validParams(height, width, len(mines)) {
		return nil, &InvalidBoardParamsError{height, width, len(mines)}
	}
	board := emptyBoard(height, width)
	for _, cell := range mines {
		if !board.Valid(cell) {
			return nil, &InvalidMineError{cell, "out of range"}
		}
		tile := board.Tiles[cell.Row][cell.Col]
		if tile.Mine {
			return nil, &InvalidMineError{cell, "duplicate"}
		}
		tile.Mine = true
	}
	board.Mines = len(mines)
	return board, nil
}

func (board *Board) Valid(cell Cell) bool {
	return cell.Row >= 0 && cell.Row < board.Height && cell.Col >= 0 && cell.Col < board.Width
}

func (board *Board) tile(cell Cell) *Tile {
	return board.Tiles[cell.Row][cell.Col]
}

func (board *Board) IsMine(cell Cell) bool {
	return board.Valid(cell) && board.tile(cell).Mine
}

func (board *Board) NeighborMineCount(cell Cell) int {
	mines := 0
	for _, n := range cell.Neighbors(board.Height, board.Width) {
		if board.tile(n).Mine {
			mines++
		}
	}
	return mines
}

// MineCells returns the true mine layout in row-major order.
func (board *Board) MineCells() []Cell {
	cells := make([]Cell, 0, board.Mines)
	for _, row := range board.Tiles {
		for _, tile := range row {
			if tile.Mine {
				cells = append(cells, tile.Pos)
			}
		}
	}
	return cells
}

// Cleared reports whether every safe tile has been revealed.
func (board *Board) Cleared() bool {
	return board.RevealedCells+board.Mines == board.Width*board.Height
}

// cascade reveals start and, while Cascade is set, floods outward through
// tiles with no neighbouring mines.
func (board *Board) cascade(start *Tile) []*Tile {
	start.Revealed = true
	updated := []*Tile{start}
	if !board.Cascade {
		return updated
	}
	pending := []*Tile{start}
	for len(pending) > 0 {
		tile := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if board.NeighborMineCount(tile.Pos) != 0 {
			continue
		}
		for _, n := range tile.Pos.Neighbors(board.Height, board.Width) {
			ntile := board.tile(n)
			if ntile.Revealed || ntile.Flagged || ntile.Mine {
				continue
			}
			ntile.Revealed = true
			updated = append(updated, ntile)
			pending = append(pending, ntile)
		}
	}
	return updated
}

func (board *Board) Reveal(cell Cell) (*MoveResult, error) {
	if !board.Valid(cell) {
		return nil, &InvalidMoveError{board, cell}
	}
	tile := board.tile(cell)
	if tile.Revealed || tile.Flagged {
		return &MoveResult{NoChange, nil}, nil
	}
	if tile.Mine {
		tile.Revealed = true
		return &MoveResult{MineBlown, []*Tile{tile}}, nil
	}
	updated := board.cascade(tile)
	board.RevealedCells += len(updated)
	result := CellRevealed
	if board.Cleared() {
		result = GameWon
	}
	return &MoveResult{result, updated}, nil
}

func (board *Board) Flag(cell Cell) (*MoveResult, error) {
	if !board.Valid(cell) {
		return nil, &InvalidMoveError{board, cell}
	}
	tile := board.tile(cell)
	if tile.Revealed {
		return &MoveResult{NoChange, nil}, nil
	}
	tile.Flagged = !tile.Flagged
	return &MoveResult{Flagged, []*Tile{tile}}, nil
}

func (board *Board) MakeMove(move Move) (*MoveResult, error) {
	switch move.Type {
	case Reveal:
		return board.Reveal(move.Cell)
	case Flag:
		return board.Flag(move.Cell)
	default:
		return nil, fmt.Errorf("Invalid move type %x", move.Type)
	}
}

func (board *Board) CreateUpdatedCells(tiles []*Tile) []UpdatedCell {
	updates := make([]UpdatedCell, len(tiles))
	for i, tile := range tiles {
		var value byte
		switch {
		case tile.Revealed && tile.Mine:
			value = ShowMine
		case tile.Revealed:
			value = byte(board.NeighborMineCount(tile.Pos))
		case tile.Flagged:
			value = ShowFlag
		default:
			// Neither flagged nor revealed so it must be an unflag
			value = Unflag
		}
		updates[i] = UpdatedCell{Cell: tile.Pos, Value: value}
	}
	return updates
}

// CreateCellUpdates returns updates for every tile a player can currently
// see, used to bring a late joiner up to date.
func (board *Board) CreateCellUpdates() []UpdatedCell {
	visible := []*Tile{}
	for _, row := range board.Tiles {
		for _, tile := range row {
			if tile.Revealed || tile.Flagged {
				visible = append(visible, tile)
			}
		}
	}
	return board.CreateUpdatedCells(visible)
}

// Print writes the player view: counts for revealed tiles, F for flags,
// X for a blown mine and # for anything hidden.
func (board *Board) Print(w io.Writer) {
	fmt.Fprint(w, "X")
	for c := 0; c < board.Width; c++ {
		fmt.Fprint(w, c%10)
	}
	fmt.Fprintln(w)
	for r, row := range board.Tiles {
		fmt.Fprint(w, r%10)
		for _, tile := range row {
			switch {
			case tile.Revealed && tile.Mine:
				fmt.Fprint(w, "X")
			case tile.Revealed:
				fmt.Fprint(w, strconv.Itoa(board.NeighborMineCount(tile.Pos)))
			case tile.Flagged:
				fmt.Fprint(w, "F")
			default:
				fmt.Fprint(w, "#")
			}
		}
		fmt.Fprintln(w)
	}
}
