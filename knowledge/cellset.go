package knowledge

import (
	"slices"

	"github.com/tomasstrnad1997/minesbot/mines"
)

// CellSet is an unordered set of cells.
type CellSet map[mines.Cell]struct{}

func NewCellSet(cells ...mines.Cell) CellSet {
	set := make(CellSet, len(cells))
	for _, c := range cells {
		set[c] = struct{}{}
	}
	return set
}

func (s CellSet) Add(c mines.Cell) {
	s[c] = struct{}{}
}

func (s CellSet) Has(c mines.Cell) bool {
	_, ok := s[c]
	return ok
}

func (s CellSet) Remove(c mines.Cell) bool {
	if _, ok := s[c]; !ok {
		return false
	}
	delete(s, c)
	return true
}

func (s CellSet) Len() int {
	return len(s)
}

func (s CellSet) Clone() CellSet {
	out := make(CellSet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

func (s CellSet) Equal(o CellSet) bool {
	if len(s) != len(o) {
		return false
	}
	for c := range s {
		if !o.Has(c) {
			return false
		}
	}
	return true
}

// StrictSubsetOf reports s ⊂ o.
func (s CellSet) StrictSubsetOf(o CellSet) bool {
	if len(s) >= len(o) {
		return false
	}
	for c := range s {
		if !o.Has(c) {
			return false
		}
	}
	return true
}

// Difference returns s − o as a new set.
func (s CellSet) Difference(o CellSet) CellSet {
	out := make(CellSet, len(s))
	for c := range s {
		if !o.Has(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// Sorted returns the cells in row-major order.
func (s CellSet) Sorted() []mines.Cell {
	cells := make([]mines.Cell, 0, len(s))
	for c := range s {
		cells = append(cells, c)
	}
	slices.SortFunc(cells, compareCells)
	return cells
}

func compareCells(a, b mines.Cell) int {
	if a.Row != b.Row {
		return a.Row - b.Row
	}
	return a.Col - b.Col
}
