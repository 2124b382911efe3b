package knowledge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomasstrnad1997/minesbot/mines"
)

// Sentence states that exactly Count of its cells are mines.
type Sentence struct {
	cells CellSet
	count int
}

// NewSentence copies cells. It panics when count is outside [0, len(cells)].
func NewSentence(cells []mines.Cell, count int) *Sentence {
	return newSentence(NewCellSet(cells...), count)
}

func newSentence(cells CellSet, count int) *Sentence {
	s := &Sentence{cells: cells, count: count}
	s.check()
	return s
}

func (s *Sentence) check() {
	if s.count < 0 || s.count > len(s.cells) {
		panic(fmt.Sprintf("knowledge: sentence invariant broken: %s", s))
	}
}

func (s *Sentence) Count() int {
	return s.count
}

func (s *Sentence) Len() int {
	return len(s.cells)
}

func (s *Sentence) Empty() bool {
	return len(s.cells) == 0
}

func (s *Sentence) Has(c mines.Cell) bool {
	return s.cells.Has(c)
}

// Cells returns the cells in row-major order.
func (s *Sentence) Cells() []mines.Cell {
	return s.cells.Sorted()
}

// KnownMines returns every cell when all of them must be mines.
func (s *Sentence) KnownMines() CellSet {
	if s.count > 0 && s.count == len(s.cells) {
		return s.cells.Clone()
	}
	return CellSet{}
}

// KnownSafes returns every cell when none of them can be a mine.
func (s *Sentence) KnownSafes() CellSet {
	if s.count == 0 {
		return s.cells.Clone()
	}
	return CellSet{}
}

func (s *Sentence) MarkMine(c mines.Cell) {
	if !s.cells.Remove(c) {
		return
	}
	s.count--
	s.check()
}

func (s *Sentence) MarkSafe(c mines.Cell) {
	if !s.cells.Remove(c) {
		return
	}
	s.check()
}

func (s *Sentence) Equal(o *Sentence) bool {
	return s.count == o.count && s.cells.Equal(o.cells)
}

// Key is a canonical encoding of the sentence. Two sentences have the same
// key exactly when they are Equal.
func (s *Sentence) Key() string {
	var b strings.Builder
	for _, c := range s.cells.Sorted() {
		b.WriteString(strconv.Itoa(c.Row))
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(c.Col))
		b.WriteByte(';')
	}
	b.WriteByte('=')
	b.WriteString(strconv.Itoa(s.count))
	return b.String()
}

func (s *Sentence) clone() *Sentence {
	return &Sentence{cells: s.cells.Clone(), count: s.count}
}

func (s *Sentence) String() string {
	parts := make([]string, 0, len(s.cells))
	for _, c := range s.cells.Sorted() {
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("{%s} = %d", strings.Join(parts, ", "), s.count)
}
