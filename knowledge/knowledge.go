// Package knowledge implements the deduction engine of the minesweeper bot.
//
// A KnowledgeBase collects one Sentence per revealed cell: the set of its
// still unknown neighbours and how many of them are mines. After each
// observation it marks cells that the sentences force to be safe or mines,
// derives new sentences by subset resolution and keeps the sentence list free
// of empty and duplicate entries. Every fact it records is entailed by the
// observations it was given.
//
// A KnowledgeBase is not safe for concurrent use.
package knowledge

import (
	"fmt"

	"github.com/tomasstrnad1997/minesbot/mines"
)

// MaxCount is the largest number of mines a cell can border.
const MaxCount = 8

type Option func(*KnowledgeBase)

// WithSaturation makes Update repeat subset resolution and harvesting until
// no new sentence can be derived. Without it a single resolution pass is run
// per Update and further conclusions surface on later updates.
func WithSaturation() Option {
	return func(kb *KnowledgeBase) {
		kb.saturate = true
	}
}

type Stats struct {
	Updates   int
	Derived   int
	Harvested int
}

type KnowledgeBase struct {
	height   int
	width    int
	saturate bool

	movesMade CellSet
	safes     CellSet
	mines     CellSet
	sentences []*Sentence

	stats Stats
}

func New(height, width int, opts ...Option) (*KnowledgeBase, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, height, width)
	}
	kb := &KnowledgeBase{
		height:    height,
		width:     width,
		movesMade: CellSet{},
		safes:     CellSet{},
		mines:     CellSet{},
	}
	for _, opt := range opts {
		opt(kb)
	}
	return kb, nil
}

func (kb *KnowledgeBase) Height() int { return kb.height }
func (kb *KnowledgeBase) Width() int  { return kb.width }

func (kb *KnowledgeBase) inBounds(c mines.Cell) bool {
	return c.Row >= 0 && c.Row < kb.height && c.Col >= 0 && c.Col < kb.width
}

// MarkMine records c as a mine and removes it from every sentence.
// It panics if c contradicts what is already known.
func (kb *KnowledgeBase) MarkMine(c mines.Cell) {
	if err := kb.markMine(c); err != nil {
		panic("knowledge: " + err.Error())
	}
}

// MarkSafe records c as safe and removes it from every sentence.
// It panics if c contradicts what is already known.
func (kb *KnowledgeBase) MarkSafe(c mines.Cell) {
	if err := kb.markSafe(c); err != nil {
		panic("knowledge: " + err.Error())
	}
}

// markMine checks every sentence holding c before changing any of them.
func (kb *KnowledgeBase) markMine(c mines.Cell) error {
	if kb.safes.Has(c) {
		return fmt.Errorf("%w: %s marked as mine but known safe", errConflict, c)
	}
	for _, s := range kb.sentences {
		if s.Has(c) && s.count == 0 {
			return fmt.Errorf("%w: %s marked as mine but %s has no mines left", errConflict, c, s)
		}
	}
	kb.mines.Add(c)
	for _, s := range kb.sentences {
		s.MarkMine(c)
	}
	return nil
}

func (kb *KnowledgeBase) markSafe(c mines.Cell) error {
	if kb.mines.Has(c) {
		return fmt.Errorf("%w: %s marked as safe but known mine", errConflict, c)
	}
	for _, s := range kb.sentences {
		if s.Has(c) && s.count == s.Len() {
			return fmt.Errorf("%w: %s marked as safe but %s needs every cell", errConflict, c, s)
		}
	}
	kb.safes.Add(c)
	for _, s := range kb.sentences {
		s.MarkSafe(c)
	}
	return nil
}

type snapshot struct {
	movesMade CellSet
	safes     CellSet
	mines     CellSet
	sentences []*Sentence
	stats     Stats
}

func (kb *KnowledgeBase) snapshot() snapshot {
	sentences := make([]*Sentence, len(kb.sentences))
	for i, s := range kb.sentences {
		sentences[i] = s.clone()
	}
	return snapshot{
		movesMade: kb.movesMade.Clone(),
		safes:     kb.safes.Clone(),
		mines:     kb.mines.Clone(),
		sentences: sentences,
		stats:     kb.stats,
	}
}

func (kb *KnowledgeBase) restore(snap snapshot) {
	kb.movesMade = snap.movesMade
	kb.safes = snap.safes
	kb.mines = snap.mines
	kb.sentences = snap.sentences
	kb.stats = snap.stats
}

// Update records that the revealed cell borders count mines and draws every
// conclusion the resulting knowledge allows.
//
// A cell that was already observed yields ErrDuplicateMove and a cell known
// to be a mine yields ErrKnownMine. Cells outside the grid and counts that no
// neighbourhood could produce are rejected before any state changes. A count
// that only turns out to contradict the knowledge during inference yields an
// InvalidCountError and the knowledge is rolled back to what it was before
// the call.
func (kb *KnowledgeBase) Update(cell mines.Cell, count int) error {
	if !kb.inBounds(cell) {
		return &CellOutOfBoundsError{cell, kb.height, kb.width}
	}
	if kb.movesMade.Has(cell) {
		return ErrDuplicateMove
	}
	if kb.mines.Has(cell) {
		return fmt.Errorf("%w: %s", ErrKnownMine, cell)
	}
	observed, err := kb.observation(cell, count)
	if err != nil {
		return err
	}

	snap := kb.snapshot()
	if err := kb.learn(cell, observed); err != nil {
		kb.restore(snap)
		return &InvalidCountError{cell, count, len(kb.unplayedNeighbours(cell)), err.Error()}
	}
	return nil
}

func (kb *KnowledgeBase) learn(cell mines.Cell, observed *Sentence) error {
	kb.stats.Updates++
	kb.movesMade.Add(cell)
	if err := kb.markSafe(cell); err != nil {
		return err
	}
	kb.sentences = append(kb.sentences, observed)
	if _, err := kb.apply(observed.KnownSafes(), observed.KnownMines()); err != nil {
		return err
	}
	for {
		derived, err := kb.resolve()
		if err != nil {
			return err
		}
		kb.normalize()
		if err := kb.harvest(); err != nil {
			return err
		}
		if !kb.saturate || derived == 0 {
			return nil
		}
	}
}

func (kb *KnowledgeBase) unplayedNeighbours(cell mines.Cell) CellSet {
	cells := CellSet{}
	for _, n := range cell.Neighbors(kb.height, kb.width) {
		if !kb.movesMade.Has(n) {
			cells.Add(n)
		}
	}
	return cells
}

// observation builds the sentence for a newly revealed cell. Facts already
// known about its neighbours are applied to it straight away.
func (kb *KnowledgeBase) observation(cell mines.Cell, count int) (*Sentence, error) {
	cells := kb.unplayedNeighbours(cell)
	if count < 0 || count > MaxCount || count > len(cells) {
		return nil, &InvalidCountError{cell, count, len(cells), "exceeds neighbourhood"}
	}
	knownMines := 0
	for c := range cells {
		switch {
		case kb.mines.Has(c):
			knownMines++
			delete(cells, c)
		case kb.safes.Has(c):
			delete(cells, c)
		}
	}
	if count < knownMines || count-knownMines > len(cells) {
		return nil, &InvalidCountError{cell, count, knownMines + len(cells),
			fmt.Sprintf("contradicts %d known mines", knownMines)}
	}
	return newSentence(cells, count-knownMines), nil
}

// apply marks the given facts. It returns how many of them were new.
func (kb *KnowledgeBase) apply(safeCells, mineCells CellSet) (int, error) {
	added := 0
	for _, c := range safeCells.Sorted() {
		if !kb.safes.Has(c) {
			added++
		}
		if err := kb.markSafe(c); err != nil {
			return added, err
		}
	}
	for _, c := range mineCells.Sorted() {
		if !kb.mines.Has(c) {
			added++
		}
		if err := kb.markMine(c); err != nil {
			return added, err
		}
	}
	return added, nil
}

// resolve runs one pass of subset resolution over the non-empty sentences
// held when it starts: for A ⊂ B it adds (B − A, B.count − A.count).
// It returns the number of sentences that were not already present.
func (kb *KnowledgeBase) resolve() (int, error) {
	snapshot := make([]*Sentence, 0, len(kb.sentences))
	seen := make(map[string]struct{}, len(kb.sentences))
	for _, s := range kb.sentences {
		seen[s.Key()] = struct{}{}
		if !s.Empty() {
			snapshot = append(snapshot, s)
		}
	}
	var derived []*Sentence
	for _, a := range snapshot {
		for _, b := range snapshot {
			if a == b || !a.cells.StrictSubsetOf(b.cells) {
				continue
			}
			diff, count := b.cells.Difference(a.cells), b.count-a.count
			if count < 0 || count > len(diff) {
				return 0, fmt.Errorf("%w: %s and %s disagree", errConflict, a, b)
			}
			d := newSentence(diff, count)
			key := d.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			derived = append(derived, d)
		}
	}
	kb.sentences = append(kb.sentences, derived...)
	kb.stats.Derived += len(derived)
	return len(derived), nil
}

// normalize drops empty sentences and keeps the first copy of each
// distinct sentence.
func (kb *KnowledgeBase) normalize() {
	kept := make([]*Sentence, 0, len(kb.sentences))
	seen := make(map[string]struct{}, len(kb.sentences))
	for _, s := range kb.sentences {
		if s.Empty() {
			continue
		}
		key := s.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, s)
	}
	kb.sentences = kept
}

// harvest marks the cells of every all-safe or all-mine sentence, then
// looks again since marking shrinks other sentences. Each round removes at
// least one cell from the sentence list, so the loop ends.
func (kb *KnowledgeBase) harvest() error {
	for {
		safeCells, mineCells := CellSet{}, CellSet{}
		for _, s := range kb.sentences {
			for c := range s.KnownSafes() {
				safeCells.Add(c)
			}
			for c := range s.KnownMines() {
				mineCells.Add(c)
			}
		}
		if len(safeCells)+len(mineCells) == 0 {
			return nil
		}
		added, err := kb.apply(safeCells, mineCells)
		kb.stats.Harvested += added
		if err != nil {
			return err
		}
		kb.normalize()
	}
}

// ResolveTotal uses the total number of mines on the board. When every mine
// is already known the remaining unknown cells are safe, and when the unknown
// cells are exactly as many as the mines still missing they are all mines.
// It reports whether any cell was resolved. A total that contradicts the
// knowledge yields an error and leaves the knowledge unchanged.
func (kb *KnowledgeBase) ResolveTotal(total int) (bool, error) {
	unknown := CellSet{}
	for r := 0; r < kb.height; r++ {
		for c := 0; c < kb.width; c++ {
			cell := mines.Cell{Row: r, Col: c}
			if !kb.movesMade.Has(cell) && !kb.safes.Has(cell) && !kb.mines.Has(cell) {
				unknown.Add(cell)
			}
		}
	}
	remaining := total - len(kb.mines)
	if remaining < 0 || remaining > len(unknown) {
		return false, fmt.Errorf("%w: %d mines in total, %d known and %d cells unknown",
			errConflict, total, len(kb.mines), len(unknown))
	}
	var safeCells, mineCells CellSet
	switch {
	case len(unknown) == 0:
		return false, nil
	case remaining == 0:
		safeCells = unknown
	case remaining == len(unknown):
		mineCells = unknown
	default:
		return false, nil
	}
	snap := kb.snapshot()
	added, err := kb.apply(safeCells, mineCells)
	kb.stats.Harvested += added
	if err == nil {
		kb.normalize()
		err = kb.harvest()
	}
	if err != nil {
		kb.restore(snap)
		return false, err
	}
	return true, nil
}

func (kb *KnowledgeBase) IsMine(c mines.Cell) bool { return kb.mines.Has(c) }
func (kb *KnowledgeBase) IsSafe(c mines.Cell) bool { return kb.safes.Has(c) }
func (kb *KnowledgeBase) Moved(c mines.Cell) bool  { return kb.movesMade.Has(c) }

// Mines returns the cells known to be mines in row-major order.
func (kb *KnowledgeBase) Mines() []mines.Cell { return kb.mines.Sorted() }

// Safes returns the cells known to be safe in row-major order.
func (kb *KnowledgeBase) Safes() []mines.Cell { return kb.safes.Sorted() }

// MovesMade returns the observed cells in row-major order.
func (kb *KnowledgeBase) MovesMade() []mines.Cell { return kb.movesMade.Sorted() }

func (kb *KnowledgeBase) MineCount() int { return len(kb.mines) }

// Sentences returns copies of the held sentences.
func (kb *KnowledgeBase) Sentences() []*Sentence {
	out := make([]*Sentence, len(kb.sentences))
	for i, s := range kb.sentences {
		out[i] = s.clone()
	}
	return out
}

func (kb *KnowledgeBase) Stats() Stats {
	return kb.stats
}
