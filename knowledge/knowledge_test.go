package knowledge_test

import (
	"errors"
	"testing"

	"github.com/tomasstrnad1997/minesbot/knowledge"
	"github.com/tomasstrnad1997/minesbot/mines"
)

func newKB(t *testing.T, height, width int, opts ...knowledge.Option) *knowledge.KnowledgeBase {
	t.Helper()
	kb, err := knowledge.New(height, width, opts...)
	if err != nil {
		t.Fatalf("Failed to create knowledge base: %v", err)
	}
	return kb
}

func resolveTotal(t *testing.T, kb *knowledge.KnowledgeBase, total int) bool {
	t.Helper()
	resolved, err := kb.ResolveTotal(total)
	if err != nil {
		t.Fatalf("ResolveTotal(%d) failed: %v", total, err)
	}
	return resolved
}

func update(t *testing.T, kb *knowledge.KnowledgeBase, cell mines.Cell, count int) {
	t.Helper()
	if err := kb.Update(cell, count); err != nil {
		t.Fatalf("Update %s = %d failed: %v", cell, count, err)
	}
}

func TestInvalidDimensions(t *testing.T) {
	_, err := knowledge.New(0, 3)
	if !errors.Is(err, knowledge.ErrInvalidDimensions) {
		t.Fatalf("Expected ErrInvalidDimensions, got: %v", err)
	}
}

func TestSingleNeighbourZeroIsSafe(t *testing.T) {
	kb := newKB(t, 1, 2)
	update(t, kb, cellA, 0)
	if !kb.IsSafe(cellB) {
		t.Fatalf("Only neighbour of a zero should be safe")
	}
	if len(kb.Sentences()) != 0 {
		t.Fatalf("Resolved sentences should be pruned, got %v", kb.Sentences())
	}
}

func TestFullNeighbourhoodIsMines(t *testing.T) {
	kb := newKB(t, 2, 2)
	update(t, kb, cellA, 3)
	for _, c := range []mines.Cell{cellB, cellD, cellE} {
		if !kb.IsMine(c) {
			t.Fatalf("%s should be a mine", c)
		}
	}
	if kb.IsMine(cellA) || !kb.IsSafe(cellA) {
		t.Fatalf("Observed cell must be safe")
	}
}

func TestSubsetResolution(t *testing.T) {
	kb := newKB(t, 2, 3)
	kb.AddSentence(knowledge.NewSentence([]mines.Cell{cellA, cellB, cellC}, 1))
	kb.AddSentence(knowledge.NewSentence([]mines.Cell{cellA, cellB}, 1))
	if err := kb.Infer(); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if !kb.IsSafe(cellC) {
		t.Fatalf("{A, B, C} = 1 and {A, B} = 1 should make C safe")
	}
	if kb.IsSafe(cellA) || kb.IsSafe(cellB) || kb.MineCount() != 0 {
		t.Fatalf("A and B must stay undetermined")
	}
	if kb.Stats().Derived != 1 {
		t.Fatalf("Expected one derived sentence, got %d", kb.Stats().Derived)
	}
}

func TestSubsetResolutionFromObservations(t *testing.T) {
	// Only (1, 0) is a mine.
	kb := newKB(t, 2, 3)
	update(t, kb, cellB, 1)
	update(t, kb, cellA, 1)
	if !kb.IsSafe(cellC) || !kb.IsSafe(cellF) {
		t.Fatalf("Expected (0, 2) and (1, 2) to be safe, safes: %v", kb.Safes())
	}
	if kb.IsMine(cellD) || kb.IsMine(cellE) {
		t.Fatalf("(1, 0) and (1, 1) are not determined yet")
	}
}

func TestMarkMineShrinksContainingSentences(t *testing.T) {
	kb := newKB(t, 2, 3)
	kb.AddSentence(knowledge.NewSentence([]mines.Cell{cellA, cellB, cellC}, 2))
	kb.AddSentence(knowledge.NewSentence([]mines.Cell{cellA, cellD}, 1))
	kb.AddSentence(knowledge.NewSentence([]mines.Cell{cellE, cellF}, 1))
	kb.MarkMine(cellA)
	got := kb.Sentences()
	want := []*knowledge.Sentence{
		knowledge.NewSentence([]mines.Cell{cellB, cellC}, 1),
		knowledge.NewSentence([]mines.Cell{cellD}, 0),
		knowledge.NewSentence([]mines.Cell{cellE, cellF}, 1),
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Fatalf("Sentence %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestMarkIdempotent(t *testing.T) {
	kb := newKB(t, 2, 3)
	kb.AddSentence(knowledge.NewSentence([]mines.Cell{cellA, cellB, cellC}, 2))
	kb.MarkMine(cellA)
	kb.MarkMine(cellA)
	kb.MarkSafe(cellB)
	kb.MarkSafe(cellB)
	s := kb.Sentences()[0]
	if s.Len() != 1 || s.Count() != 1 {
		t.Fatalf("Expected {C} = 1, got %s", s)
	}
	if len(kb.Mines()) != 1 || len(kb.Safes()) != 1 {
		t.Fatalf("Expected one mine and one safe, got %v %v", kb.Mines(), kb.Safes())
	}
}

func TestConflictingMarkPanics(t *testing.T) {
	kb := newKB(t, 1, 2)
	kb.MarkSafe(cellA)
	defer func() {
		if recover() == nil {
			t.Fatalf("Marking a safe cell as a mine should panic")
		}
	}()
	kb.MarkMine(cellA)
}

func TestDuplicateUpdateIsNoop(t *testing.T) {
	kb := newKB(t, 3, 3)
	update(t, kb, cellA, 1)
	before := kb.Sentences()
	safes, minesBefore, moves := kb.Safes(), kb.Mines(), kb.MovesMade()

	err := kb.Update(cellA, 1)
	if !errors.Is(err, knowledge.ErrDuplicateMove) {
		t.Fatalf("Expected ErrDuplicateMove, got: %v", err)
	}
	after := kb.Sentences()
	if len(after) != len(before) {
		t.Fatalf("Duplicate update changed sentences: %v -> %v", before, after)
	}
	for i := range before {
		if !before[i].Equal(after[i]) {
			t.Fatalf("Duplicate update changed sentence %d", i)
		}
	}
	if len(kb.Safes()) != len(safes) || len(kb.Mines()) != len(minesBefore) || len(kb.MovesMade()) != len(moves) {
		t.Fatalf("Duplicate update changed facts")
	}
	if kb.Stats().Updates != 1 {
		t.Fatalf("Duplicate update was counted")
	}
}

func TestInvalidCounts(t *testing.T) {
	kb := newKB(t, 3, 3)
	cases := []struct {
		cell  mines.Cell
		count int
	}{
		{cellA, -1},
		{cellE, 9},
		{cellA, 4},
	}
	for _, c := range cases {
		err := kb.Update(c.cell, c.count)
		var countErr *knowledge.InvalidCountError
		if !errors.As(err, &countErr) {
			t.Fatalf("Expected InvalidCountError for %s = %d, got: %v", c.cell, c.count, err)
		}
	}
	if len(kb.MovesMade()) != 0 || len(kb.Safes()) != 0 || len(kb.Sentences()) != 0 {
		t.Fatalf("Rejected updates must not change knowledge")
	}
}

func TestCountContradictingKnownMines(t *testing.T) {
	kb := newKB(t, 1, 3)
	update(t, kb, cellA, 1)
	if !kb.IsMine(cellB) {
		t.Fatalf("(0, 1) should be a mine")
	}
	err := kb.Update(cellC, 0)
	var countErr *knowledge.InvalidCountError
	if !errors.As(err, &countErr) {
		t.Fatalf("Expected InvalidCountError, got: %v", err)
	}
	if kb.Moved(cellC) {
		t.Fatalf("Rejected cell recorded as a move")
	}
}

func TestUpdateOutOfBounds(t *testing.T) {
	kb := newKB(t, 2, 2)
	err := kb.Update(mines.Cell{Row: 2, Col: 0}, 0)
	var boundsErr *knowledge.CellOutOfBoundsError
	if !errors.As(err, &boundsErr) {
		t.Fatalf("Expected CellOutOfBoundsError, got: %v", err)
	}
}

func TestKnownNeighboursAppliedToNewSentence(t *testing.T) {
	kb := newKB(t, 1, 4)
	kb.MarkMine(cellB)
	update(t, kb, cellC, 2)
	// (0, 2) borders (0, 1) and (0, 3); with (0, 1) known the rest is {(0, 3)} = 1.
	if !kb.IsMine(mines.Cell{Row: 0, Col: 3}) {
		t.Fatalf("(0, 3) should be a mine, knowledge: %v", kb.Sentences())
	}
}

func TestResolveTotalAllMines(t *testing.T) {
	kb := newKB(t, 1, 3)
	update(t, kb, cellA, 0)
	if !resolveTotal(t, kb, 1) {
		t.Fatalf("Expected the last unknown cell to be resolved")
	}
	if !kb.IsMine(cellC) {
		t.Fatalf("(0, 2) should be a mine")
	}
	if resolveTotal(t, kb, 1) {
		t.Fatalf("Nothing left to resolve")
	}
}

func TestResolveTotalAllSafe(t *testing.T) {
	kb := newKB(t, 2, 2)
	update(t, kb, cellA, 1)
	kb.MarkMine(cellB)
	if !resolveTotal(t, kb, 1) {
		t.Fatalf("Expected remaining cells to be resolved")
	}
	if !kb.IsSafe(cellD) || !kb.IsSafe(cellE) {
		t.Fatalf("Remaining cells should be safe, safes: %v", kb.Safes())
	}
	if resolveTotal(t, kb, 1) {
		t.Fatalf("No unknown cells remain")
	}
}

func TestResolveTotalUndetermined(t *testing.T) {
	kb := newKB(t, 2, 2)
	update(t, kb, cellA, 1)
	if resolveTotal(t, kb, 1) {
		t.Fatalf("One mine among three cells is not determined")
	}
}

func TestResolveTotalContradiction(t *testing.T) {
	kb := newKB(t, 2, 2)
	update(t, kb, cellA, 1)
	before := kb.Sentences()
	for _, total := range []int{0, 4} {
		if _, err := kb.ResolveTotal(total); err == nil {
			t.Fatalf("Expected an error for %d mines in total", total)
		}
	}
	if kb.MineCount() != 0 || len(kb.Safes()) != 1 || len(kb.Sentences()) != len(before) {
		t.Fatalf("Rejected total changed knowledge: safes %v, sentences %v", kb.Safes(), kb.Sentences())
	}
}

type knowledgeState struct {
	moves, safes, mines []mines.Cell
	sentences           []string
}

func stateOf(kb *knowledge.KnowledgeBase) knowledgeState {
	state := knowledgeState{moves: kb.MovesMade(), safes: kb.Safes(), mines: kb.Mines()}
	for _, s := range kb.Sentences() {
		state.sentences = append(state.sentences, s.Key())
	}
	return state
}

func sameCells(a, b []mines.Cell) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameState(a, b knowledgeState) bool {
	if !sameCells(a.moves, b.moves) || !sameCells(a.safes, b.safes) || !sameCells(a.mines, b.mines) {
		return false
	}
	if len(a.sentences) != len(b.sentences) {
		return false
	}
	for i := range a.sentences {
		if a.sentences[i] != b.sentences[i] {
			return false
		}
	}
	return true
}

func TestCountContradictingPendingSentence(t *testing.T) {
	// (0, 0) = 1 leaves {(1, 0), (1, 1)} = 1 once (0, 1) is safe, while
	// (0, 1) = 0 makes both of them safe.
	kb := newKB(t, 2, 3)
	update(t, kb, cellA, 1)
	before := stateOf(kb)
	stats := kb.Stats()

	err := kb.Update(cellB, 0)
	var countErr *knowledge.InvalidCountError
	if !errors.As(err, &countErr) {
		t.Fatalf("Expected InvalidCountError, got: %v", err)
	}
	if !sameState(before, stateOf(kb)) {
		t.Fatalf("Knowledge changed by rejected update: %+v, was %+v", stateOf(kb), before)
	}
	if kb.Stats() != stats {
		t.Fatalf("Stats changed by rejected update")
	}
	// The knowledge is still usable afterwards.
	update(t, kb, cellB, 1)
	if !kb.Moved(cellB) {
		t.Fatalf("Valid update after a rejected one was not recorded")
	}
}

func TestUpdateOnKnownMine(t *testing.T) {
	kb := newKB(t, 1, 3)
	update(t, kb, cellA, 1)
	before := stateOf(kb)
	if err := kb.Update(cellB, 0); !errors.Is(err, knowledge.ErrKnownMine) {
		t.Fatalf("Expected ErrKnownMine, got: %v", err)
	}
	if kb.Moved(cellB) || !sameState(before, stateOf(kb)) {
		t.Fatalf("Knowledge changed by rejected update")
	}
}
