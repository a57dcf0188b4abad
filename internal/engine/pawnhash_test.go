package engine

import (
	"testing"

	"github.com/brackenfield/deepsquare/internal/board"
)

// TestPawnTableMatchesUncachedEvaluation checks that routing Evaluate's
// pawn-structure term through a PawnTable never changes the result,
// across both a cold probe (first visit) and a warm one (cache hit).
func TestPawnTableMatchesUncachedEvaluation(t *testing.T) {
	positions := []string{
		board.StartFEN,
		"rnbqkbnr/pp3ppp/2p5/3pp3/3PP3/2P5/PP3PPP/RNBQKBNR w KQkq - 0 4",
		"8/p1p2ppp/8/8/8/8/P1P2PPP/8 w - - 0 1",
	}

	pt := NewPawnTable(1)
	for _, fen := range positions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		want := Evaluate(pos)

		cold := EvaluateWithPawnTable(pos, pt)
		if cold != want {
			t.Errorf("%s: cold EvaluateWithPawnTable = %d, want %d", fen, cold, want)
		}
		warm := EvaluateWithPawnTable(pos, pt)
		if warm != want {
			t.Errorf("%s: warm EvaluateWithPawnTable = %d, want %d", fen, warm, want)
		}
	}
}

// TestPawnTableDistinguishesProgress checks that a stored entry serves
// the midgame and endgame variants separately rather than conflating
// them under one pawn key.
func TestPawnTableDistinguishesProgress(t *testing.T) {
	// A pawn skeleton with heavy non-pawn material (midgame) versus the
	// same skeleton with almost none (endgame) shares a PawnKey but must
	// not share a pawn-structure score, since evalPassedPawns/
	// evalIsolatedPawns scale their bonuses by GameProgress.
	midgameFEN := "rnbqkbnr/ppp2ppp/8/3pp3/3PP3/8/PPP2PPP/RNBQKBNR w KQkq - 0 3"
	endgameFEN := "4k3/ppp2ppp/8/3pp3/3PP3/8/PPP2PPP/4K3 w - - 0 1"

	mid, err := board.ParseFEN(midgameFEN)
	if err != nil {
		t.Fatal(err)
	}
	end, err := board.ParseFEN(endgameFEN)
	if err != nil {
		t.Fatal(err)
	}
	if mid.PawnKey != end.PawnKey {
		t.Fatalf("test positions must share a PawnKey: %#x != %#x", mid.PawnKey, end.PawnKey)
	}
	if Progress(mid) != Midgame || Progress(end) != Endgame {
		t.Fatalf("test positions must straddle the endgame threshold (got %v, %v)", Progress(mid), Progress(end))
	}

	pt := NewPawnTable(1)
	wantMid := pawnStructureScore(mid, Midgame)
	wantEnd := pawnStructureScore(end, Endgame)

	gotMid := cachedPawnStructureScore(mid, Midgame, pt)
	gotEnd := cachedPawnStructureScore(end, Endgame, pt)
	if gotMid != wantMid {
		t.Errorf("cached midgame pawn score = %d, want %d", gotMid, wantMid)
	}
	if gotEnd != wantEnd {
		t.Errorf("cached endgame pawn score = %d, want %d", gotEnd, wantEnd)
	}
}

// TestHCEEvaluatorZeroValueUncached checks that a bare HCEEvaluator{}
// (what every other test in this package constructs) evaluates
// identically to Evaluate, i.e. with no PawnTable attached.
func TestHCEEvaluatorZeroValueUncached(t *testing.T) {
	pos := board.NewPosition()
	var e HCEEvaluator
	if got, want := e.Evaluate(pos), Evaluate(pos); got != want {
		t.Errorf("zero-value HCEEvaluator.Evaluate() = %d, want %d", got, want)
	}
}
