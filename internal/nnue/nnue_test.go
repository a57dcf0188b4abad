package nnue

import (
	"testing"

	"github.com/brackenfield/deepsquare/internal/board"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	ev, err := NewEvaluator("")
	if err != nil {
		t.Fatalf("NewEvaluator(\"\"): %v", err)
	}
	return ev
}

// TestEvaluateMatchesFreshComputation checks that Evaluate on an
// evaluator whose accumulator has never been computed produces the same
// score as one explicitly refreshed first, since Evaluate is only
// allowed to trust a stale accumulator, never an unmarked one.
func TestEvaluateMatchesFreshComputation(t *testing.T) {
	pos := board.NewPosition()

	a := newTestEvaluator(t)
	b := newTestEvaluator(t)
	b.Refresh(pos)

	if got, want := a.Evaluate(pos), b.Evaluate(pos); got != want {
		t.Errorf("Evaluate() on an uncomputed accumulator = %d, want %d (matching an explicit Refresh)", got, want)
	}
}

// TestIncrementalUpdateMatchesFullRecompute checks the core incremental
// invariant: after Push/MakeMove/Update, Evaluate() on the incrementally
// maintained accumulator must equal a full recompute from the resulting
// position, across quiet, capture, castling, and (capturing) promotion
// moves — promotions being the case where the piece type at the
// originating square differs from the piece type added at the
// destination square.
func TestIncrementalUpdateMatchesFullRecompute(t *testing.T) {
	cases := []struct {
		name string
		fen  string
		uci  string
	}{
		{"quiet pawn push", board.StartFEN, "e2e4"},
		{"knight develop", board.StartFEN, "g1f3"},
		{"capture", "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2", "e4d5"},
		{"kingside castle", "rnbqk2r/pppp1ppp/5n2/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4", "e1g1"},
		{"queen promotion", "8/4P1k1/8/8/8/8/6K1/8 w - - 0 1", "e7e8q"},
		{"capturing promotion", "2n5/3P2k1/8/8/8/8/6K1/8 w - - 0 1", "d7c8q"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pos, err := board.ParseFEN(c.fen)
			if err != nil {
				t.Fatalf("ParseFEN(%q): %v", c.fen, err)
			}
			m, err := board.ParseMove(c.uci, pos)
			if err != nil {
				t.Fatalf("ParseMove(%q): %v", c.uci, err)
			}

			incremental := newTestEvaluator(t)
			incremental.Refresh(pos)
			incremental.Push()
			undo := pos.MakeMove(m)
			incremental.Update(pos, m, undo.CapturedPiece)

			fresh := newTestEvaluator(t)
			fresh.Refresh(pos)

			if got, want := incremental.Evaluate(pos), fresh.Evaluate(pos); got != want {
				t.Errorf("%s: incremental Evaluate() = %d, want %d (full recompute)", c.name, got, want)
			}

			pos.UnmakeMove(m, undo)
			incremental.Pop()
		})
	}
}

// TestPushPopRestoresParentAccumulator checks that Push/Pop round-trips
// the accumulator exactly: after Push, Update, and Pop, Evaluate()
// reverts to the pre-move score without needing a Refresh.
func TestPushPopRestoresParentAccumulator(t *testing.T) {
	pos := board.NewPosition()
	ev := newTestEvaluator(t)
	ev.Refresh(pos)
	before := ev.Evaluate(pos)

	m, err := board.ParseMove("e2e4", pos)
	if err != nil {
		t.Fatal(err)
	}

	ev.Push()
	undo := pos.MakeMove(m)
	ev.Update(pos, m, undo.CapturedPiece)
	_ = ev.Evaluate(pos)

	pos.UnmakeMove(m, undo)
	ev.Pop()

	if got := ev.Evaluate(pos); got != before {
		t.Errorf("Evaluate() after Push/Update/Pop round trip = %d, want %d", got, before)
	}
}

// TestKingMoveForcesFullRecomputeWithinUpdate checks that Update detects
// a king move on its own and falls back to a full accumulator rebuild,
// since every king-relative HalfKP feature is invalidated at once.
func TestKingMoveForcesFullRecomputeWithinUpdate(t *testing.T) {
	pos, err := board.ParseFEN("8/8/4k3/8/8/4K3/8/8 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m, err := board.ParseMove("e3d4", pos)
	if err != nil {
		t.Fatal(err)
	}

	incremental := newTestEvaluator(t)
	incremental.Refresh(pos)
	incremental.Push()
	undo := pos.MakeMove(m)
	incremental.Update(pos, m, undo.CapturedPiece)

	fresh := newTestEvaluator(t)
	fresh.Refresh(pos)

	if got, want := incremental.Evaluate(pos), fresh.Evaluate(pos); got != want {
		t.Errorf("Evaluate() after a king move = %d, want %d (full recompute)", got, want)
	}

	pos.UnmakeMove(m, undo)
	incremental.Pop()
}
