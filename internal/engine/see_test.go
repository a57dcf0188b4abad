package engine

import (
	"testing"

	"github.com/brackenfield/deepsquare/internal/board"
)

func seeMove(t *testing.T, pos *board.Position, uci string) board.Move {
	t.Helper()
	m, err := board.ParseMove(uci, pos)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", uci, err)
	}
	return m
}

func TestSEEUndefendedKnight(t *testing.T) {
	// White pawn on e5, undefended black knight on d6: exd6 wins the
	// knight outright: see should equal value(knight).
	pos, err := board.ParseFEN("4k3/8/3n4/4P3/8/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m := seeMove(t, pos, "e5d6")
	if got := SEE(pos, m); got != KnightValue {
		t.Errorf("SEE(pawn takes undefended knight) = %d, want %d", got, KnightValue)
	}
}

func TestSEEQueenTakesPawnDefendedByPawn(t *testing.T) {
	// White queen takes a black pawn on d5 that is defended by a black
	// pawn on e6: the queen is lost after the recapture, so see
	// should equal value(pawn) - value(queen).
	pos, err := board.ParseFEN("4k3/8/4p3/3p4/3Q4/8/8/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m := seeMove(t, pos, "d4d5")
	want := PawnValue - QueenValue
	if got := SEE(pos, m); got != want {
		t.Errorf("SEE(queen takes defended pawn) = %d, want %d", got, want)
	}
}

// TestSEEKnightTakesPawnDefendedByPawn checks that the c3 knight
// capturing d5 gives back material once the e6 pawn recaptures, so SEE
// must not be positive.
func TestSEEKnightTakesPawnDefendedByPawn(t *testing.T) {
	pos, err := board.ParseFEN("rnbqkb1r/ppp2ppp/4pn2/3p4/8/2N5/PPPPPPPP/R1BQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	m := seeMove(t, pos, "c3d5")
	if got := SEE(pos, m); got > 0 {
		t.Errorf("SEE(c3d5) = %d, want <= 0", got)
	}
}

func TestSEENonCaptureIsZero(t *testing.T) {
	pos := board.NewPosition()
	m := seeMove(t, pos, "e2e4")
	if got := SEE(pos, m); got != 0 {
		t.Errorf("SEE(quiet move) = %d, want 0", got)
	}
}

func TestMVVLVAOrdering(t *testing.T) {
	// A queen capturing a queen should score higher than a pawn
	// capturing a knight, since the victim dominates the key.
	queenTakesQueen := mvvLva(board.Queen, board.Queen)
	pawnTakesKnight := mvvLva(board.Knight, board.Pawn)
	if queenTakesQueen <= pawnTakesKnight {
		t.Errorf("mvvLva(QxQ)=%d should exceed mvvLva(PxN)=%d", queenTakesQueen, pawnTakesKnight)
	}
}
