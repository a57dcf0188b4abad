package engine

import (
	"strings"
	"testing"

	"github.com/brackenfield/deepsquare/internal/board"
)

// mirrorFEN swaps the color of every piece and flips the board vertically,
// producing the FEN of the color-reversed mirror position used to check
// evaluator symmetry: eval(pos) == -eval(mirrored) up to terms that are
// side-asymmetric by design.
func mirrorFEN(fen string) string {
	fields := strings.Fields(fen)
	ranks := strings.Split(fields[0], "/")

	mirrored := make([]string, len(ranks))
	for i, r := range ranks {
		var sb strings.Builder
		for _, ch := range r {
			switch {
			case ch >= 'a' && ch <= 'z':
				sb.WriteRune(ch - 'a' + 'A')
			case ch >= 'A' && ch <= 'Z':
				sb.WriteRune(ch - 'A' + 'a')
			default:
				sb.WriteRune(ch)
			}
		}
		mirrored[len(ranks)-1-i] = sb.String()
	}
	placement := strings.Join(mirrored, "/")

	stm := "b"
	if fields[1] == "b" {
		stm = "w"
	}

	var castling strings.Builder
	for _, ch := range fields[2] {
		switch ch {
		case 'K':
			castling.WriteByte('k')
		case 'Q':
			castling.WriteByte('q')
		case 'k':
			castling.WriteByte('K')
		case 'q':
			castling.WriteByte('Q')
		default:
			castling.WriteRune(ch)
		}
	}

	ep := fields[3]
	if ep != "-" {
		file := ep[0:1]
		rank := ep[1] - '0'
		ep = file + string(rune('0'+(9-rank)))
	}

	return placement + " " + stm + " " + castling.String() + " " + ep + " " + fields[4] + " " + fields[5]
}

// tempoFreeEval strips term 2 (White-only tempo) so the remaining terms
// can be checked for exact antisymmetry.
func tempoFreeEval(pos *board.Position) int {
	score := Evaluate(pos)
	if Progress(pos) == Midgame {
		if pos.SideToMove == board.White {
			score -= 15
		} else {
			score += 15
		}
	}
	return score
}

func TestEvaluatorSymmetry(t *testing.T) {
	positions := []string{
		board.StartFEN,
		"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 3 3",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1",
	}

	for _, fen := range positions {
		pos, err := board.ParseFEN(fen)
		if err != nil {
			t.Fatalf("ParseFEN(%q): %v", fen, err)
		}
		mirror, err := board.ParseFEN(mirrorFEN(fen))
		if err != nil {
			t.Fatalf("ParseFEN(mirrorFEN(%q)): %v", fen, err)
		}

		got := tempoFreeEval(pos)
		want := -tempoFreeEval(mirror)
		if got != want {
			t.Errorf("%q: tempo-free eval not antisymmetric: eval(pos)=%d, -eval(mirror)=%d", fen, got, want)
		}
	}
}

func TestGameProgressThreshold(t *testing.T) {
	endgame, err := board.ParseFEN("8/8/4k3/8/8/4K3/4P3/8 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if Progress(endgame) != Endgame {
		t.Error("bare kings plus a pawn should classify as Endgame")
	}

	midgame := board.NewPosition()
	if Progress(midgame) != Midgame {
		t.Error("starting position should classify as Midgame")
	}
}

func TestCheckStatusTerm(t *testing.T) {
	// Same material and king placement, differing only by whether Black
	// (to move) is in check: term 12 must cost the checked side exactly
	// 20 relative to the otherwise-identical quiet position.
	quiet, err := board.ParseFEN("6k1/8/6K1/5Q2/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	checked, err := board.ParseFEN("6k1/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	if quiet.InCheck() {
		t.Skip("quiet position unexpectedly in check")
	}
	if !checked.InCheck() {
		t.Skip("checked position not constructed in check")
	}

	diff := Evaluate(quiet) - Evaluate(checked)
	if diff != 20 {
		t.Errorf("check-status term: quiet - checked = %d, want 20", diff)
	}
}
