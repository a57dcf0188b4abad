package engine

import (
	"testing"

	"github.com/brackenfield/deepsquare/internal/board"
)

// TestTTMoveOrderedFirst checks the move-ordering monotonicity
// property: after sorting, the TT move (if present in the generated
// list) appears at index 0.
func TestTTMoveOrderedFirst(t *testing.T) {
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()
	if moves.Len() < 2 {
		t.Fatal("expected multiple legal moves from the starting position")
	}

	// Pick a move that is not naturally first (e.g. something generated
	// late) and pretend it's the TT hash move.
	ttMove := moves.Get(moves.Len() - 1)

	orderer := NewMoveOrderer()
	scores := orderer.ScoreMoves(pos, moves, 0, ttMove)
	SortMoves(moves, scores)

	if moves.Get(0) != ttMove {
		t.Errorf("TT move %v not ordered first, got %v at index 0", ttMove, moves.Get(0))
	}
}

// TestKillerBeatsGenericQuiet checks that a registered killer outranks
// an ordinary quiet move with no history.
func TestKillerBeatsGenericQuiet(t *testing.T) {
	pos := board.NewPosition()
	moves := pos.GenerateLegalMoves()

	var killer, other board.Move
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.IsCapture(pos) || m.IsPromotion() || m.IsCastling() {
			continue
		}
		if killer == board.NoMove {
			killer = m
		} else if other == board.NoMove && m != killer {
			other = m
		}
	}
	if killer == board.NoMove || other == board.NoMove {
		t.Fatal("could not find two distinct quiet moves to compare")
	}

	orderer := NewMoveOrderer()
	orderer.UpdateKiller(pos.SideToMove, 0, killer)

	killerScore := orderer.scoreMove(pos, killer, 0, board.NoMove)
	otherScore := orderer.scoreMove(pos, other, 0, board.NoMove)

	if killerScore <= otherScore {
		t.Errorf("killer score %d should exceed plain quiet score %d", killerScore, otherScore)
	}
}

// TestBadCaptureRanksBelowQuiets checks that bad captures rank below
// all quiets.
func TestBadCaptureRanksBelowQuiets(t *testing.T) {
	// A black queen on h4 can capture a white-pawn-defended knight on
	// e4, a terrible trade for Black.
	pos, err := board.ParseFEN("4k3/8/8/8/4N2q/3P4/8/4K3 b - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	moves := pos.GenerateLegalMoves()

	var badCapture, quiet board.Move
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.IsCapture(pos) {
			if SEE(pos, m) < seeBadCaptureThreshold {
				badCapture = m
			}
		} else if quiet == board.NoMove {
			quiet = m
		}
	}
	if badCapture == board.NoMove {
		t.Fatal("expected the queen-takes-defended-knight move to be a bad capture")
	}
	if quiet == board.NoMove {
		t.Fatal("expected at least one quiet move")
	}

	orderer := NewMoveOrderer()
	badScore := orderer.scoreMove(pos, badCapture, 0, board.NoMove)
	quietScore := orderer.scoreMove(pos, quiet, 0, board.NoMove)

	if badScore >= quietScore {
		t.Errorf("bad capture score %d should rank below quiet score %d", badScore, quietScore)
	}
}

func TestHistorySaturationHalvesTable(t *testing.T) {
	orderer := NewMoveOrderer()
	m := board.NewMove(board.E2, board.E4)

	// Push the counter to saturation with a single very deep cutoff.
	orderer.UpdateHistory(m, 200) // 200^2 = 40000 >= historySaturation
	if got := orderer.history[m.From()][m.To()]; got >= historySaturation {
		t.Errorf("history entry %d should have been halved once saturated", got)
	}
}
