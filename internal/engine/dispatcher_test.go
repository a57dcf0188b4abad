package engine

import (
	"testing"
	"time"

	"github.com/brackenfield/deepsquare/internal/board"
)

// TestSearchStartposDepth1 checks that a depth-1 search from the
// starting position must produce some bestmove.
func TestSearchStartposDepth1(t *testing.T) {
	eng := NewEngine()
	pos := board.NewPosition()

	best := eng.SearchWithLimits(pos, UCILimits{Depth: 1})
	if best == board.NoMove {
		t.Fatal("expected a bestmove at depth 1 from the starting position")
	}

	legal := pos.GenerateLegalMoves()
	found := false
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i) == best {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("bestmove %v is not among the legal root moves", best)
	}
}

// TestSearchFindsMateInOne checks that a forced mate-in-one is found
// and reported with a mate score.
func TestSearchFindsMateInOne(t *testing.T) {
	pos, err := board.ParseFEN("6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	eng := NewEngine()
	var lastScore int
	eng.OnInfo = func(info SearchInfo) { lastScore = info.Score }

	best := eng.SearchWithLimits(pos, UCILimits{Depth: 2})
	if best.String() != "a1a8" {
		t.Errorf("bestmove = %v, want a1a8", best)
	}
	if lastScore < MateScore-256 {
		t.Errorf("final reported score %d does not read as mate in one", lastScore)
	}
}

// TestSearchAvoidsStalemate checks that the engine never plays into a
// stalemate when a mate exists instead.
func TestSearchAvoidsStalemate(t *testing.T) {
	pos, err := board.ParseFEN("7k/5Q2/6K1/8/8/8/8/8 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	eng := NewEngine()
	var lastScore int
	eng.OnInfo = func(info SearchInfo) { lastScore = info.Score }

	best := eng.SearchWithLimits(pos, UCILimits{Depth: 4})
	if best == board.NoMove {
		t.Fatal("expected a bestmove")
	}

	after := pos.Copy()
	after.MakeMove(best)
	if !after.HasLegalMoves() && !after.InCheck() {
		t.Errorf("bestmove %v stalemates the opponent", best)
	}
	if lastScore == 0 {
		t.Errorf("score should not be 0 when a mate-in-2 exists")
	}
}

// TestSearchRespectsMoveTime checks that a movetime budget is honored
// and the search returns promptly.
func TestSearchRespectsMoveTime(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine()

	infoCount := 0
	eng.OnInfo = func(SearchInfo) { infoCount++ }

	start := time.Now()
	best := eng.SearchWithLimits(pos, UCILimits{MoveTime: 100 * time.Millisecond})
	elapsed := time.Since(start)

	if best == board.NoMove {
		t.Fatal("expected a bestmove under a movetime budget")
	}
	if infoCount == 0 {
		t.Error("expected at least one info callback")
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("search under a 100ms movetime budget took %v", elapsed)
	}
}

// TestMultiPVLinesShareDepth checks that every MultiPV slot is reported
// at the same depth the primary line reached, with distinct moves
// across slots, rather than the primary line running deep and the
// secondary slots trailing at some fixed shallow depth of their own.
func TestMultiPVLinesShareDepth(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine()
	eng.SetMultiPV(2)

	depthByIndex := map[int]int{}
	var movesAtMaxDepth map[int]board.Move
	maxDepthSeen := 0

	eng.OnInfo = func(info SearchInfo) {
		depthByIndex[info.MultiPVIndex] = info.Depth
		if info.Depth > maxDepthSeen {
			maxDepthSeen = info.Depth
			movesAtMaxDepth = map[int]board.Move{}
		}
		if info.Depth == maxDepthSeen {
			if movesAtMaxDepth == nil {
				movesAtMaxDepth = map[int]board.Move{}
			}
			if len(info.PV) > 0 {
				movesAtMaxDepth[info.MultiPVIndex] = info.PV[0]
			}
		}
	}

	best := eng.SearchWithLimits(pos, UCILimits{Depth: 3})
	if best == board.NoMove {
		t.Fatal("expected a bestmove")
	}

	if depthByIndex[1] != depthByIndex[2] {
		t.Errorf("multipv slots reported at different depths: 1=%d 2=%d", depthByIndex[1], depthByIndex[2])
	}
	if m1, m2 := movesAtMaxDepth[1], movesAtMaxDepth[2]; m1 == board.NoMove || m2 == board.NoMove || m1 == m2 {
		t.Errorf("expected two distinct root moves at depth %d, got %v and %v", maxDepthSeen, m1, m2)
	}
}

// TestStopShortlyAfterInfiniteGo checks that stop shortly after an
// infinite search must return promptly.
func TestStopShortlyAfterInfiniteGo(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine()

	done := make(chan board.Move, 1)
	go func() {
		done <- eng.SearchWithLimits(pos, UCILimits{Infinite: true})
	}()

	time.Sleep(30 * time.Millisecond)
	eng.Stop()

	select {
	case best := <-done:
		if best == board.NoMove {
			t.Error("expected a bestmove after stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("search did not return within 2s of stop")
	}
}
