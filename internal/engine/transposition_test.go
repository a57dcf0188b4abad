package engine

import (
	"testing"

	"github.com/brackenfield/deepsquare/internal/board"
)

// TestTTHashAgreement checks the TT hash-agreement property: a
// non-null probe result always carries the probed hash.
func TestTTHashAgreement(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xDEADBEEFCAFEBABE)

	if _, ok := tt.Probe(hash); ok {
		t.Fatal("expected a miss on an empty table")
	}

	tt.Store(hash, TTEntry{Score: 123, Depth: 4, Move: board.NewMove(board.E2, board.E4), Flag: TTExact})

	entry, ok := tt.Probe(hash)
	if !ok {
		t.Fatal("expected a hit after Store")
	}
	if entry.Score != 123 || entry.Depth != 4 || entry.Flag != TTExact {
		t.Errorf("round-tripped entry mismatch: %+v", entry)
	}
}

// TestTTCollisionIsTreatedAsMiss checks that a different hash mapping to
// the same slot is never returned as a false hit (the lockless-hashing
// contract of the lockless design).
func TestTTCollisionIsTreatedAsMiss(t *testing.T) {
	tt := NewTranspositionTable(1) // small table, so collisions are easy to force
	a := uint64(1)
	b := a + uint64(len(tt.slots)) // collides with a under hash & mask

	tt.Store(a, TTEntry{Score: 1, Depth: 1, Flag: TTExact})

	// A probe of a completely different hash that happens to land on the
	// same slot must either miss outright or, if it happens to match,
	// only because the checksum validated it (it should not here).
	if entry, ok := tt.Probe(b); ok {
		t.Errorf("probe of colliding hash %d unexpectedly hit with entry %+v", b, entry)
	}
}

// TestTTDepthPreferredReplacement checks that a new write overwrites
// iff new.depth >= existing.depth.
func TestTTDepthPreferredReplacement(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(42)

	tt.Store(hash, TTEntry{Score: 10, Depth: 8, Flag: TTExact})
	tt.Store(hash, TTEntry{Score: 20, Depth: 3, Flag: TTExact}) // shallower: rejected

	entry, ok := tt.Probe(hash)
	if !ok || entry.Score != 10 {
		t.Errorf("shallower write should not have replaced deeper entry, got %+v", entry)
	}

	tt.Store(hash, TTEntry{Score: 30, Depth: 8, Flag: TTExact}) // equal depth: accepted

	entry, ok = tt.Probe(hash)
	if !ok || entry.Score != 30 {
		t.Errorf("equal-depth write should replace, got %+v", entry)
	}
}

// TestMateScoreFolding checks the mate-score-folding property:
// storing a mate score at ply p and retrieving at ply q yields
// retrieved = stored + p - q.
func TestMateScoreFolding(t *testing.T) {
	const p, q = 3, 7
	mateScore := MateValue - 5

	stored := AdjustScoreToTT(mateScore, p)
	retrieved := AdjustScoreFromTT(stored, q)

	want := mateScore + p - q
	if retrieved != want {
		t.Errorf("mate score folding: got %d, want %d", retrieved, want)
	}
}

func TestMateScoreFoldingNegative(t *testing.T) {
	const p, q = 2, 9
	mateScore := -(MateValue - 5)

	stored := AdjustScoreToTT(mateScore, p)
	retrieved := AdjustScoreFromTT(stored, q)

	want := mateScore + p - q
	if retrieved != want {
		t.Errorf("mate score folding (negative): got %d, want %d", retrieved, want)
	}
}

func TestNonMateScoreUnaffectedByFolding(t *testing.T) {
	score := 150
	stored := AdjustScoreToTT(score, 5)
	if stored != score {
		t.Errorf("ordinary centipawn score should not be offset: got %d, want %d", stored, score)
	}
}

func TestTTClear(t *testing.T) {
	tt := NewTranspositionTable(1)
	tt.Store(7, TTEntry{Score: 1, Depth: 1, Flag: TTExact})
	tt.Clear()
	if _, ok := tt.Probe(7); ok {
		t.Error("expected miss after Clear")
	}
}
