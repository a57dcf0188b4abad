package engine

import (
	"fmt"

	"github.com/brackenfield/deepsquare/internal/board"
	"github.com/brackenfield/deepsquare/internal/nnue"
)

// Evaluator is the position-scoring collaborator the search core depends
// on. Evaluate always returns a centipawn score from the perspective of
// the side to move. HCEEvaluator and NNUEEvaluator are the two
// implementations UseNNUE chooses between.
type Evaluator interface {
	Evaluate(pos *board.Position) int
}

// IncrementalEvaluator is implemented by evaluators that maintain state
// across the search tree rather than recomputing from scratch on every
// Evaluate call. The search core pairs PushState/PopState exactly with
// MakeMove/UnmakeMove, and UpdateState/RefreshState exactly once per
// move made, so an implementation may assume that pairing when deciding
// what it can update incrementally versus what it must rebuild.
type IncrementalEvaluator interface {
	Evaluator

	// PushState saves accumulator state ahead of a move, called
	// immediately before MakeMove.
	PushState()

	// PopState restores the accumulator saved by the matching
	// PushState, called immediately after UnmakeMove.
	PopState()

	// UpdateState brings the accumulator up to date with pos after m
	// has just been applied (pos already reflects m; captured is the
	// piece m removed, or board.NoPiece). Callers that cannot maintain
	// exact MakeMove/UpdateState pairing (aborted branches, a position
	// mutated by other means) must call RefreshState instead before
	// the next Evaluate.
	UpdateState(pos *board.Position, m board.Move, captured board.Piece)

	// RefreshState forces a full recomputation of the accumulator from
	// pos, used once per new root position and whenever UpdateState
	// cannot apply (a king move invalidates every king-relative
	// feature).
	RefreshState(pos *board.Position)
}

// HCEEvaluator is the hand-crafted evaluator. Its zero value (no
// PawnTable attached) evaluates pawn structure uncached, which is what
// every test construction (HCEEvaluator{}) gets; the dispatcher attaches
// a shared table via WithPawnTable.
type HCEEvaluator struct {
	pawnTable *PawnTable
}

// WithPawnTable returns a copy of e that caches pawn-structure terms
// through pt.
func (e HCEEvaluator) WithPawnTable(pt *PawnTable) HCEEvaluator {
	e.pawnTable = pt
	return e
}

func (e HCEEvaluator) Evaluate(pos *board.Position) int {
	return EvaluateWithPawnTable(pos, e.pawnTable)
}

// NNUEEvaluator wraps the HalfKP network collaborator in internal/nnue.
// It has no fallback of its own: Engine uses the hand-crafted evaluator
// whenever no NNUEEvaluator has been loaded (UseNNUE on but EvalFile
// unset or unreadable).
type NNUEEvaluator struct {
	net *nnue.Evaluator
}

// NewNNUEEvaluator loads weights from file. An empty file uses
// randomly-initialized weights, matching internal/nnue's own test-only
// fallback; callers that want the HCE fallback instead should check
// file != "" themselves before constructing one.
func NewNNUEEvaluator(file string) (*NNUEEvaluator, error) {
	ev, err := nnue.NewEvaluator(file)
	if err != nil {
		return nil, fmt.Errorf("load nnue weights %q: %w", file, err)
	}
	return &NNUEEvaluator{net: ev}, nil
}

func (n *NNUEEvaluator) Evaluate(pos *board.Position) int {
	return n.net.Evaluate(pos)
}

// Refresh forces the underlying accumulator to recompute from scratch.
// The worker does the same through RefreshState for a new root position.
func (n *NNUEEvaluator) Refresh(pos *board.Position) {
	n.net.Refresh(pos)
}

// PushState implements IncrementalEvaluator.
func (n *NNUEEvaluator) PushState() { n.net.Push() }

// PopState implements IncrementalEvaluator.
func (n *NNUEEvaluator) PopState() { n.net.Pop() }

// UpdateState implements IncrementalEvaluator, falling back to a full
// refresh whenever pos reports that the move just applied relocated a
// king (pos.KingMoved), since every king-relative HalfKP feature is
// invalidated at once in that case.
func (n *NNUEEvaluator) UpdateState(pos *board.Position, m board.Move, captured board.Piece) {
	if pos.KingMoved {
		n.net.Refresh(pos)
		return
	}
	n.net.Update(pos, m, captured)
}

// RefreshState implements IncrementalEvaluator.
func (n *NNUEEvaluator) RefreshState(pos *board.Position) { n.net.Refresh(pos) }

// Reset drops the NNUE accumulator stack back to an empty root state,
// called on ucinewgame so a stale incremental chain from the previous
// game can never leak into the next search.
func (n *NNUEEvaluator) Reset() { n.net.Reset() }
