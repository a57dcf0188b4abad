package engine

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/brackenfield/deepsquare/internal/board"
)

// Search-wide constants: King value bounds the alpha/beta range; mate
// scores live in a band near ±King.
const (
	Infinity  = KingValue + 1000
	MateValue = KingValue
	MaxPly    = 128
)

// PVTable accumulates the principal variation discovered during one
// worker's search, indexed by ply.
type PVTable struct {
	length [MaxPly]int
	moves  [MaxPly][MaxPly]board.Move
}

// Line returns the PV starting at ply 0 as a slice, clipped to seldepth
// by the caller.
func (pv *PVTable) Line() []board.Move {
	out := make([]board.Move, pv.length[0])
	copy(out, pv.moves[0][:pv.length[0]])
	return out
}

func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][ply] = m
	for j := ply + 1; j < pv.length[ply+1]; j++ {
		pv.moves[ply][j] = pv.moves[ply+1][j]
	}
	pv.length[ply] = pv.length[ply+1]
}

// nullState tracks whether null move is allowed: a null move cannot be
// played on two consecutive plies.
type nullState struct {
	forbidden bool
}

// Worker performs one search (a single request's worth of iterative
// deepening) over its own cloned Position, sharing only the
// TranspositionTable with its siblings. Killer and
// history tables are worker-local.
type Worker struct {
	id  int
	pos *board.Position
	tt  *TranspositionTable
	eval Evaluator

	// incEval is eval under its IncrementalEvaluator contract, set
	// whenever eval implements it (NNUE does; the hand-crafted
	// evaluator has no state to carry and does not). Push/Pop/Update
	// are paired with every MakeMove/UnmakeMove in negamax and
	// quiesce so eval's accumulator tracks w.pos incrementally instead
	// of every Evaluate call rebuilding it from scratch.
	incEval IncrementalEvaluator

	orderer *MoveOrderer

	nodes    uint64
	nodeTick uint64
	pv       PVTable
	seldepth int

	startingDepth int
	startTime     time.Time
	budget        time.Duration
	stop          *atomic.Bool
	nullState     nullState

	undoStack [MaxPly]board.UndoInfo

	// posHistory holds Zobrist hashes from the start of the game (or the
	// last irreversible move) through the current search node, used for
	// repetition detection: a three-fold repetition at the root evaluates
	// to 0.
	posHistory []uint64

	// excludedRoot holds root moves skipped for this search, used to
	// produce additional MultiPV lines once the primary line is known.
	excludedRoot map[board.Move]bool
}

// ExcludeRootMoves marks moves to be skipped at the root only, for
// MultiPV's secondary-line passes.
func (w *Worker) ExcludeRootMoves(moves []board.Move) {
	w.excludedRoot = make(map[board.Move]bool, len(moves))
	for _, m := range moves {
		w.excludedRoot[m] = true
	}
}

// NewWorker creates a worker sharing tt and ev, with its own ordering
// tables.
func NewWorker(id int, tt *TranspositionTable, ev Evaluator, stop *atomic.Bool) *Worker {
	w := &Worker{
		id:      id,
		tt:      tt,
		eval:    ev,
		orderer: NewMoveOrderer(),
		stop:    stop,
	}
	w.incEval, _ = ev.(IncrementalEvaluator)
	return w
}

// Reset clears per-search counters ahead of a new SearchRequest.
func (w *Worker) Reset() {
	w.nodes = 0
	w.nodeTick = 0
	w.seldepth = 0
	w.orderer.Clear()
}

// Prepare points the worker at a position (the caller's own clone) and
// root game history for repetition detection, ahead of iterative
// deepening.
func (w *Worker) Prepare(pos *board.Position, gameHistory []uint64) {
	w.pos = pos
	w.posHistory = append(w.posHistory[:0], gameHistory...)
	w.posHistory = append(w.posHistory, pos.Hash)
	if w.incEval != nil {
		w.incEval.RefreshState(pos)
	}
}

// Nodes returns the node count accumulated so far.
func (w *Worker) Nodes() uint64 { return w.nodes }

// Seldepth returns the maximum ply reached this search.
func (w *Worker) Seldepth() int { return w.seldepth }

// SearchDepth runs one iterative-deepening iteration at depth within
// [alpha, beta] (an aspiration window, or (-Infinity, Infinity) for the
// first iteration) and returns the root score. This is the entry point
// the root dispatcher calls once per depth.
func (w *Worker) SearchDepth(depth, startingDepth int, alpha, beta int, deadline time.Time) int {
	w.startingDepth = startingDepth
	w.startTime = time.Now()
	w.budget = time.Until(deadline)
	w.nullState = nullState{}
	return w.negamax(depth, 0, alpha, beta)
}

// isStopping reports whether the search should abandon the current
// node: only honored once the iteration has exceeded depth 1, so a
// depth-1 result is always usable as a fallback.
func (w *Worker) isStopping() bool {
	if w.startingDepth <= 1 {
		return false
	}
	if w.stop.Load() {
		return true
	}
	w.nodeTick++
	if w.nodeTick&1023 == 0 && time.Since(w.startTime) > w.budget {
		w.stop.Store(true)
		return true
	}
	return false
}

func (w *Worker) isDraw(ply int) bool {
	if w.pos.HalfMoveClock >= 100 {
		return true
	}
	if w.pos.IsInsufficientMaterial() {
		return true
	}
	count := 0
	h := w.pos.Hash
	for _, past := range w.posHistory {
		if past == h {
			count++
		}
	}
	return count >= 3
}

// negamax is the alpha-beta / PVS search core.
func (w *Worker) negamax(depth, ply int, alpha, beta int) int {
	if w.isStopping() {
		return 0
	}

	w.nodes++
	if ply > w.seldepth {
		w.seldepth = ply
	}
	w.pv.length[ply] = ply

	if ply >= MaxPly-1 {
		return w.eval.Evaluate(w.pos)
	}

	mateValue := MateValue - ply

	// Step 2: terminal check. Draw conditions are checked even at the
	// search root: a three-fold repetition at the root evaluates to 0
	// regardless of material. The no-legal-moves check is only
	// meaningful for ply > 0 since SearchWithLimits already filters a
	// mated/stalemated root before any call reaches here.
	if w.isDraw(ply) {
		return 0
	}
	if ply > 0 && !w.pos.HasLegalMoves() {
		if w.pos.InCheck() {
			return -mateValue
		}
		return 0
	}

	// Step 3: mate-distance pruning.
	if -mateValue > alpha {
		alpha = -mateValue
	}
	if mateValue-1 < beta {
		beta = mateValue - 1
	}
	if alpha >= beta {
		return alpha
	}

	inCheck := w.pos.InCheck()

	// Step 4: check extension.
	if inCheck {
		depth++
	}

	// Step 5: TT probe.
	var hashMove board.Move
	if entry, ok := w.tt.Probe(w.pos.Hash); ok {
		hashMove = entry.Move
		if int(entry.Depth) >= depth {
			score := AdjustScoreFromTT(int(entry.Score), ply)
			switch entry.Flag {
			case TTExact:
				return score
			case TTLower:
				if score > alpha {
					alpha = score
				}
			case TTUpper:
				if score < beta {
					beta = score
				}
			}
			if alpha >= beta {
				return score
			}
		}
	}

	// Step 6: leaf handoff.
	if depth <= 0 {
		return w.quiesce(ply, alpha, beta, depth-1)
	}

	// Step 7: static evaluation.
	staticEval := w.eval.Evaluate(w.pos)

	isPV := beta-alpha > 1

	// Step 8: reverse futility pruning.
	if !isPV && !inCheck && depth <= 8 && staticEval-120*depth >= beta {
		return staticEval
	}

	// Step 9: null-move pruning.
	if !isPV && !inCheck && !w.nullState.forbidden && depth >= 2 &&
		staticEval >= beta && w.pos.HasNonPawnMaterial() {
		reduction := 3 + (depth-2)/4
		nullDepth := depth - 1 - reduction
		if w.incEval != nil {
			w.incEval.PushState()
		}
		undo := w.pos.MakeNullMove()
		w.nullState.forbidden = true
		score := -w.negamax(nullDepth, ply+1, -beta, -beta+1)
		w.nullState.forbidden = false
		w.pos.UnmakeNullMove(undo)
		if w.incEval != nil {
			w.incEval.PopState()
		}
		if score >= beta {
			return beta
		}
	}

	// Step 10: generate and order moves.
	moves := w.pos.GenerateLegalMoves()
	scores := w.orderer.ScoreMoves(w.pos, moves, ply, hashMove)
	SortMoves(moves, scores)

	lmrIndex := int(math.Round(6/(1+math.Exp(float64(w.startingDepth)/4)))) + 3

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpper
	legalCount := 0

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if ply == 0 && w.excludedRoot[m] {
			continue
		}
		quiet := !m.IsCapture(w.pos) && !m.IsPromotion()

		if w.incEval != nil {
			w.incEval.PushState()
		}
		w.undoStack[ply] = w.pos.MakeMove(m)
		if w.incEval != nil {
			w.incEval.UpdateState(w.pos, m, w.undoStack[ply].CapturedPiece)
		}
		w.posHistory = append(w.posHistory, w.pos.Hash)
		legalCount++

		// Step 11a: late-move reduction.
		newDepth := depth - 1
		score := 0
		searched := false
		if i > lmrIndex && depth >= 2 && moves.Len() > 1 && quiet {
			reduction := int(math.Round(math.Log(float64(i-lmrIndex+1)) * math.Log(float64(depth))))
			reducedDepth := newDepth - reduction
			if reducedDepth < 0 {
				reducedDepth = 0
			}
			score = -w.negamax(reducedDepth, ply+1, -alpha-1, -alpha)
			searched = score > alpha
			if !searched {
				// Failed low at reduced depth: accept as the move's score.
				w.posHistory = w.posHistory[:len(w.posHistory)-1]
				w.pos.UnmakeMove(m, w.undoStack[ply])
				if w.incEval != nil {
					w.incEval.PopState()
				}
				if score > bestScore {
					bestScore = score
					bestMove = m
				}
				continue
			}
		}

		// Step 11b: principal variation search.
		if i == 0 || m == hashMove {
			score = -w.negamax(newDepth, ply+1, -beta, -alpha)
		} else {
			score = -w.negamax(newDepth, ply+1, -alpha-1, -alpha)
			if score > alpha && score < beta {
				score = -w.negamax(newDepth, ply+1, -beta, -alpha)
			}
		}
		_ = searched

		w.posHistory = w.posHistory[:len(w.posHistory)-1]
		w.pos.UnmakeMove(m, w.undoStack[ply])
		if w.incEval != nil {
			w.incEval.PopState()
		}

		if w.stop.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
		}

		// Step 11c: cutoff handling.
		if score >= beta {
			if quiet {
				w.orderer.UpdateKiller(w.pos.SideToMove, ply, m)
				w.orderer.UpdateHistory(m, depth)
			}
			flag = TTLower
			alpha = beta
			break
		}

		// PV update.
		if score > alpha {
			alpha = score
			flag = TTExact
			w.pv.update(ply, m)
		}
	}

	if legalCount == 0 {
		if ply == 0 && len(w.excludedRoot) > 0 {
			// Every root move was excluded for this MultiPV pass; there is
			// no line left to report.
			return -Infinity
		}
		// Defensive fallback for an internal inconsistency. The terminal check
		// should already have caught this via HasLegalMoves.
		if inCheck {
			return -mateValue
		}
		return 0
	}

	// Step 12: TT store.
	if !w.isStopping() {
		w.tt.Store(w.pos.Hash, TTEntry{
			Score: int32(AdjustScoreToTT(bestScore, ply)),
			Depth: int16(depth),
			Move:  bestMove,
			Flag:  flag,
		})
	}

	return alpha
}
