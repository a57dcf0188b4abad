package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/brackenfield/deepsquare/internal/board"
	"golang.org/x/sync/errgroup"
)

// SearchLimits is the dispatcher-facing form of a UCI "go" command.
type SearchLimits = UCILimits

// SearchInfo is the per-iteration bag reported to the UCI front-end.
type SearchInfo struct {
	Depth        int
	SelDepth     int
	MultiPVIndex int
	Score        int
	Nodes        uint64
	Time         time.Duration
	HashFull     int
	PV           []board.Move
}

// MateScore is the UCI-facing alias for the search core's mate anchor.
const MateScore = MateValue

// multiPVLine is one root candidate found at a given depth, tracked
// across iterative-deepening iterations so that every MultiPV slot
// advances through the same depths as the primary line rather than
// being filled in afterward at a single fixed depth.
type multiPVLine struct {
	move     board.Move
	score    int
	pv       []board.Move
	seldepth int
	nodes    uint64
}

// Engine is the root dispatcher: one search request at a time, fanned
// out across a pool of Lazy-SMP workers that share a single
// TranspositionTable.
type Engine struct {
	tt        *TranspositionTable
	pawnTable *PawnTable

	hce  HCEEvaluator
	nnue *NNUEEvaluator

	useNNUE     bool
	analyseMode bool
	threads     int
	multiPV     int

	stop atomic.Bool

	positionHistory []uint64

	tm *TimeManager

	// OnInfo is invoked once per completed iteration per PV line.
	OnInfo func(SearchInfo)
}

// NewEngine constructs an engine with its default configuration:
// Hash=64MB, Threads=1, MultiPV=1.
func NewEngine() *Engine {
	return &Engine{
		tt:        NewTranspositionTable(64),
		pawnTable: NewPawnTable(4),
		threads:   1,
		multiPV:   1,
		tm:        NewTimeManager(),
	}
}

// Clear empties the transposition table and pawn hash table, and resets
// the NNUE accumulator stack, used on ucinewgame.
func (e *Engine) Clear() {
	e.tt.Clear()
	e.pawnTable.Clear()
	if e.nnue != nil {
		e.nnue.Reset()
	}
}

// SetPositionHistory records the game's Zobrist history for repetition
// detection ahead of the next search.
func (e *Engine) SetPositionHistory(hashes []uint64) {
	e.positionHistory = append([]uint64(nil), hashes...)
}

// Stop requests that any in-progress search return as soon as possible.
func (e *Engine) Stop() {
	e.stop.Store(true)
}

// SetThreads configures the worker pool size for subsequent searches.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	e.threads = n
}

// SetMultiPV configures how many root lines are tracked and reported.
func (e *Engine) SetMultiPV(n int) {
	if n < 1 {
		n = 1
	}
	e.multiPV = n
}

// SetHashSizeMB resizes the transposition table.
func (e *Engine) SetHashSizeMB(mb int) {
	e.tt.Resize(mb)
}

// SetUseNNUE toggles whether the NNUE evaluator is consulted in place of
// the hand-crafted one.
func (e *Engine) SetUseNNUE(use bool) {
	e.useNNUE = use
}

// SetAnalyseMode toggles UCI_AnalyseMode: in analysis mode the
// dispatcher skips the stability/optimum-time early stop; the depth
// limit, the hard time limit and an explicit "stop" still end the search.
func (e *Engine) SetAnalyseMode(on bool) {
	e.analyseMode = on
}

// HasNNUE reports whether NNUE weights are currently loaded.
func (e *Engine) HasNNUE() bool {
	return e.nnue != nil
}

// LoadNNUE loads network weights from file for the NNUE evaluator.
func (e *Engine) LoadNNUE(file string) error {
	ev, err := NewNNUEEvaluator(file)
	if err != nil {
		return err
	}
	e.nnue = ev
	return nil
}

func (e *Engine) evaluator() Evaluator {
	if e.useNNUE && e.nnue != nil {
		return e.nnue
	}
	return e.hce.WithPawnTable(e.pawnTable)
}

// Perft counts leaf nodes at depth for move-generator validation, used
// by the UCI `perft` debug command.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	var total uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		total += e.Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return total
}

// SearchWithLimits runs one full iterative-deepening search to
// completion and returns the best move found. pos is owned by the
// caller; the engine only ever mutates its own per-worker clones.
func (e *Engine) SearchWithLimits(pos *board.Position, limits SearchLimits) board.Move {
	e.stop.Store(false)

	root := pos.Copy()
	rootMoves := root.GenerateLegalMoves()
	if rootMoves.Len() == 0 {
		return board.NoMove
	}
	if rootMoves.Len() == 1 {
		return rootMoves.Get(0)
	}

	ply := root.FullMoveNumber*2 - 2
	if root.SideToMove == board.Black {
		ply++
	}
	e.tm.Init(limits, root.SideToMove, ply)

	ctx, cancel := context.WithTimeout(context.Background(), e.tm.MaximumTime())
	defer cancel()

	maxDepth := limits.Depth
	if maxDepth <= 0 || maxDepth > MaxPly-1 {
		maxDepth = MaxPly - 1
	}

	ev := e.evaluator()

	g, gctx := errgroup.WithContext(ctx)

	// Helper Lazy-SMP workers: search silently, only feeding the shared TT.
	for id := 1; id < e.threads; id++ {
		id := id
		g.Go(func() error {
			helper := NewWorker(id, e.tt, ev, &e.stop)
			pos := root.Copy()
			helper.Prepare(pos, e.positionHistory)
			for d := 1; d <= maxDepth; d++ {
				if gctx.Err() != nil || e.stop.Load() {
					return nil
				}
				helper.Reset()
				helper.SearchDepth(d, d, -Infinity, Infinity, time.Now().Add(e.tm.MaximumTime()))
			}
			return nil
		})
	}

	// One worker per MultiPV slot, each with its own Position clone and
	// ordering tables; slot 0 is the unconstrained primary line. All
	// slots advance through the same depths in lockstep so that, unlike
	// a single deep primary search followed by shallow bolt-on lines,
	// every reported line reflects the iteration the engine actually
	// stopped at.
	lineWorkers := make([]*Worker, e.multiPV)
	lineWorkers[0] = NewWorker(0, e.tt, ev, &e.stop)
	lineWorkers[0].Prepare(root, e.positionHistory)
	for idx := 1; idx < e.multiPV; idx++ {
		w := NewWorker(100+idx, e.tt, ev, &e.stop)
		w.Prepare(root.Copy(), e.positionHistory)
		lineWorkers[idx] = w
	}

	var bestMove board.Move
	var bestScore int
	stability := 0
	changes := 0
	start := time.Now()
	depthLines := make([]multiPVLine, 0, e.multiPV)

	go func() {
		<-ctx.Done()
		e.stop.Store(true)
	}()

	for depth := 1; depth <= maxDepth; depth++ {
		if e.stop.Load() {
			break
		}

		depthLines = depthLines[:0]
		var excluded []board.Move
		stoppedMidDepth := false

		for idx := 0; idx < e.multiPV; idx++ {
			w := lineWorkers[idx]
			w.Reset()
			if idx > 0 {
				w.ExcludeRootMoves(excluded)
			}

			var alpha, beta int
			if idx > 0 || depth <= 1 || bestMove == board.NoMove {
				alpha, beta = -Infinity, Infinity
			} else {
				half := aspirationHalfWidth(depth)
				alpha = bestScore - half
				beta = bestScore + half
			}

			var score int
			for {
				deadline := time.Now().Add(e.tm.MaximumTime())
				score = w.SearchDepth(depth, depth, alpha, beta, deadline)
				if e.stop.Load() {
					break
				}
				if score <= alpha {
					alpha -= (beta - alpha)
					if alpha < -Infinity {
						alpha = -Infinity
					}
					continue
				}
				if score >= beta {
					beta += (beta - alpha)
					if beta > Infinity {
						beta = Infinity
					}
					continue
				}
				break
			}

			if e.stop.Load() {
				// Slot 0 stopping mid-iteration invalidates this whole
				// depth; a later slot stopping still leaves slot 0 (and
				// any earlier slots) usable.
				if idx == 0 {
					stoppedMidDepth = true
				}
				break
			}

			if score <= -Infinity {
				// Every remaining root move is already claimed by a
				// better-scoring line; no slot past this one exists.
				break
			}

			pv := extractPV(root, e.tt, w.Seldepth())
			if len(pv) == 0 {
				break
			}

			depthLines = append(depthLines, multiPVLine{
				move:     pv[0],
				score:    score,
				pv:       pv,
				seldepth: w.Seldepth(),
				nodes:    w.Nodes(),
			})
			excluded = append(excluded, pv[0])
		}

		if stoppedMidDepth && depth > 1 {
			break
		}
		if len(depthLines) == 0 {
			continue
		}

		newBest := depthLines[0].move
		if newBest == bestMove {
			stability++
		} else {
			stability = 0
			changes++
		}
		bestMove = newBest
		bestScore = depthLines[0].score

		if e.OnInfo != nil {
			for i, line := range depthLines {
				e.OnInfo(SearchInfo{
					Depth:        depth,
					SelDepth:     line.seldepth,
					MultiPVIndex: i + 1,
					Score:        line.score,
					Nodes:        line.nodes,
					Time:         time.Since(start),
					HashFull:     e.tt.HashFull(),
					PV:           line.pv,
				})
			}
		}

		if !e.analyseMode && !limits.Infinite && limits.Depth == 0 {
			e.tm.AdjustForStability(stability)
			e.tm.AdjustForInstability(changes)
			if e.tm.PastOptimum() {
				e.stop.Store(true)
			}
		}
	}

	e.stop.Store(true)
	_ = g.Wait()

	if bestMove == board.NoMove {
		return rootMoves.Get(0)
	}

	return bestMove
}

// extractPV walks the transposition table from root, replaying each
// stored best move while it remains legal, stopping on a miss, a null
// move, or after 1024 plies, and clipping the result to seldepth.
func extractPV(root *board.Position, tt *TranspositionTable, seldepth int) []board.Move {
	pos := root.Copy()
	limit := seldepth
	if limit <= 0 || limit > 1024 {
		limit = 1024
	}

	var pv []board.Move
	seen := make(map[uint64]bool)
	for len(pv) < limit {
		if seen[pos.Hash] {
			break
		}
		seen[pos.Hash] = true

		entry, ok := tt.Probe(pos.Hash)
		if !ok || entry.Move == board.NoMove {
			break
		}

		legal := pos.GenerateLegalMoves()
		found := false
		for i := 0; i < legal.Len(); i++ {
			if legal.Get(i) == entry.Move {
				found = true
				break
			}
		}
		if !found {
			break
		}

		pv = append(pv, entry.Move)
		pos.MakeMove(entry.Move)
	}
	return pv
}
