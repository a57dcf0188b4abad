package engine

import "github.com/brackenfield/deepsquare/internal/board"

// deltaMargin is the quiescence delta-pruning margin added to the best
// possible capture gain before discarding a line as hopeless.
const deltaMargin = 200

// quiesce resolves captures (and check evasions, since inCheck positions
// must not stand pat) until the position is quiet.
// depth is always <= 0 on entry and is not read; seldepth is tracked
// from ply.
func (w *Worker) quiesce(ply int, alpha, beta int, depth int) int {
	if w.isStopping() {
		return 0
	}

	w.nodes++
	if ply > w.seldepth {
		w.seldepth = ply
	}

	if ply >= MaxPly-1 {
		return w.eval.Evaluate(w.pos)
	}

	inCheck := w.pos.InCheck()

	// Step 2: stand-pat, unless in check (a position in check cannot
	// simply stand on its static score; every evasion must be tried).
	var standPat int
	if !inCheck {
		standPat = w.eval.Evaluate(w.pos)
		if standPat >= beta {
			return standPat
		}
		if standPat > alpha {
			alpha = standPat
		}
	}

	// Step 3: TT probe, for move ordering only (no cutoff at qsearch,
	// since depths stored here are unreliable relative to each other).
	var hashMove board.Move
	if entry, ok := w.tt.Probe(w.pos.Hash); ok {
		hashMove = entry.Move
	}

	// Step 4/5: generate and order the moves to try. In check, every
	// legal evasion is a candidate; otherwise only captures/promotions.
	var moves *board.MoveList
	if inCheck {
		moves = w.pos.GenerateLegalMoves()
	} else {
		moves = w.pos.GenerateCaptures()
	}
	scores := w.orderer.ScoreMoves(w.pos, moves, ply, hashMove)
	SortMoves(moves, scores)

	best := standPat
	legalCount := 0

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)

		if !inCheck {
			// Step 6: bad-capture skip and delta pruning.
			if SEE(w.pos, m) < seeBadCaptureThreshold {
				continue
			}
			victim := w.pos.PieceAt(m.To())
			gain := PawnValue
			if victim != board.NoPiece {
				gain = pieceValues[victim.Type()]
			}
			// Delta pruning is unsafe once material thins out: a 200cp
			// margin that is generous in the middlegame can discard a
			// winning endgame line, so skip it near the endgame.
			if Progress(w.pos) != Endgame && standPat+gain+deltaMargin < alpha && !m.IsPromotion() {
				continue
			}
		}

		if w.incEval != nil {
			w.incEval.PushState()
		}
		undo := w.pos.MakeMove(m)
		if w.incEval != nil {
			w.incEval.UpdateState(w.pos, m, undo.CapturedPiece)
		}
		w.posHistory = append(w.posHistory, w.pos.Hash)
		legalCount++

		score := -w.quiesce(ply+1, -beta, -alpha, depth-1)
		w.posHistory = w.posHistory[:len(w.posHistory)-1]
		w.pos.UnmakeMove(m, undo)
		if w.incEval != nil {
			w.incEval.PopState()
		}

		if w.stop.Load() {
			return 0
		}

		if score > best {
			best = score
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			return alpha
		}
	}

	if inCheck && legalCount == 0 {
		return -(MateValue - ply)
	}

	return alpha
}
