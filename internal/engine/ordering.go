package engine

import (
	"sort"

	"github.com/brackenfield/deepsquare/internal/board"
)

// Move ordering priorities, highest first.
const (
	ttMoveScore      = 25000
	promoQueenScore  = 8000
	promoRookScore   = 7000
	promoBishopScore = 6000
	promoKnightScore = 5000
	enPassantScore   = 10
	killerScore      = 2
	castlingScore    = 1
	quietBase        = -30000
	badCaptureBase   = -30501
	historySaturation = 30000
)

// seeBadCaptureThreshold is the SEE cutoff between "good" and "bad"
// captures used both for ordering and quiescence pruning.
const seeBadCaptureThreshold = -100

// killerSlots is the width of the per-ply killer ring.
const killerSlots = 3

// MoveOrderer holds the worker-local killer and butterfly history
// tables used to score and sort moves ahead of search.
type MoveOrderer struct {
	killers [2][MaxPly][killerSlots]board.Move
	history [64][64]int32
}

// NewMoveOrderer creates an empty move orderer.
func NewMoveOrderer() *MoveOrderer {
	mo := &MoveOrderer{}
	mo.Clear()
	return mo
}

// Clear resets killers and history for a new game.
func (mo *MoveOrderer) Clear() {
	for c := range mo.killers {
		for ply := range mo.killers[c] {
			for i := range mo.killers[c][ply] {
				mo.killers[c][ply][i] = board.NoMove
			}
		}
	}
	for f := range mo.history {
		for t := range mo.history[f] {
			mo.history[f][t] = 0
		}
	}
}

// UpdateKiller pushes m into slot 0 of the ring for (side, ply), shifting
// the others down; a move already present is not duplicated.
func (mo *MoveOrderer) UpdateKiller(side board.Color, ply int, m board.Move) {
	if ply >= MaxPly {
		return
	}
	ring := &mo.killers[side][ply]
	if ring[0] == m {
		return
	}
	for i := 0; i < killerSlots; i++ {
		if ring[i] == m {
			copy(ring[1:i+1], ring[0:i])
			ring[0] = m
			return
		}
	}
	for i := killerSlots - 1; i > 0; i-- {
		ring[i] = ring[i-1]
	}
	ring[0] = m
}

func (mo *MoveOrderer) isKiller(side board.Color, ply int, m board.Move) bool {
	if ply >= MaxPly {
		return false
	}
	for _, k := range mo.killers[side][ply] {
		if k == m {
			return true
		}
	}
	return false
}

// UpdateHistory applies the depth-squared butterfly bonus on a
// beta-cutoff by a quiet move, saturating (and halving the whole table)
// once any entry reaches the cap.
func (mo *MoveOrderer) UpdateHistory(m board.Move, depth int) {
	from, to := m.From(), m.To()
	mo.history[from][to] += int32(depth * depth)
	if mo.history[from][to] >= historySaturation {
		for f := range mo.history {
			for t := range mo.history[f] {
				mo.history[f][t] >>= 1
			}
		}
	}
}

// ScoreMoves assigns a sort key to every move in moves.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves *board.MoveList, ply int, ttMove board.Move) []int {
	scores := make([]int, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		scores[i] = mo.scoreMove(pos, moves.Get(i), ply, ttMove)
	}
	return scores
}

func (mo *MoveOrderer) scoreMove(pos *board.Position, m board.Move, ply int, ttMove board.Move) int {
	if m == ttMove {
		return ttMoveScore
	}

	if m.IsEnPassant() {
		return enPassantScore
	}

	if m.IsCapture(pos) {
		attacker := pos.PieceAt(m.From()).Type()
		victim := pos.PieceAt(m.To()).Type()
		mvv := mvvLva(victim, attacker)
		if SEE(pos, m) >= seeBadCaptureThreshold || m.IsPromotion() {
			return mvv + 10
		}
		return mvv + badCaptureBase
	}

	if m.IsPromotion() {
		switch m.Promotion() {
		case board.Queen:
			return promoQueenScore
		case board.Rook:
			return promoRookScore
		case board.Bishop:
			return promoBishopScore
		default:
			return promoKnightScore
		}
	}

	if m.IsCastling() {
		return castlingScore
	}

	side := pos.SideToMove
	if mo.isKiller(side, ply, m) {
		return killerScore
	}

	return quietBase + int(mo.history[m.From()][m.To()])
}

// SortMoves orders moves descending by their ordering scores, in place.
// The TT move must land at index 0 when present — a stable descending
// sort of the assigned keys satisfies that directly, since ttMoveScore
// dominates every other key.
func SortMoves(moves *board.MoveList, scores []int) {
	idx := make([]int, moves.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	sorted := make([]board.Move, moves.Len())
	sortedScores := make([]int, moves.Len())
	for i, j := range idx {
		sorted[i] = moves.Get(j)
		sortedScores[i] = scores[j]
	}
	for i := 0; i < moves.Len(); i++ {
		moves.Set(i, sorted[i])
		scores[i] = sortedScores[i]
	}
}
