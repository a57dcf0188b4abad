package engine

import (
	"github.com/brackenfield/deepsquare/internal/board"
)

// Piece values in centipawns. The king value anchors the alpha/beta
// range and the mate-score band (see MateValue in worker.go).
const (
	PawnValue   = 100
	KnightValue = 300
	BishopValue = 305
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [6]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue}

// nonPawnMaterialEndgameThreshold is the per-side non-pawn material at or
// below which the game is scored as an Endgame.
const nonPawnMaterialEndgameThreshold = 1300

// GameProgress distinguishes middlegame from endgame scoring.
type GameProgress int

const (
	Midgame GameProgress = iota
	Endgame
)

// nonPawnMaterial sums the centipawn value of every piece except pawns
// and the king for one side.
func nonPawnMaterial(pos *board.Position, c board.Color) int {
	total := 0
	for pt := board.Knight; pt <= board.Queen; pt++ {
		total += pos.Pieces[c][pt].PopCount() * pieceValues[pt]
	}
	return total
}

// Progress classifies the position: both sides at or below the
// threshold means Endgame, otherwise Midgame.
func Progress(pos *board.Position) GameProgress {
	if nonPawnMaterial(pos, board.White) <= nonPawnMaterialEndgameThreshold &&
		nonPawnMaterial(pos, board.Black) <= nonPawnMaterialEndgameThreshold {
		return Endgame
	}
	return Midgame
}

var centerSquares = [4]board.Square{
	board.NewSquare(3, 3), // d4
	board.NewSquare(3, 4), // d5
	board.NewSquare(4, 3), // e4
	board.NewSquare(4, 4), // e5
}

// kingCornerTable rewards the king for sitting near a corner; penalty
// grows with Euclidean distance from the nearest corner. Applied only
// in the midgame; endgame king activity comes from the passed-pawn
// terms instead.
var kingCornerTable [64]int

func init() {
	corners := [4][2]int{{0, 0}, {7, 0}, {0, 7}, {7, 7}}
	for sq := 0; sq < 64; sq++ {
		f, r := sq%8, sq/8
		best := 1 << 30
		for _, c := range corners {
			df, dr := f-c[0], r-c[1]
			d2 := df*df + dr*dr
			if d2 < best {
				best = d2
			}
		}
		// Scale so the corner itself scores 0 and the center (worst case,
		// d^2 ~ 18) costs about a quarter of a pawn (-23).
		kingCornerTable[sq] = -int(5.5 * isqrt(best))
	}
}

func isqrt(n int) float64 {
	x := float64(n)
	if x <= 0 {
		return 0
	}
	// Newton's method, a handful of iterations is plenty for n < 64.
	g := x
	for i := 0; i < 8; i++ {
		g = 0.5 * (g + x/g)
	}
	return g
}

// pawnStructureScore sums the three pawn-layout-only terms (doubled,
// passed, isolated pawns) from White's perspective for the given
// progress. It depends on nothing but the pawn bitboards and progress,
// which is exactly what Position.PawnKey identifies, making it the unit
// cached by PawnTable.
func pawnStructureScore(pos *board.Position, progress GameProgress) int {
	score := 0
	score += evalDoubledPawns(pos, board.White) - evalDoubledPawns(pos, board.Black)
	score += evalPassedPawns(pos, progress, board.White) - evalPassedPawns(pos, progress, board.Black)
	score += evalIsolatedPawns(pos, progress, board.White) - evalIsolatedPawns(pos, progress, board.Black)
	return score
}

// cachedPawnStructureScore is pawnStructureScore backed by a PawnTable
// keyed on pos.PawnKey, probing/storing both the midgame and endgame
// variant together so a later call at the other progress still hits.
// A nil table (the hand-crafted evaluator's zero value when none was
// configured) falls back to the uncached computation.
func cachedPawnStructureScore(pos *board.Position, progress GameProgress, pt *PawnTable) int {
	if pt == nil {
		return pawnStructureScore(pos, progress)
	}
	if mg, eg, found := pt.Probe(pos.PawnKey); found {
		if progress == Midgame {
			return mg
		}
		return eg
	}
	mg := pawnStructureScore(pos, Midgame)
	eg := pawnStructureScore(pos, Endgame)
	pt.Store(pos.PawnKey, mg, eg)
	if progress == Midgame {
		return mg
	}
	return eg
}

// Evaluate returns a centipawn score from the perspective of the side to
// move, positive meaning that side is better. This is the hand-crafted
// evaluator; each term below is summed in a fixed order.
func Evaluate(pos *board.Position) int {
	return evaluate(pos, nil)
}

// EvaluateWithPawnTable is Evaluate with its pawn-structure terms routed
// through a shared PawnTable, used by search workers so that repeated
// middlegame positions sharing a pawn skeleton skip the doubled/passed/
// isolated-pawn walk entirely.
func EvaluateWithPawnTable(pos *board.Position, pt *PawnTable) int {
	return evaluate(pos, pt)
}

func evaluate(pos *board.Position, pt *PawnTable) int {
	progress := Progress(pos)

	white := 0
	white += evalMaterial(pos, board.White) - evalMaterial(pos, board.Black)
	white += evalCenterControl(pos, progress)
	white += evalKnightEdge(pos, board.White) - evalKnightEdge(pos, board.Black)
	white += evalBishopPair(pos, board.White) - evalBishopPair(pos, board.Black)
	white += evalRookOn7th(pos, board.White) - evalRookOn7th(pos, board.Black)
	white += evalKingPlacement(pos, progress)
	white += cachedPawnStructureScore(pos, progress, pt)
	white += evalRookFiles(pos, board.White) - evalRookFiles(pos, board.Black)

	// Term 2: color advantage / tempo, White-only, midgame-only.
	if progress == Midgame {
		white += 15
	}

	score := white
	if pos.SideToMove == board.Black {
		score = -score
	}

	// Term 12: check status, already side-to-move relative.
	if pos.InCheck() {
		score -= 20
	}
	if pos.IsSquareAttacked(pos.KingSquare[pos.SideToMove.Other()], pos.SideToMove) {
		score += 20
	}

	return score
}

func evalMaterial(pos *board.Position, c board.Color) int {
	total := 0
	for pt := board.Pawn; pt <= board.King; pt++ {
		total += pos.Pieces[c][pt].PopCount() * pieceValues[pt]
	}
	return total
}

func evalCenterControl(pos *board.Position, progress GameProgress) int {
	total := 0
	for _, sq := range centerSquares {
		p := pos.PieceAt(sq)
		if p == board.NoPiece {
			continue
		}
		if p.Type() == board.King && progress == Midgame {
			continue
		}
		if p.Color() == board.White {
			total += 25
		} else {
			total -= 25
		}
	}
	return total
}

// outerRing is the set of squares on files a/h or ranks 1/8.
func isOuterRing(sq board.Square) bool {
	f, r := sq.File(), sq.Rank()
	return f == 0 || f == 7 || r == 0 || r == 7
}

func evalKnightEdge(pos *board.Position, c board.Color) int {
	knights := pos.Pieces[c][board.Knight]
	total := 0
	knights.ForEach(func(sq board.Square) {
		if isOuterRing(sq) {
			total -= 50
		}
	})
	return total
}

// darkSquare reports whether sq is a dark square (classic (file+rank)%2 parity).
func darkSquare(sq board.Square) bool {
	return (sq.File()+sq.Rank())%2 == 0
}

func evalBishopPair(pos *board.Position, c board.Color) int {
	bishops := pos.Pieces[c][board.Bishop]
	hasLight, hasDark := false, false
	bishops.ForEach(func(sq board.Square) {
		if darkSquare(sq) {
			hasDark = true
		} else {
			hasLight = true
		}
	})
	if hasLight && hasDark {
		return 50
	}
	return 0
}

func evalRookOn7th(pos *board.Position, c board.Color) int {
	rooks := pos.Pieces[c][board.Rook]
	total := 0
	rooks.ForEach(func(sq board.Square) {
		if sq.RelativeRank(c) == 6 { // 0-indexed rank 7 relative to c
			total += 30
		}
	})
	return total
}

func evalKingPlacement(pos *board.Position, progress GameProgress) int {
	if progress != Midgame {
		return 0
	}
	wk := pos.KingSquare[board.White]
	bk := pos.KingSquare[board.Black]
	return kingCornerTable[wk] - kingCornerTable[bk]
}

func evalDoubledPawns(pos *board.Position, c board.Color) int {
	pawns := pos.Pieces[c][board.Pawn]
	total := 0
	for file := 0; file < 8; file++ {
		count := 0
		for rank := 0; rank < 8; rank++ {
			if pawns.IsSet(board.NewSquare(file, rank)) {
				count++
			}
		}
		if count > 1 {
			total -= 75 * (count - 1)
		}
	}
	return total
}

// isPassedPawn reports whether the pawn on sq has no enemy pawn on its
// own or adjacent files strictly ahead of its rank.
func isPassedPawn(pos *board.Position, sq board.Square, c board.Color) bool {
	enemy := pos.Pieces[c.Other()][board.Pawn]
	file, rank := sq.File(), sq.Rank()
	for df := -1; df <= 1; df++ {
		f := file + df
		if f < 0 || f > 7 {
			continue
		}
		for r := 0; r < 8; r++ {
			if !enemy.IsSet(board.NewSquare(f, r)) {
				continue
			}
			if c == board.White && r > rank {
				return false
			}
			if c == board.Black && r < rank {
				return false
			}
		}
	}
	return true
}

func evalPassedPawns(pos *board.Position, progress GameProgress, c board.Color) int {
	pawns := pos.Pieces[c][board.Pawn]
	total := 0
	pawns.ForEach(func(sq board.Square) {
		if !isPassedPawn(pos, sq, c) {
			return
		}
		if progress == Midgame {
			total += 30
			return
		}
		ranksAdvanced := sq.RelativeRank(c) - 1
		total += ranksAdvanced * 50
	})
	return total
}

func evalIsolatedPawns(pos *board.Position, progress GameProgress, c board.Color) int {
	if progress != Midgame {
		return 0
	}
	pawns := pos.Pieces[c][board.Pawn]
	total := 0
	pawns.ForEach(func(sq board.Square) {
		file := sq.File()
		isolated := true
		for df := -1; df <= 1; df += 2 {
			f := file + df
			if f < 0 || f > 7 {
				continue
			}
			for r := 0; r < 8; r++ {
				if pawns.IsSet(board.NewSquare(f, r)) {
					isolated = false
				}
			}
		}
		if isolated {
			total -= 15
		}
	})
	return total
}

// evalRookFiles scores a rook by the pawns on its file, including a
// deliberately asymmetric sign: a rook of the side being scored on a
// file with enemy pawns is a PENALTY for that side, not a bonus.
func evalRookFiles(pos *board.Position, c board.Color) int {
	rooks := pos.Pieces[c][board.Rook]
	own := pos.Pieces[c][board.Pawn]
	enemy := pos.Pieces[c.Other()][board.Pawn]
	total := 0
	rooks.ForEach(func(sq board.Square) {
		file := sq.File()
		enemyOnFile, ownOnFile := false, false
		for r := 0; r < 8; r++ {
			f := board.NewSquare(file, r)
			if enemy.IsSet(f) {
				enemyOnFile = true
			}
			if own.IsSet(f) {
				ownOnFile = true
			}
		}
		if enemyOnFile {
			total -= 5
			if ownOnFile {
				total -= 5
			}
		}
	})
	return total
}
