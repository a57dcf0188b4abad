package engine

import (
	"github.com/brackenfield/deepsquare/internal/board"
)

// SEE computes the static exchange evaluation of a capture: the net
// material gain for the side making move m, assuming both sides recapture
// optimally on m.To(). Returns 0 for non-captures.
func SEE(pos *board.Position, m board.Move) int {
	to := m.To()
	from := m.From()

	mover := pos.PieceAt(from)
	if mover == board.NoPiece {
		return 0
	}

	var gain int
	if m.IsEnPassant() {
		gain = PawnValue
	} else {
		victim := pos.PieceAt(to)
		if victim == board.NoPiece {
			return 0
		}
		gain = pieceValues[victim.Type()]
	}
	if m.IsPromotion() {
		gain += pieceValues[m.Promotion()] - PawnValue
	}

	occ := pos.AllOccupied &^ board.SquareBB(from)
	attackerType := mover.Type()
	side := mover.Color().Other()

	return seeSwapOff(pos, to, occ, attackerType, side, gain)
}

// seeSwapOff alternates least-valuable-attacker recaptures on target,
// accumulating signed gain from the perspective of the original mover,
// and stops if the next attacker would be a king stepping into check.
func seeSwapOff(pos *board.Position, target board.Square, occ board.Bitboard, lastAttackerType board.PieceType, side board.Color, gain int) int {
	attackerSq, attackerPiece := leastValuableAttacker(pos, target, side, occ)
	if attackerPiece == board.NoPiece {
		return gain
	}

	if attackerPiece.Type() == board.King {
		other := side.Other()
		occWithoutAttacker := occ &^ board.SquareBB(attackerSq)
		if pos.AttackersByColor(target, other, occWithoutAttacker) != 0 {
			// King would be recaptured; it cannot make this capture.
			return gain
		}
	}

	nextGain := pieceValues[lastAttackerType] - gain
	occ = occ &^ board.SquareBB(attackerSq)

	rest := seeSwapOff(pos, target, occ, attackerPiece.Type(), side.Other(), nextGain)

	// The side to move at this ply chooses whichever is better for it:
	// stopping here (gain) or continuing the exchange (-rest, negamax).
	if -rest > -gain {
		return gain
	}
	return -rest
}

// leastValuableAttacker finds the cheapest piece of side attacking target
// given the current occupancy, scanning victim-ordinal order.
func leastValuableAttacker(pos *board.Position, target board.Square, side board.Color, occ board.Bitboard) (board.Square, board.Piece) {
	if bb := pos.Pieces[side][board.Pawn] & board.PawnAttacks(target, side.Other()) & occ; bb != 0 {
		return bb.LSB(), board.NewPiece(board.Pawn, side)
	}
	if bb := pos.Pieces[side][board.Knight] & board.KnightAttacks(target) & occ; bb != 0 {
		return bb.LSB(), board.NewPiece(board.Knight, side)
	}
	bishopAtk := board.BishopAttacks(target, occ)
	if bb := pos.Pieces[side][board.Bishop] & bishopAtk & occ; bb != 0 {
		return bb.LSB(), board.NewPiece(board.Bishop, side)
	}
	rookAtk := board.RookAttacks(target, occ)
	if bb := pos.Pieces[side][board.Rook] & rookAtk & occ; bb != 0 {
		return bb.LSB(), board.NewPiece(board.Rook, side)
	}
	if bb := pos.Pieces[side][board.Queen] & (bishopAtk | rookAtk) & occ; bb != 0 {
		return bb.LSB(), board.NewPiece(board.Queen, side)
	}
	if bb := pos.Pieces[side][board.King] & board.KingAttacks(target) & occ; bb != 0 {
		return bb.LSB(), board.NewPiece(board.King, side)
	}
	return board.NoSquare, board.NoPiece
}

// mvvLva is the Most-Valuable-Victim/Least-Valuable-Attacker pre-ordering
// score for a capture: 100*victim + (5 - attacker), using
// PieceType ordinals (Pawn=0 ... King=5).
func mvvLva(victim, attacker board.PieceType) int {
	return 100*int(victim) + (5 - int(attacker))
}
