// Package engine implements the chess search: a material and piece-square
// evaluation, capture-aware move ordering and a fixed-depth minimax search
// with alpha-beta pruning.
package engine

import (
	"fmt"

	"github.com/george-m2/cobra/internal/board"
)

// Material values in centipawns. The king carries no material value.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
)

// Indexed by board.PieceType; King and NoPieceType are 0.
var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, 0, 0}

// Piece-square tables, written as the board is printed: the first row is
// rank 8, a8..h8, the last row is rank 1. Values are from White's side.

var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 25, 25, 10, 5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -20, -20, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

// Endgame pawns: push, the closer to promotion the better.
var pawnEndgamePST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	80, 80, 80, 80, 80, 80, 80, 80,
	50, 50, 50, 50, 50, 50, 50, 50,
	30, 30, 30, 30, 30, 30, 30, 30,
	15, 15, 20, 20, 20, 20, 15, 15,
	5, 5, 5, 5, 5, 5, 5, 5,
	-10, -10, -10, -10, -10, -10, -10, -10,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

// King behind its pawn shield while pieces are on the board.
var kingMidgamePST = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

// King in the centre once the heavy pieces are gone.
var kingEndgamePST = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

// Tables per phase, indexed by board.PieceType.
var (
	midgamePSTs = [6]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST, &kingMidgamePST}
	endgamePSTs = [6]*[64]int{&pawnEndgamePST, &knightPST, &bishopPST, &rookPST, &queenPST, &kingEndgamePST}
)

func phaseTables(endgame bool) *[6]*[64]int {
	if endgame {
		return &endgamePSTs
	}
	return &midgamePSTs
}

// pstIndex maps a square to its table entry. The tables start at rank 8, so
// White reads the mirrored square and Black the square itself.
func pstIndex(c board.Color, sq board.Square) board.Square {
	if c == board.White {
		return sq.Mirror()
	}
	return sq
}

// PieceSquareValue returns the table bonus of a piece standing on sq, from
// the piece owner's side. It does not include material.
func PieceSquareValue(p board.Piece, sq board.Square, endgame bool) int {
	pt := p.Type()
	if pt >= board.NoPieceType || sq >= board.NoSquare {
		return 0
	}
	return phaseTables(endgame)[pt][pstIndex(p.Color(), sq)]
}

// Evaluate returns the static evaluation of the position in centipawns,
// positive when White is better.
func Evaluate(pos *board.Position) int {
	return evaluate(pos, IsEndgame(pos))
}

func evaluate(pos *board.Position, endgame bool) int {
	tables := phaseTables(endgame)
	score := 0

	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}

		for pt := board.Pawn; pt <= board.King; pt++ {
			table := tables[pt]
			bb := pos.Pieces(c, pt)
			for bb != 0 {
				sq := bb.PopLSB()
				score += sign * (pieceValues[pt] + table[pstIndex(c, sq)])
			}
		}
	}

	return score
}

// EvaluateChecked validates the position before evaluating it.
func EvaluateChecked(pos *board.Position) (int, error) {
	if err := pos.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEvaluatorFault, err)
	}
	return Evaluate(pos), nil
}

// EvaluateMaterial returns the material balance only.
func EvaluateMaterial(pos *board.Position) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += pieceValues[pt] * (pos.Pieces(board.White, pt).PopCount() - pos.Pieces(board.Black, pt).PopCount())
	}
	return score
}
