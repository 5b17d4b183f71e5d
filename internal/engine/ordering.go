package engine

import (
	"github.com/george-m2/cobra/internal/board"
)

// Capture divisor bounds. The attacker's value is divided by the divisor
// before it is subtracted from the victim's.
const (
	DefaultCaptureDivisor = 1
	MaxCaptureDivisor     = 100
)

// CaptureScore scores a capture as victim value minus attacker value over
// divisor. Non-captures score 0. A capturing king counts as 0 since it can
// never be recaptured.
func CaptureScore(pos *board.Position, m board.Move, divisor int) int {
	if !pos.IsCapture(m) {
		return 0
	}
	if divisor < 1 {
		divisor = DefaultCaptureDivisor
	}
	attacker := pos.PieceAt(m.From()).Type()
	victim := pos.PieceAt(pos.CapturedSquare(m)).Type()
	return pieceValues[victim] - pieceValues[attacker]/divisor
}

// MoveValue estimates a move from White's side: the capture score plus the
// mover's piece-square gain, plus the material gained by promoting. Moves by
// Black are negated so that White sorts descending and Black ascending.
func MoveValue(pos *board.Position, m board.Move, endgame bool, divisor int) int {
	piece := pos.PieceAt(m.From())
	if piece == board.NoPiece {
		return 0
	}

	value := CaptureScore(pos, m, divisor) +
		PieceSquareValue(piece, m.To(), endgame) -
		PieceSquareValue(piece, m.From(), endgame)
	if promo := m.Promotion(); promo != board.NoPieceType {
		value += pieceValues[promo] - PawnValue
	}

	if piece.Color() == board.Black {
		return -value
	}
	return value
}

// MoveOrderer ranks legal moves so that alpha-beta sees the likely best
// moves first.
type MoveOrderer struct {
	divisor int
}

// NewMoveOrderer creates an orderer with the given capture divisor,
// clamped to [1, MaxCaptureDivisor].
func NewMoveOrderer(divisor int) *MoveOrderer {
	if divisor < 1 {
		divisor = DefaultCaptureDivisor
	}
	if divisor > MaxCaptureDivisor {
		divisor = MaxCaptureDivisor
	}
	return &MoveOrderer{divisor: divisor}
}

// ScoreMoves returns the MoveValue of every move, in the same order.
func (mo *MoveOrderer) ScoreMoves(pos *board.Position, moves []board.Move) []int {
	endgame := IsEndgame(pos)
	scores := make([]int, len(moves))
	for i, m := range moves {
		scores[i] = MoveValue(pos, m, endgame, mo.divisor)
	}
	return scores
}

// Order sorts moves in place, best first for the side to move. Ties keep
// their generation order.
func (mo *MoveOrderer) Order(pos *board.Position, moves []board.Move) []board.Move {
	scores := mo.ScoreMoves(pos, moves)
	SortMoves(moves, scores, pos.SideToMove() == board.White)
	return moves
}

// OrderedMoves returns the legal moves of the position, ordered.
func (mo *MoveOrderer) OrderedMoves(pos *board.Position) []board.Move {
	return mo.Order(pos, pos.LegalMoves())
}

// OrderMoves sorts moves with a one-off orderer.
func OrderMoves(pos *board.Position, moves []board.Move, divisor int) []board.Move {
	return NewMoveOrderer(divisor).Order(pos, moves)
}

// SortMoves sorts moves by score in place (stable insertion sort).
func SortMoves(moves []board.Move, scores []int, descending bool) {
	for i := 1; i < len(moves); i++ {
		m, s := moves[i], scores[i]
		j := i - 1
		for ; j >= 0; j-- {
			if descending && scores[j] >= s || !descending && scores[j] <= s {
				break
			}
			moves[j+1], scores[j+1] = moves[j], scores[j]
		}
		moves[j+1], scores[j+1] = m, s
	}
}
