package board

import dragon "github.com/dylhunn/dragontoothmg"

// Move is a legal move produced by a Position. It shares dragontoothmg's
// 16-bit layout (from, to, promotion), so conversion is free.
type Move dragon.Move

// NoMove is the zero move; no legal move encodes to it.
const NoMove Move = 0

// From returns the origin square.
func (m Move) From() Square {
	d := dragon.Move(m)
	return Square(d.From())
}

// To returns the destination square.
func (m Move) To() Square {
	d := dragon.Move(m)
	return Square(d.To())
}

// Promotion returns the promoted piece type, or NoPieceType.
func (m Move) Promotion() PieceType {
	d := dragon.Move(m)
	return fromDragonPiece(d.Promote())
}

// IsPromotion reports whether the move promotes a pawn.
func (m Move) IsPromotion() bool {
	return m.Promotion() != NoPieceType
}

// String returns the move in UCI notation, e.g. "e2e4" or "e7e8q".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if pt := m.Promotion(); pt != NoPieceType {
		s += string(pt.Char())
	}
	return s
}

func fromDragonPiece(p dragon.Piece) PieceType {
	switch p {
	case dragon.Pawn:
		return Pawn
	case dragon.Knight:
		return Knight
	case dragon.Bishop:
		return Bishop
	case dragon.Rook:
		return Rook
	case dragon.Queen:
		return Queen
	case dragon.King:
		return King
	default:
		return NoPieceType
	}
}
