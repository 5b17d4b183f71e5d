package board

// Color represents the side a piece belongs to, or the side to move.
type Color uint8

const (
	White Color = iota
	Black
	NoColor Color = 2
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	default:
		return "NoColor"
	}
}

// PieceType represents the kind of a chess piece.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType PieceType = 6
)

var pieceTypeNames = [...]string{"Pawn", "Knight", "Bishop", "Rook", "Queen", "King", "None"}

// String returns the piece type name.
func (pt PieceType) String() string {
	if pt > NoPieceType {
		return "None"
	}
	return pieceTypeNames[pt]
}

// Char returns the lowercase FEN letter of the piece type.
func (pt PieceType) Char() byte {
	if pt >= NoPieceType {
		return ' '
	}
	return "pnbrqk"[pt]
}

// Piece packs a PieceType and a Color as pieceType + color*6.
type Piece uint8

const (
	WhitePawn Piece = iota
	WhiteKnight
	WhiteBishop
	WhiteRook
	WhiteQueen
	WhiteKing
	BlackPawn
	BlackKnight
	BlackBishop
	BlackRook
	BlackQueen
	BlackKing
	NoPiece
)

// NewPiece creates a Piece from a PieceType and a Color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt >= NoPieceType || c >= NoColor {
		return NoPiece
	}
	return Piece(pt) + Piece(c)*6
}

// Type returns the PieceType of the piece.
func (p Piece) Type() PieceType {
	if p >= NoPiece {
		return NoPieceType
	}
	return PieceType(p % 6)
}

// Color returns the Color of the piece.
func (p Piece) Color() Color {
	if p >= NoPiece {
		return NoColor
	}
	return Color(p / 6)
}

// String returns the FEN letter: uppercase for White, lowercase for Black.
func (p Piece) String() string {
	if p >= NoPiece {
		return "."
	}
	return string("PNBRQKpnbrqk"[p])
}
