// Package board is the rules engine the search runs on: legal move
// generation, reversible moves, draw and mate detection, FEN and SAN.
//
// Move generation is delegated to dragontoothmg; notation is delegated to
// notnil/chess. The package only adds the bookkeeping those libraries lack
// (hash history, halfmove clock for draw claims, the played line).
package board

import "fmt"

// Square is a board square, a1=0 through h8=63 (little-endian rank-file).
type Square uint8

const (
	A1, B1, C1, D1, E1, F1, G1, H1 Square = 0, 1, 2, 3, 4, 5, 6, 7
	A2, B2, C2, D2, E2, F2, G2, H2 Square = 8, 9, 10, 11, 12, 13, 14, 15
	A3, B3, C3, D3, E3, F3, G3, H3 Square = 16, 17, 18, 19, 20, 21, 22, 23
	A4, B4, C4, D4, E4, F4, G4, H4 Square = 24, 25, 26, 27, 28, 29, 30, 31
	A5, B5, C5, D5, E5, F5, G5, H5 Square = 32, 33, 34, 35, 36, 37, 38, 39
	A6, B6, C6, D6, E6, F6, G6, H6 Square = 40, 41, 42, 43, 44, 45, 46, 47
	A7, B7, C7, D7, E7, F7, G7, H7 Square = 48, 49, 50, 51, 52, 53, 54, 55
	A8, B8, C8, D8, E8, F8, G8, H8 Square = 56, 57, 58, 59, 60, 61, 62, 63

	NoSquare Square = 64
)

// NewSquare creates a square from 0-indexed file and rank.
func NewSquare(file, rank int) Square {
	return Square(rank*8 + file)
}

// File returns the file of the square (0=a, 7=h).
func (sq Square) File() int {
	return int(sq) & 7
}

// Rank returns the rank of the square (0=1st rank, 7=8th rank).
func (sq Square) Rank() int {
	return int(sq) >> 3
}

// Mirror flips the square vertically, e.g. g1 <-> g8.
func (sq Square) Mirror() Square {
	return sq ^ 56
}

// IsLight reports whether the square is a light square (a1 is dark).
func (sq Square) IsLight() bool {
	return (sq.File()+sq.Rank())%2 == 1
}

// String returns the algebraic name of the square, e.g. "e4".
func (sq Square) String() string {
	if sq >= NoSquare {
		return "-"
	}
	return string([]byte{byte('a' + sq.File()), byte('1' + sq.Rank())})
}

// ParseSquare parses an algebraic square name such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}
	file := int(s[0]) - 'a'
	rank := int(s[1]) - '1'
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare, fmt.Errorf("invalid square: %q", s)
	}
	return NewSquare(file, rank), nil
}
