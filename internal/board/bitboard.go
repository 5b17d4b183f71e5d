package board

import "math/bits"

// Bitboard is a set of squares, bit 0 = a1 and bit 63 = h8.
type Bitboard uint64

// Light-square mask; a1 is dark.
const LightSquares Bitboard = 0x55AA55AA55AA55AA

// SquareBB returns a bitboard with only the given square set.
func SquareBB(sq Square) Bitboard {
	return 1 << sq
}

// IsSet reports whether the square is in the set.
func (b Bitboard) IsSet(sq Square) bool {
	return b&(1<<sq) != 0
}

// PopCount returns the number of squares in the set.
func (b Bitboard) PopCount() int {
	return bits.OnesCount64(uint64(b))
}

// LSB returns the lowest square in the set; NoSquare when empty.
func (b Bitboard) LSB() Square {
	if b == 0 {
		return NoSquare
	}
	return Square(bits.TrailingZeros64(uint64(b)))
}

// PopLSB removes and returns the lowest square in the set.
func (b *Bitboard) PopLSB() Square {
	sq := b.LSB()
	*b &= *b - 1
	return sq
}
