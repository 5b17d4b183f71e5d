package engine

import "github.com/george-m2/cobra/internal/board"

// EndgameMaterialThreshold is the most non-pawn material (a queen and one
// minor piece) a side may keep for a position with queens to be an endgame.
const EndgameMaterialThreshold = 1300

// IsEndgame reports whether the position should be scored with the endgame
// tables: no queens left, or both sides down to at most a queen and a minor.
func IsEndgame(pos *board.Position) bool {
	queens := pos.Pieces(board.White, board.Queen) | pos.Pieces(board.Black, board.Queen)
	if queens == 0 {
		return true
	}
	return nonPawnMaterial(pos, board.White) <= EndgameMaterialThreshold &&
		nonPawnMaterial(pos, board.Black) <= EndgameMaterialThreshold
}

func nonPawnMaterial(pos *board.Position, c board.Color) int {
	material := 0
	for pt := board.Knight; pt <= board.Queen; pt++ {
		material += pieceValues[pt] * pos.Pieces(c, pt).PopCount()
	}
	return material
}
