package engine

import (
	"testing"

	"github.com/george-m2/cobra/internal/board"
)

func mustMove(t testing.TB, pos *board.Position, uci string) board.Move {
	t.Helper()
	m, err := pos.ParseMove(uci)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", uci, err)
	}
	return m
}

func indexOf(moves []board.Move, m board.Move) int {
	for i, mv := range moves {
		if mv == m {
			return i
		}
	}
	return -1
}

func TestCaptureScore(t *testing.T) {
	tests := []struct {
		name    string
		fen     string
		move    string
		divisor int
		want    int
	}{
		{"pawn takes queen", "4k3/8/8/3q4/4P3/8/8/4K3 w - - 0 1", "e4d5", 1, QueenValue - PawnValue},
		{"queen takes pawn", "4k3/8/8/3p4/4Q3/8/8/4K3 w - - 0 1", "e4d5", 1, PawnValue - QueenValue},
		{"divisor scales attacker", "4k3/8/8/3q4/4P3/8/8/4K3 w - - 0 1", "e4d5", 100, QueenValue - 1},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 2", "e5d6", 2, PawnValue - PawnValue/2},
		{"king takes", "4k3/8/8/8/8/8/4p3/4K3 w - - 0 1", "e1e2", 1, PawnValue},
		{"quiet move", board.StartFEN, "e2e4", 1, 0},
		{"zero divisor", "4k3/8/8/3q4/4P3/8/8/4K3 w - - 0 1", "e4d5", 0, QueenValue - PawnValue},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos := mustFEN(t, tc.fen)
			m := mustMove(t, pos, tc.move)
			if got := CaptureScore(pos, m, tc.divisor); got != tc.want {
				t.Errorf("CaptureScore = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestMoveValueSign(t *testing.T) {
	pos := board.NewPosition()
	nf3 := mustMove(t, pos, "g1f3")
	if got := MoveValue(pos, nf3, false, 1); got != 50 {
		t.Errorf("MoveValue(Nf3) = %d, want 50", got)
	}

	pos.MakeMove(mustMove(t, pos, "e2e4"))
	nf6 := mustMove(t, pos, "g8f6")
	if got := MoveValue(pos, nf6, false, 1); got != -50 {
		t.Errorf("MoveValue(Nf6) = %d, want -50", got)
	}
}

func TestOrderMovesCaptureFirst(t *testing.T) {
	pos := mustFEN(t, "7k/8/8/3q4/4P3/8/2p5/2Q4K w - - 0 1")
	moves := OrderMoves(pos, pos.LegalMoves(), DefaultCaptureDivisor)

	pxq := mustMove(t, pos, "e4d5")
	qxp := mustMove(t, pos, "c1c2")
	if moves[0] != pxq {
		t.Errorf("first move = %v, want e4d5", moves[0])
	}
	if indexOf(moves, pxq) > indexOf(moves, qxp) {
		t.Errorf("PxQ ordered after QxP")
	}
}

func TestOrderMovesBlack(t *testing.T) {
	pos := mustFEN(t, "2q4k/2P5/8/4p3/3Q4/8/8/7K b - - 0 1")
	moves := OrderMoves(pos, pos.LegalMoves(), DefaultCaptureDivisor)
	if want := mustMove(t, pos, "e5d4"); moves[0] != want {
		t.Errorf("first move = %v, want e5d4", moves[0])
	}
}

func TestOrderMovesPromotionFirst(t *testing.T) {
	pos := mustFEN(t, "8/P6k/8/8/8/8/8/K7 w - - 0 1")
	moves := OrderMoves(pos, pos.LegalMoves(), DefaultCaptureDivisor)
	if moves[0].String() != "a7a8q" {
		t.Errorf("first move = %v, want a7a8q", moves[0])
	}
}

func TestOrderMovesDeterministic(t *testing.T) {
	pos := mustFEN(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	fen := pos.ToFEN()

	a := OrderMoves(pos, pos.LegalMoves(), 1)
	b := OrderMoves(pos, pos.LegalMoves(), 1)
	if len(a) != len(pos.LegalMoves()) {
		t.Fatalf("ordering changed the move count: %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order differs at %d: %v vs %v", i, a[i], b[i])
		}
	}
	if pos.ToFEN() != fen {
		t.Errorf("position changed: %s", pos.ToFEN())
	}
}

func TestSortMovesStable(t *testing.T) {
	moves := []board.Move{10, 11, 12, 13, 14}
	scores := []int{1, 3, 1, 3, 2}

	SortMoves(moves, scores, true)
	want := []board.Move{11, 13, 14, 10, 12}
	for i := range want {
		if moves[i] != want[i] {
			t.Fatalf("descending: got %v, want %v", moves, want)
		}
	}

	moves = []board.Move{10, 11, 12, 13, 14}
	scores = []int{1, 3, 1, 3, 2}
	SortMoves(moves, scores, false)
	want = []board.Move{10, 12, 14, 11, 13}
	for i := range want {
		if moves[i] != want[i] {
			t.Fatalf("ascending: got %v, want %v", moves, want)
		}
	}
}
