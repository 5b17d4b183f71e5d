package engine

import (
	"errors"
	"testing"

	"lukechampine.com/frand"

	"github.com/george-m2/cobra/internal/board"
)

func contains(moves []board.Move, m board.Move) bool {
	return indexOf(moves, m) >= 0
}

type snapshot struct {
	fen  string
	hash uint64
	ply  int
}

func snap(pos *board.Position) snapshot {
	return snapshot{fen: pos.ToFEN(), hash: pos.Hash(), ply: pos.Ply()}
}

// randomPosition plays up to plies random legal moves from the start.
func randomPosition(plies int) *board.Position {
	pos := board.NewPosition()
	for i := 0; i < plies; i++ {
		moves := pos.LegalMoves()
		if len(moves) == 0 || pos.IsDraw() {
			break
		}
		pos.MakeMove(moves[frand.Intn(len(moves))])
	}
	return pos
}

func TestFindBestMoveErrors(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		depth int
		want  error
	}{
		{"zero depth", board.StartFEN, 0, ErrInvalidDepth},
		{"negative depth", board.StartFEN, -2, ErrInvalidDepth},
		{"checkmated", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1", 2, ErrNoLegalMoves},
		{"stalemated", "k7/P7/1K6/8/8/8/8/8 b - - 0 1", 2, ErrNoLegalMoves},
		{"missing king", "8/8/8/8/8/8/8/4K3 w - - 0 1", 2, ErrEvaluatorFault},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FindBestMove(mustFEN(t, tc.fen), tc.depth, DefaultOptions)
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMateInOne(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		mate string
	}{
		{"back rank", "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "a1a8"},
		{"pawn storm", "7k/5PPP/8/8/8/8/8/7K w - - 0 1", "g7g8q"},
		{"promotion", "k7/2P5/1K6/8/8/8/8/8 w - - 0 1", "c7c8q"},
		{"black mates", "r5k1/8/8/8/8/8/5PPP/6K1 b - - 0 1", "a8a1"},
	}
	for _, tc := range tests {
		for depth := 1; depth <= 2; depth++ {
			pos := mustFEN(t, tc.fen)
			res, err := FindBestMove(pos, depth, DefaultOptions)
			if err != nil {
				t.Fatalf("%s depth %d: %v", tc.name, depth, err)
			}
			if res.Move.String() != tc.mate {
				t.Errorf("%s depth %d: move = %v, want %s", tc.name, depth, res.Move, tc.mate)
			}
			want := MateScore
			if pos.SideToMove() == board.Black {
				want = -MateScore
			}
			if res.Score != want {
				t.Errorf("%s depth %d: score = %d, want %d", tc.name, depth, res.Score, want)
			}

			pos.MakeMove(res.Move)
			if !pos.IsCheckmate() {
				t.Errorf("%s: %v does not mate", tc.name, res.Move)
			}
			pos.UnmakeMove()
		}
	}
}

func TestMateOutranksSiblings(t *testing.T) {
	for _, fen := range []string{
		"6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1",
		"7k/5PPP/8/8/8/8/8/7K w - - 0 1",
	} {
		pos := mustFEN(t, fen)
		s := NewSearcher(nil, false)
		s.pos = pos
		mating := 0
		for _, m := range pos.LegalMoves() {
			pos.MakeMove(m)
			mates := pos.IsCheckmate()
			score := s.minimax(1, -Infinity, Infinity, false)
			pos.UnmakeMove()

			if mates {
				mating++
				if score != MateScore {
					t.Errorf("%s %v: mating score = %d", fen, m, score)
				}
			}
			if !mates && score >= MateScore {
				t.Errorf("%s %v: non-mating sibling scored %d", fen, m, score)
			}
		}
		if mating == 0 {
			t.Errorf("%s: no mating move found", fen)
		}
	}
}

func TestStalemateScoresZero(t *testing.T) {
	pos := mustFEN(t, "k7/P7/1K6/8/8/8/8/8 w - - 0 1")

	// Ka6 stalemates at once.
	s := NewSearcher(nil, true)
	s.pos = pos
	pos.MakeMove(mustMove(t, pos, "b6a6"))
	if got := s.minimax(3, -Infinity, Infinity, false); got != 0 {
		t.Errorf("stalemate scored %d", got)
	}
	pos.UnmakeMove()

	// Every other king move drops the pawn, leaving bare kings.
	for depth := 2; depth <= 3; depth++ {
		res, err := FindBestMove(pos, depth, DefaultOptions)
		if err != nil {
			t.Fatal(err)
		}
		if res.Score != 0 {
			t.Errorf("depth %d: score = %d, want 0", depth, res.Score)
		}
	}
}

func TestClaimableDrawScoresZero(t *testing.T) {
	// White is a queen up but the position has occurred twice already:
	// repeating it a third time is the only way to keep the draw.
	pos := mustFEN(t, "7k/8/8/8/8/8/8/1Q2K3 w - - 0 1")
	for _, uci := range []string{"e1d1", "h8g8", "d1e1", "g8h8", "e1d1", "h8g8", "d1e1"} {
		pos.MakeMove(mustMove(t, pos, uci))
	}
	// Black to move: g8h8 repeats the position a third time.
	if pos.SideToMove() != board.Black {
		t.Fatal("expected black to move")
	}
	res, err := FindBestMove(pos, 2, DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	if res.Move.String() != "g8h8" || res.Score != 0 {
		t.Errorf("got %v (%d), want g8h8 with 0", res.Move, res.Score)
	}
}

func TestPrunedMatchesExhaustive(t *testing.T) {
	check := func(t *testing.T, pos *board.Position, depth int) {
		t.Helper()
		pruned, err := FindBestMove(pos, depth, Options{Pruning: true, CaptureDivisor: 1})
		if err != nil {
			t.Fatal(err)
		}
		full, err := FindBestMove(pos, depth, Options{Pruning: false, CaptureDivisor: 1})
		if err != nil {
			t.Fatal(err)
		}
		if pruned.Score != full.Score || pruned.Move != full.Move {
			t.Errorf("%s depth %d: pruned %v (%d), exhaustive %v (%d)",
				pos.ToFEN(), depth, pruned.Move, pruned.Score, full.Move, full.Score)
		}
		if pruned.Nodes > full.Nodes {
			t.Errorf("pruned search visited more nodes: %d > %d", pruned.Nodes, full.Nodes)
		}
	}

	t.Run("start", func(t *testing.T) {
		pos := board.NewPosition()
		check(t, pos, 3)
		res, _ := FindBestMove(pos, 3, DefaultOptions)
		if !contains(pos.LegalMoves(), res.Move) {
			t.Errorf("%v is not legal", res.Move)
		}
	})

	t.Run("random", func(t *testing.T) {
		for i := 0; i < 12; i++ {
			pos := randomPosition(4 + frand.Intn(30))
			if len(pos.LegalMoves()) == 0 || pos.Validate() != nil {
				continue
			}
			check(t, pos, 2)
		}
	})
}

func TestFindBestMoveLegalAndUnchanged(t *testing.T) {
	for i := 0; i < 20; i++ {
		pos := randomPosition(frand.Intn(40))
		if len(pos.LegalMoves()) == 0 || pos.Validate() != nil {
			continue
		}
		before := snap(pos)

		res, err := FindBestMove(pos, 2, DefaultOptions)
		if err != nil {
			t.Fatalf("%s: %v", before.fen, err)
		}
		if !contains(pos.LegalMoves(), res.Move) {
			t.Errorf("%s: %v is not legal", before.fen, res.Move)
		}
		if after := snap(pos); after != before {
			t.Errorf("position changed: %+v -> %+v", before, after)
		}
		if res.Score <= -Infinity || res.Score >= Infinity {
			t.Errorf("score %d not finite", res.Score)
		}
	}
}

func BenchmarkSearchStartDepth3(b *testing.B) {
	pos := board.NewPosition()
	for i := 0; i < b.N; i++ {
		if _, err := FindBestMove(pos, 3, DefaultOptions); err != nil {
			b.Fatal(err)
		}
	}
}
