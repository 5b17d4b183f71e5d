package board

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSAN(t *testing.T) {
	tests := []struct {
		fen  string
		san  string
		want string
	}{
		{StartFEN, "e4", "e2e4"},
		{StartFEN, "Nf3", "g1f3"},
		{"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "O-O", "e1g1"},
		{"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "O-O-O", "e8c8"},
		{"8/P6k/8/8/8/8/8/K7 w - - 0 1", "a8=Q", "a7a8q"},
	}
	for _, tc := range tests {
		t.Run(tc.san, func(t *testing.T) {
			pos := mustFEN(t, tc.fen)
			m, err := pos.ParseSAN(tc.san)
			if err != nil {
				t.Fatalf("ParseSAN(%q): %v", tc.san, err)
			}
			if m.String() != tc.want {
				t.Errorf("ParseSAN(%q) = %v, want %s", tc.san, m, tc.want)
			}
			back, err := pos.ToSAN(m)
			if err != nil {
				t.Fatalf("ToSAN(%v): %v", m, err)
			}
			if back != tc.san {
				t.Errorf("ToSAN(%v) = %q, want %q", m, back, tc.san)
			}
		})
	}
}

func TestParseSANIllegal(t *testing.T) {
	pos := NewPosition()
	for _, san := range []string{"Ke2", "e5", "Qxh7", "hello"} {
		if _, err := pos.ParseSAN(san); !errors.Is(err, ErrIllegalMove) {
			t.Errorf("ParseSAN(%q) error = %v, want ErrIllegalMove", san, err)
		}
	}
	if pos.Ply() != 0 || pos.ToFEN() != StartFEN {
		t.Errorf("position changed by failed parses")
	}
}

func TestPGNRoundTrip(t *testing.T) {
	pos := NewPosition()
	mustPlay(t, pos, "e2e4", "e7e5", "g1f3", "b8c6")

	pgn, err := pos.PGN(map[string]string{"Event": "casual"})
	if err != nil {
		t.Fatalf("PGN: %v", err)
	}
	if !strings.Contains(pgn, "Nf3") || !strings.Contains(pgn, "casual") {
		t.Errorf("unexpected PGN:\n%s", pgn)
	}

	start, moves, err := ParseGame(pgn)
	if err != nil {
		t.Fatalf("ParseGame: %v", err)
	}
	if start.ToFEN() != StartFEN {
		t.Errorf("start = %s", start.ToFEN())
	}
	played := pos.Moves()
	if len(moves) != len(played) {
		t.Fatalf("got %d moves, want %d", len(moves), len(played))
	}
	for i := range moves {
		if moves[i] != played[i] {
			t.Errorf("move %d = %v, want %v", i, moves[i], played[i])
		}
	}
}
