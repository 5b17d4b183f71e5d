package board

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// ChessPosition converts the current position to a notnil/chess position.
func (p *Position) ChessPosition() (*chess.Position, error) {
	opt, err := chess.FEN(p.ToFEN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFEN, err)
	}
	return chess.NewGame(opt).Position(), nil
}

// ParseMove finds the legal move with the given UCI text, e.g. "e7e8q".
func (p *Position) ParseMove(uci string) (Move, error) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	for _, m := range p.LegalMoves() {
		if m.String() == uci {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %q", ErrIllegalMove, uci)
}

// ParseSAN finds the legal move written in standard algebraic notation.
func (p *Position) ParseSAN(san string) (Move, error) {
	san = strings.TrimSpace(san)
	cp, err := p.ChessPosition()
	if err != nil {
		return NoMove, err
	}
	mv, err := chess.AlgebraicNotation{}.Decode(cp, san)
	if err != nil {
		return NoMove, fmt.Errorf("%w: %q: %v", ErrIllegalMove, san, err)
	}
	return p.ParseMove(mv.String())
}

// ToSAN writes a legal move in standard algebraic notation.
func (p *Position) ToSAN(m Move) (string, error) {
	cp, err := p.ChessPosition()
	if err != nil {
		return "", err
	}
	mv, err := findChessMove(cp, m.String())
	if err != nil {
		return "", err
	}
	return chess.AlgebraicNotation{}.Encode(cp, mv), nil
}

func findChessMove(cp *chess.Position, uci string) (*chess.Move, error) {
	for _, mv := range cp.ValidMoves() {
		if mv.String() == uci {
			return mv, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrIllegalMove, uci)
}

// PGN exports the played line, with the given tag pairs.
func (p *Position) PGN(tags map[string]string) (string, error) {
	var g *chess.Game
	if p.startFEN == StartFEN {
		g = chess.NewGame()
	} else {
		opt, err := chess.FEN(p.startFEN)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidFEN, err)
		}
		g = chess.NewGame(opt)
	}
	for _, m := range p.line {
		mv, err := findChessMove(g.Position(), m.String())
		if err != nil {
			return "", err
		}
		if err := g.Move(mv); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrIllegalMove, m, err)
		}
	}
	for k, v := range tags {
		g.AddTagPair(k, v)
	}
	return g.String(), nil
}

// ParseGame reads a PGN game and returns its starting position and the
// moves of its main line, ready to be replayed with MakeMove.
func ParseGame(pgn string) (*Position, []Move, error) {
	g := chess.NewGame()
	if err := g.UnmarshalText([]byte(pgn)); err != nil {
		return nil, nil, fmt.Errorf("board: parse pgn: %w", err)
	}
	positions := g.Positions()
	if len(positions) == 0 {
		return nil, nil, fmt.Errorf("board: parse pgn: no positions")
	}
	start, err := ParseFEN(positions[0].String())
	if err != nil {
		return nil, nil, err
	}

	replay := start.Copy()
	moves := make([]Move, 0, len(g.Moves()))
	for _, mv := range g.Moves() {
		m, err := replay.ParseMove(mv.String())
		if err != nil {
			return nil, nil, err
		}
		replay.MakeMove(m)
		moves = append(moves, m)
	}
	return start, moves, nil
}
