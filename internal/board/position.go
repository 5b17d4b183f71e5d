package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	dragon "github.com/dylhunn/dragontoothmg"
	"github.com/notnil/chess"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrInvalidFEN      = errors.New("board: invalid FEN")
	ErrInvalidPosition = errors.New("board: invalid position")
	ErrIllegalMove     = errors.New("board: illegal move")
)

// Position is a chess position plus the history needed for draw claims.
// Moves are applied and taken back in place; it is not safe for concurrent
// use, use Copy to hand a position to another goroutine.
type Position struct {
	b dragon.Board

	// hashes of every position reached, oldest first; the last entry is the
	// current position.
	history []uint64
	undo    []undoEntry
	line    []Move

	halfMove int
	startFEN string
}

type undoEntry struct {
	unapply  func()
	halfMove int
}

// NewPosition returns the starting position.
func NewPosition() *Position {
	p, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseFEN parses a six-field FEN string.
func ParseFEN(fen string) (*Position, error) {
	fen = strings.TrimSpace(fen)
	if _, err := chess.FEN(fen); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidFEN, fen, err)
	}
	fields := strings.Fields(fen)
	halfMove := 0
	if len(fields) >= 5 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad halfmove clock %q", ErrInvalidFEN, fields[4])
		}
		halfMove = n
	}

	p := &Position{
		b:        dragon.ParseFen(fen),
		halfMove: halfMove,
		startFEN: fen,
	}
	p.history = []uint64{p.b.Hash()}
	return p, nil
}

// ToFEN returns the FEN string of the current position.
func (p *Position) ToFEN() string {
	return p.b.ToFen()
}

// StartFEN returns the FEN the position was created from.
func (p *Position) StartFEN() string {
	return p.startFEN
}

// Copy returns an independent copy. The copy keeps the hash history and the
// played line but cannot unmake moves made before the copy.
func (p *Position) Copy() *Position {
	c := &Position{
		b:        p.b,
		halfMove: p.halfMove,
		startFEN: p.startFEN,
	}
	c.history = append([]uint64(nil), p.history...)
	c.line = append([]Move(nil), p.line...)
	return c
}

// Hash returns the Zobrist hash of the current position.
func (p *Position) Hash() uint64 {
	return p.b.Hash()
}

// SideToMove returns the color to move.
func (p *Position) SideToMove() Color {
	if p.b.Wtomove {
		return White
	}
	return Black
}

// HalfMoveClock returns the number of plies since the last capture or pawn move.
func (p *Position) HalfMoveClock() int {
	return p.halfMove
}

// Ply returns the number of moves made since the position was created.
func (p *Position) Ply() int {
	return len(p.line)
}

// Moves returns the moves played since the position was created.
func (p *Position) Moves() []Move {
	return append([]Move(nil), p.line...)
}

func (p *Position) bitboards(c Color) *dragon.Bitboards {
	if c == White {
		return &p.b.White
	}
	return &p.b.Black
}

// Pieces returns the squares holding pieces of the given color and type.
func (p *Position) Pieces(c Color, pt PieceType) Bitboard {
	bb := p.bitboards(c)
	switch pt {
	case Pawn:
		return Bitboard(bb.Pawns)
	case Knight:
		return Bitboard(bb.Knights)
	case Bishop:
		return Bitboard(bb.Bishops)
	case Rook:
		return Bitboard(bb.Rooks)
	case Queen:
		return Bitboard(bb.Queens)
	case King:
		return Bitboard(bb.Kings)
	}
	return 0
}

// Occupied returns the squares holding pieces of the given color.
func (p *Position) Occupied(c Color) Bitboard {
	return Bitboard(p.bitboards(c).All)
}

// PieceAt returns the piece on a square, or NoPiece.
func (p *Position) PieceAt(sq Square) Piece {
	if sq >= NoSquare {
		return NoPiece
	}
	c := White
	switch {
	case p.Occupied(White).IsSet(sq):
	case p.Occupied(Black).IsSet(sq):
		c = Black
	default:
		return NoPiece
	}
	for pt := Pawn; pt <= King; pt++ {
		if p.Pieces(c, pt).IsSet(sq) {
			return NewPiece(pt, c)
		}
	}
	return NoPiece
}

// KingCount returns how many kings the color has on the board.
func (p *Position) KingCount(c Color) int {
	return p.Pieces(c, King).PopCount()
}

// Validate reports positions the search cannot work with.
func (p *Position) Validate() error {
	for _, c := range []Color{White, Black} {
		if n := p.KingCount(c); n != 1 {
			return fmt.Errorf("%w: %s has %d kings", ErrInvalidPosition, c, n)
		}
	}
	backRanks := Bitboard(0xFF000000000000FF)
	if (p.Pieces(White, Pawn)|p.Pieces(Black, Pawn))&backRanks != 0 {
		return fmt.Errorf("%w: pawn on back rank", ErrInvalidPosition)
	}
	return nil
}

// LegalMoves returns all legal moves in generation order. When the side not
// to move is already in check, capturing its king is not a move.
func (p *Position) LegalMoves() []Move {
	raw := p.b.GenerateLegalMoves()
	enemyKing := p.Pieces(p.SideToMove().Other(), King)
	moves := make([]Move, 0, len(raw))
	for _, m := range raw {
		mv := Move(m)
		if enemyKing.IsSet(mv.To()) {
			continue
		}
		moves = append(moves, mv)
	}
	return moves
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.b.OurKingInCheck()
}

// IsEnPassant reports whether a legal move is an en passant capture.
func (p *Position) IsEnPassant(m Move) bool {
	from, to := m.From(), m.To()
	if !p.Pieces(p.SideToMove(), Pawn).IsSet(from) || from.File() == to.File() {
		return false
	}
	return p.PieceAt(to) == NoPiece
}

// IsCapture reports whether a legal move captures, en passant included.
func (p *Position) IsCapture(m Move) bool {
	return p.Occupied(p.SideToMove().Other()).IsSet(m.To()) || p.IsEnPassant(m)
}

// CapturedSquare returns the square of the piece a capture removes. For en
// passant that is the destination file on the origin rank.
func (p *Position) CapturedSquare(m Move) Square {
	if p.IsEnPassant(m) {
		return NewSquare(m.To().File(), m.From().Rank())
	}
	return m.To()
}

// MakeMove plays a legal move. Every MakeMove must be paired with UnmakeMove.
func (p *Position) MakeMove(m Move) {
	reset := p.Pieces(p.SideToMove(), Pawn).IsSet(m.From()) || p.IsCapture(m)
	p.undo = append(p.undo, undoEntry{
		unapply:  p.b.Apply(dragon.Move(m)),
		halfMove: p.halfMove,
	})
	if reset {
		p.halfMove = 0
	} else {
		p.halfMove++
	}
	p.history = append(p.history, p.b.Hash())
	p.line = append(p.line, m)
}

// UnmakeMove takes back the last move made with MakeMove.
func (p *Position) UnmakeMove() {
	n := len(p.undo)
	if n == 0 {
		return
	}
	u := p.undo[n-1]
	p.undo[n-1] = undoEntry{}
	p.undo = p.undo[:n-1]

	u.unapply()
	p.halfMove = u.halfMove
	p.history = p.history[:len(p.history)-1]
	p.line = p.line[:len(p.line)-1]
}

// RepetitionCount returns how many times the current position has occurred,
// counting the current occurrence.
func (p *Position) RepetitionCount() int {
	last := len(p.history) - 1
	cur := p.history[last]
	// Positions before the last irreversible move cannot repeat.
	limit := last - p.halfMove
	if limit < 0 {
		limit = 0
	}
	count := 0
	for i := last; i >= limit; i -= 2 {
		if p.history[i] == cur {
			count++
		}
	}
	return count
}

// IsCheckmate reports whether the side to move is checkmated.
func (p *Position) IsCheckmate() bool {
	return p.InCheck() && len(p.LegalMoves()) == 0
}

// IsStalemate reports whether the side to move has no legal move and is not in check.
func (p *Position) IsStalemate() bool {
	return !p.InCheck() && len(p.LegalMoves()) == 0
}

// IsInsufficientMaterial reports whether neither side can possibly mate:
// bare kings, a single minor piece, or only bishops all on one square color.
func (p *Position) IsInsufficientMaterial() bool {
	heavy := p.Pieces(White, Pawn) | p.Pieces(Black, Pawn) |
		p.Pieces(White, Rook) | p.Pieces(Black, Rook) |
		p.Pieces(White, Queen) | p.Pieces(Black, Queen)
	if heavy != 0 {
		return false
	}
	knights := (p.Pieces(White, Knight) | p.Pieces(Black, Knight)).PopCount()
	bishops := p.Pieces(White, Bishop) | p.Pieces(Black, Bishop)
	switch {
	case knights == 0:
		return bishops&LightSquares == 0 || bishops&^LightSquares == 0
	case knights == 1:
		return bishops == 0
	}
	return false
}

// CanClaimDraw reports whether a draw can be claimed by threefold repetition
// or the fifty-move rule.
func (p *Position) CanClaimDraw() bool {
	return p.halfMove >= 100 || p.RepetitionCount() >= 3
}

// IsDraw reports a drawn position other than stalemate: insufficient
// material, a claimable draw, or an automatic one (which is always claimable).
func (p *Position) IsDraw() bool {
	return p.IsInsufficientMaterial() || p.CanClaimDraw()
}

// IsGameOver reports whether the game has ended without any claim being made:
// checkmate, stalemate, insufficient material, fivefold repetition or the
// seventy-five-move rule.
func (p *Position) IsGameOver() bool {
	if len(p.LegalMoves()) == 0 {
		return true
	}
	return p.IsInsufficientMaterial() || p.halfMove >= 150 || p.RepetitionCount() >= 5
}

// Result returns the game result in PGN form, "*" while the game goes on.
func (p *Position) Result() string {
	switch {
	case p.IsCheckmate():
		if p.SideToMove() == White {
			return "0-1"
		}
		return "1-0"
	case p.IsGameOver():
		return "1/2-1/2"
	}
	return "*"
}

// String returns a text diagram of the board, rank 8 first.
func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		for file := 0; file < 8; file++ {
			sb.WriteByte(' ')
			sb.WriteString(p.PieceAt(NewSquare(file, rank)).String())
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	sb.WriteString(p.ToFEN())
	return sb.String()
}
