// Package analysis scores a finished game: how often the player found the
// strong engine's move, how often they picked one of the worst moves on the
// board, and the centipawn loss of single moves.
package analysis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/george-m2/cobra/internal/board"
	"github.com/george-m2/cobra/internal/engine"
)

// BlunderFraction is the share of a position's ordered moves, counted from
// the worst end, that are blunders.
const BlunderFraction = 0.25

// BestMover picks a move for the side to move.
type BestMover interface {
	BestMove(ctx context.Context, pos *board.Position) (board.Move, error)
}

// Evaluator scores a position in centipawns from the side to move.
type Evaluator interface {
	Evaluate(ctx context.Context, pos *board.Position) (int, error)
}

// Orderer lists the legal moves of a position, best first for the side to move.
type Orderer interface {
	OrderedMoves(pos *board.Position) []board.Move
}

// StaticEvaluator evaluates with the engine's static evaluation.
type StaticEvaluator struct{}

func (StaticEvaluator) Evaluate(ctx context.Context, pos *board.Position) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	score := engine.Evaluate(pos)
	if pos.SideToMove() == board.Black {
		score = -score
	}
	return score, nil
}

// Report is the post-game summary sent to the client.
type Report struct {
	BestMoveCount int `json:"bestMoveCount"`
	BlunderCount  int `json:"blunderCount"`
}

// BestMoveCount replays the game and counts White's moves that equal the
// oracle's choice in the same position.
func BestMoveCount(ctx context.Context, pgn string, oracle BestMover) (int, error) {
	pos, moves, err := board.ParseGame(pgn)
	if err != nil {
		return 0, err
	}

	count := 0
	for i, m := range moves {
		if pos.SideToMove() == board.White {
			best, err := oracle.BestMove(ctx, pos)
			if err != nil {
				return count, fmt.Errorf("analysis: move %d: %w", i+1, err)
			}
			if best == m {
				count++
			}
		}
		pos.MakeMove(m)
	}
	return count, nil
}

// BlunderCount replays the game and counts the moves, of either side, found
// among the worst quarter of the ordered legal moves of their position.
func BlunderCount(pgn string, orderer Orderer) (int, error) {
	pos, moves, err := board.ParseGame(pgn)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range moves {
		if IsBlunder(orderer.OrderedMoves(pos), m) {
			count++
		}
		pos.MakeMove(m)
	}
	return count, nil
}

// IsBlunder reports whether m is among the last int(len*BlunderFraction)
// entries of ordered. With fewer than four moves nothing is a blunder.
func IsBlunder(ordered []board.Move, m board.Move) bool {
	n := int(float64(len(ordered)) * BlunderFraction)
	if n == 0 {
		return false
	}
	for _, o := range ordered[len(ordered)-n:] {
		if o == m {
			return true
		}
	}
	return false
}

// MoveACPL returns the centipawns the side to move loses by playing m rather
// than holding the evaluation of the current position. It is never negative.
// The position is left unchanged.
func MoveACPL(ctx context.Context, pos *board.Position, m board.Move, ev Evaluator) (int, error) {
	before, err := ev.Evaluate(ctx, pos)
	if err != nil {
		return 0, err
	}

	pos.MakeMove(m)
	after, err := ev.Evaluate(ctx, pos)
	pos.UnmakeMove()
	if err != nil {
		return 0, err
	}

	// after is from the opponent's side.
	loss := before + after
	if loss < 0 {
		return 0, nil
	}
	return loss, nil
}

// Pawns converts a centipawn loss to pawns, as sent to the client.
func Pawns(cp int) float64 {
	return float64(cp) / 100
}

// AnalyseGame runs both counts concurrently. A nil oracle leaves
// BestMoveCount at zero.
func AnalyseGame(ctx context.Context, pgn string, oracle BestMover, orderer Orderer) (Report, error) {
	var rep Report
	g, gctx := errgroup.WithContext(ctx)

	if oracle != nil {
		g.Go(func() error {
			n, err := BestMoveCount(gctx, pgn, oracle)
			rep.BestMoveCount = n
			return err
		})
	}
	g.Go(func() error {
		n, err := BlunderCount(pgn, orderer)
		rep.BlunderCount = n
		return err
	})

	if err := g.Wait(); err != nil {
		return rep, err
	}
	return rep, nil
}
