package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/george-m2/cobra/internal/board"
)

// Result describes a finished search.
type Result struct {
	Move    board.Move
	Score   int
	Depth   int
	Nodes   uint64
	Elapsed time.Duration
}

// Config configures an Engine.
type Config struct {
	Depth          int
	CaptureDivisor int
	// DisablePruning runs the exhaustive minimax instead of alpha-beta.
	DisablePruning bool
}

// Engine is the chess engine: a fixed-depth search with a configured move
// orderer. An Engine holds no per-game state and may be reused across games,
// but not concurrently.
type Engine struct {
	depth   int
	pruning bool
	orderer *MoveOrderer
	logger  zerolog.Logger

	// Callbacks
	OnInfo func(Result)
}

// NewEngine creates an engine. The depth is validated when searching.
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	return &Engine{
		depth:   cfg.Depth,
		pruning: !cfg.DisablePruning,
		orderer: NewMoveOrderer(cfg.CaptureDivisor),
		logger:  logger.With().Str("component", "engine").Logger(),
	}
}

// Depth returns the configured search depth.
func (e *Engine) Depth() int {
	return e.depth
}

// FindBestMove searches the position and returns the chosen move. The
// position is left as it was given. ctx is only checked before searching.
func (e *Engine) FindBestMove(ctx context.Context, pos *board.Position) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	start := time.Now()
	s := NewSearcher(e.orderer, e.pruning)
	move, score, err := s.Search(pos, e.depth)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Move:    move,
		Score:   score,
		Depth:   e.depth,
		Nodes:   s.Nodes(),
		Elapsed: time.Since(start),
	}
	e.logger.Info().
		Str("move", move.String()).
		Int("depth", res.Depth).
		Int("score", res.Score).
		Uint64("nodes", res.Nodes).
		Dur("elapsed", res.Elapsed).
		Msg("search finished")

	if e.OnInfo != nil {
		e.OnInfo(res)
	}
	return res, nil
}

// BestMove returns only the move of FindBestMove.
func (e *Engine) BestMove(ctx context.Context, pos *board.Position) (board.Move, error) {
	res, err := e.FindBestMove(ctx, pos)
	if err != nil {
		return board.NoMove, err
	}
	return res.Move, nil
}

// OrderedMoves returns the legal moves of the position, best first for the
// side to move.
func (e *Engine) OrderedMoves(pos *board.Position) []board.Move {
	return e.orderer.OrderedMoves(pos)
}

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}

	moves := pos.LegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}

	var nodes uint64
	for _, m := range moves {
		pos.MakeMove(m)
		nodes += e.Perft(pos, depth-1)
		pos.UnmakeMove()
	}

	return nodes
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// ScoreToString converts a score to pawns, e.g. "-1.25", or "Mate" / "-Mate".
func ScoreToString(score int) string {
	switch {
	case score >= MateScore:
		return "Mate"
	case score <= -MateScore:
		return "-Mate"
	}
	return fmt.Sprintf("%.2f", float64(score)/100)
}
