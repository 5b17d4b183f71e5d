package engine

import (
	"fmt"

	"github.com/george-m2/cobra/internal/board"
)

// Search constants
const (
	// MateScore is the score of a checkmate, positive when White mates. It
	// does not depend on the distance to mate.
	MateScore = 100000
	// Infinity seeds alpha and beta; no reachable score equals it.
	Infinity  = 1 << 20
	DrawScore = 0
)

// Options control a search.
type Options struct {
	// Pruning enables alpha-beta cut-offs. Without it the search visits the
	// full minimax tree; the result is the same.
	Pruning bool
	// CaptureDivisor scales the attacker's value in CaptureScore.
	CaptureDivisor int
}

// DefaultOptions are the options used by FindBestMove.
var DefaultOptions = Options{Pruning: true, CaptureDivisor: DefaultCaptureDivisor}

// Searcher performs one minimax search at a time on a borrowed position.
// Every move it makes is taken back before it returns.
type Searcher struct {
	pos     *board.Position
	orderer *MoveOrderer
	pruning bool
	nodes   uint64
}

// NewSearcher creates a searcher using the given move orderer.
func NewSearcher(orderer *MoveOrderer, pruning bool) *Searcher {
	if orderer == nil {
		orderer = NewMoveOrderer(DefaultCaptureDivisor)
	}
	return &Searcher{orderer: orderer, pruning: pruning}
}

// Nodes returns the number of nodes visited by the last search.
func (s *Searcher) Nodes() uint64 {
	return s.nodes
}

// Search returns the best move for the side to move and its score.
// White maximizes the score and Black minimizes it.
func (s *Searcher) Search(pos *board.Position, depth int) (board.Move, int, error) {
	if depth < 1 {
		return board.NoMove, 0, fmt.Errorf("%w: %d", ErrInvalidDepth, depth)
	}
	if err := pos.Validate(); err != nil {
		return board.NoMove, 0, fmt.Errorf("%w: %v", ErrEvaluatorFault, err)
	}

	moves := pos.LegalMoves()
	if len(moves) == 0 {
		status := "stalemate"
		if pos.InCheck() {
			status = "checkmate"
		}
		return board.NoMove, 0, fmt.Errorf("%w: %s", ErrNoLegalMoves, status)
	}

	s.pos = pos
	s.nodes = 1
	defer func() { s.pos = nil }()

	s.orderer.Order(pos, moves)
	maximize := pos.SideToMove() == board.White

	bestMove := board.NoMove
	bestScore := Infinity
	if maximize {
		bestScore = -Infinity
	}
	alpha, beta := -Infinity, Infinity

	for _, m := range moves {
		pos.MakeMove(m)
		var score int
		if pos.CanClaimDraw() {
			// The opponent would claim rather than play on.
			score = DrawScore
		} else {
			score = s.minimax(depth-1, alpha, beta, !maximize)
		}
		pos.UnmakeMove()

		if maximize {
			if score > bestScore {
				bestScore, bestMove = score, m
			}
			if s.pruning && bestScore > alpha {
				alpha = bestScore
			}
		} else {
			if score < bestScore {
				bestScore, bestMove = score, m
			}
			if s.pruning && bestScore < beta {
				beta = bestScore
			}
		}
	}

	return bestMove, bestScore, nil
}

// minimax scores the current position. maximize is true when White is to move.
func (s *Searcher) minimax(depth, alpha, beta int, maximize bool) int {
	s.nodes++
	pos := s.pos

	moves := pos.LegalMoves()
	if len(moves) == 0 {
		if pos.InCheck() {
			if maximize {
				return -MateScore
			}
			return MateScore
		}
		return DrawScore
	}
	if pos.IsDraw() {
		return DrawScore
	}
	if depth <= 0 {
		return Evaluate(pos)
	}

	s.orderer.Order(pos, moves)

	if maximize {
		best := -Infinity
		for _, m := range moves {
			pos.MakeMove(m)
			score := s.minimax(depth-1, alpha, beta, false)
			pos.UnmakeMove()

			if score > best {
				best = score
			}
			if best > alpha {
				alpha = best
			}
			if s.pruning && beta <= alpha {
				break
			}
		}
		return best
	}

	best := Infinity
	for _, m := range moves {
		pos.MakeMove(m)
		score := s.minimax(depth-1, alpha, beta, true)
		pos.UnmakeMove()

		if score < best {
			best = score
		}
		if best < beta {
			beta = best
		}
		if s.pruning && beta <= alpha {
			break
		}
	}
	return best
}

// FindBestMove searches the position to the given depth with opts.
func FindBestMove(pos *board.Position, depth int, opts Options) (Result, error) {
	s := NewSearcher(NewMoveOrderer(opts.CaptureDivisor), opts.Pruning)
	move, score, err := s.Search(pos, depth)
	if err != nil {
		return Result{}, err
	}
	return Result{Move: move, Score: score, Depth: depth, Nodes: s.Nodes()}, nil
}
