package engine

import "errors"

var (
	// ErrInvalidDepth is returned for a search depth below 1.
	ErrInvalidDepth = errors.New("engine: search depth must be at least 1")
	// ErrNoLegalMoves is returned when the game is already over at the root.
	ErrNoLegalMoves = errors.New("engine: no legal moves")
	// ErrEvaluatorFault is returned for positions that cannot be evaluated,
	// such as a missing king.
	ErrEvaluatorFault = errors.New("engine: position cannot be evaluated")
)
