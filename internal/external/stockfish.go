// Package external drives a strong UCI engine (Stockfish) as an alternative
// move source and as the reference scorer for post-game analysis.
package external

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/notnil/chess/uci"
	"github.com/rs/zerolog"

	"github.com/george-m2/cobra/internal/board"
	"github.com/george-m2/cobra/internal/engine"
)

// ErrNotRunning is returned by calls on a closed (or never opened) engine.
var ErrNotRunning = errors.New("external: engine is not running")

// Config configures a Stockfish process.
type Config struct {
	Path       string
	SkillLevel int
	Depth      int
	Logger     zerolog.Logger
}

// Score is a UCI score from the side to move: centipawns, or moves to mate
// when Mate is non-zero (negative when being mated).
type Score struct {
	CP   int
	Mate int
}

// Centipawns flattens the score, mapping mates to ±engine.MateScore.
func (s Score) Centipawns() int {
	switch {
	case s.Mate > 0:
		return engine.MateScore
	case s.Mate < 0:
		return -engine.MateScore
	}
	return s.CP
}

// Stockfish is a running UCI engine process. Calls are serialized.
type Stockfish struct {
	mu  sync.Mutex
	eng *uci.Engine
	cfg Config
	log zerolog.Logger
}

// Open starts the engine and configures its skill level.
func Open(cfg Config) (*Stockfish, error) {
	if cfg.Path == "" {
		cfg.Path = "stockfish"
	}
	if cfg.Depth < 1 {
		cfg.Depth = 1
	}

	eng, err := uci.New(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("external: start %s: %w", cfg.Path, err)
	}

	skill := uci.CmdSetOption{Name: "Skill Level", Value: strconv.Itoa(cfg.SkillLevel)}
	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, skill, uci.CmdUCINewGame); err != nil {
		eng.Close()
		return nil, fmt.Errorf("external: initialise %s: %w", cfg.Path, err)
	}

	log := cfg.Logger.With().Str("component", "stockfish").Logger()
	log.Info().Str("path", cfg.Path).Int("skill", cfg.SkillLevel).Int("depth", cfg.Depth).Msg("engine started")
	return &Stockfish{eng: eng, cfg: cfg, log: log}, nil
}

type searchResult struct {
	best  string
	score Score
}

// search runs "go depth" on the position. ctx is checked before the engine
// is asked; a running search is not interrupted.
func (s *Stockfish) search(ctx context.Context, pos *board.Position) (searchResult, error) {
	if err := ctx.Err(); err != nil {
		return searchResult{}, err
	}
	cp, err := pos.ChessPosition()
	if err != nil {
		return searchResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng == nil {
		return searchResult{}, ErrNotRunning
	}

	if err := s.eng.Run(uci.CmdPosition{Position: cp}, uci.CmdGo{Depth: s.cfg.Depth}); err != nil {
		return searchResult{}, fmt.Errorf("external: search: %w", err)
	}
	res := s.eng.SearchResults()
	if res.BestMove == nil {
		return searchResult{}, fmt.Errorf("external: search: no best move for %s", pos.ToFEN())
	}
	return searchResult{
		best:  res.BestMove.String(),
		score: Score{CP: res.Info.Score.CP, Mate: res.Info.Score.Mate},
	}, nil
}

// BestMove returns the engine's move for the position.
func (s *Stockfish) BestMove(ctx context.Context, pos *board.Position) (board.Move, error) {
	res, err := s.search(ctx, pos)
	if err != nil {
		return board.NoMove, err
	}
	m, err := pos.ParseMove(res.best)
	if err != nil {
		return board.NoMove, fmt.Errorf("external: engine move: %w", err)
	}
	s.log.Debug().Str("fen", pos.ToFEN()).Str("move", res.best).Msg("best move")
	return m, nil
}

// Analyse returns the engine's score of the position.
func (s *Stockfish) Analyse(ctx context.Context, pos *board.Position) (Score, error) {
	res, err := s.search(ctx, pos)
	if err != nil {
		return Score{}, err
	}
	return res.score, nil
}

// Evaluate returns the engine's score in centipawns from the side to move.
func (s *Stockfish) Evaluate(ctx context.Context, pos *board.Position) (int, error) {
	score, err := s.Analyse(ctx, pos)
	if err != nil {
		return 0, err
	}
	return score.Centipawns(), nil
}

// NewGame tells the engine a new game starts.
func (s *Stockfish) NewGame() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng == nil {
		return ErrNotRunning
	}
	return s.eng.Run(uci.CmdUCINewGame, uci.CmdIsReady)
}

// Close stops the engine process. Closing twice is a no-op.
func (s *Stockfish) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eng == nil {
		return nil
	}
	s.eng.Close()
	s.eng = nil
	s.log.Info().Msg("engine stopped")
	return nil
}
