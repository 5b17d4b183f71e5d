// Package session runs one game against a remote client. The client sends
// its moves in SAN, one message at a time, and gets back the engine's reply
// as a JSON object. The client plays White; the engine answers as Black.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/george-m2/cobra/internal/analysis"
	"github.com/george-m2/cobra/internal/board"
	"github.com/george-m2/cobra/internal/config"
	"github.com/george-m2/cobra/internal/engine"
	"github.com/george-m2/cobra/internal/external"
	"github.com/george-m2/cobra/internal/storage"
)

// Protocol commands. Any other message is a move.
const (
	CmdShutdown = "SHUTDOWN"
	CmdGameEnd  = "GAME_END"
	CmdNewGame  = "NEW_GAME"
	// CmdSettings is followed by a settings.json document, e.g.
	// SETTINGS {"selectedEngine":"Stockfish","depth":4}
	CmdSettings = "SETTINGS"
)

var (
	ErrGameOver = errors.New("session: game is over")
	ErrClosed   = errors.New("session: closed")
)

// MoveSource picks the engine's reply.
type MoveSource interface {
	BestMove(ctx context.Context, pos *board.Position) (board.Move, error)
}

// Oracle is a strong external engine: a move source, an evaluator for
// accuracy figures, and a process to be closed.
type Oracle interface {
	MoveSource
	analysis.Evaluator
	Close() error
}

// OracleOpener starts an oracle for the given settings.
type OracleOpener func(config.Settings) (Oracle, error)

// StockfishOpener opens Stockfish processes as oracles.
func StockfishOpener(logger zerolog.Logger) OracleOpener {
	return func(st config.Settings) (Oracle, error) {
		sf, err := external.Open(external.Config{
			Path:       st.StockfishPath,
			SkillLevel: st.SkillLevel,
			Depth:      st.Depth,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return sf, nil
	}
}

// Recorder persists finished games and the settings in use.
type Recorder interface {
	RecordGame(rec *storage.GameRecord) error
	SaveSettings(st config.Settings) error
}

// Options configure a Session. Only Settings is required.
type Options struct {
	Settings   config.Settings
	OpenOracle OracleOpener
	Recorder   Recorder
	Logger     zerolog.Logger
	// StartFEN is the initial position; empty means the standard one.
	StartFEN string
}

// Reply is the answer to one message. Unset fields are omitted.
type Reply struct {
	Move          string   `json:"move,omitempty"`
	ACPL          *float64 `json:"acpl,omitempty"`
	Result        string   `json:"result,omitempty"`
	BestMoveCount *int     `json:"bestMoveCount,omitempty"`
	BlunderCount  *int     `json:"blunderCount,omitempty"`
	Status        string   `json:"status,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func errorReply(err error) Reply {
	return Reply{Error: err.Error()}
}

// Session is one game. It is safe for concurrent use, though messages are
// handled one at a time.
type Session struct {
	mu sync.Mutex

	settings   config.Settings
	startFEN   string
	pos        *board.Position
	engine     *engine.Engine
	oracle     Oracle
	openOracle OracleOpener
	recorder   Recorder
	logger     zerolog.Logger

	startedAt time.Time
	acpl      []float64

	done     bool
	shutdown bool
}

// New validates the settings and starts a session. The oracle is opened now
// when the settings need one.
func New(opts Options) (*Session, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, err
	}
	fen := opts.StartFEN
	if fen == "" {
		fen = board.StartFEN
	}
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	if err := pos.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		startFEN:   fen,
		pos:        pos,
		openOracle: opts.OpenOracle,
		recorder:   opts.Recorder,
		logger:     opts.Logger.With().Str("component", "session").Logger(),
		startedAt:  time.Now(),
	}
	if err := s.configure(opts.Settings); err != nil {
		return nil, err
	}
	s.logger.Info().
		Int("depth", s.settings.Depth).
		Str("engine", string(s.settings.Engine)).
		Int("skill", s.settings.SkillLevel).
		Bool("acpl", s.settings.ACPL).
		Msg("session started")
	return s, nil
}

// configure builds the engine and swaps the oracle for the settings.
// Callers hold mu or own s exclusively.
func (s *Session) configure(st config.Settings) error {
	var oracle Oracle
	if st.NeedsStockfish() {
		switch {
		case s.openOracle != nil:
			o, err := s.openOracle(st)
			switch {
			case err == nil:
				oracle = o
			case st.UsesStockfish():
				return fmt.Errorf("session: open oracle: %w", err)
			default:
				s.logger.Warn().Err(err).Msg("no oracle, accuracy uses the static evaluation")
			}
		case st.UsesStockfish():
			return fmt.Errorf("session: engine %s but no oracle opener", st.Engine)
		default:
			s.logger.Warn().Msg("no oracle, accuracy uses the static evaluation")
		}
	}
	s.closeOracle()

	s.settings = st
	s.oracle = oracle
	s.engine = engine.NewEngine(engine.Config{
		Depth:          st.Depth,
		CaptureDivisor: st.CaptureDivisor,
	}, s.logger)
	return nil
}

func (s *Session) closeOracle() {
	if s.oracle == nil {
		return
	}
	if err := s.oracle.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("closing oracle")
	}
	s.oracle = nil
}

// Reconfigure applies new settings to the running game. The oracle is
// replaced; the position is kept.
func (s *Session) Reconfigure(st config.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return ErrClosed
	}
	return s.reconfigure(st)
}

func (s *Session) reconfigure(st config.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	if err := s.configure(st); err != nil {
		return err
	}
	if s.recorder != nil {
		if err := s.recorder.SaveSettings(st); err != nil {
			s.logger.Warn().Err(err).Msg("saving settings")
		}
	}
	s.logger.Info().
		Int("depth", st.Depth).
		Str("engine", string(st.Engine)).
		Int("skill", st.SkillLevel).
		Bool("acpl", st.ACPL).
		Msg("settings changed")
	return nil
}

// applySettings handles "SETTINGS <json>".
func (s *Session) applySettings(raw string) (Reply, error) {
	st, err := config.ApplyJSON(s.settings, []byte(raw))
	if err == nil {
		err = s.reconfigure(st)
	}
	if err != nil {
		return errorReply(err), err
	}
	return Reply{Status: "ok"}, nil
}

// Settings returns the active settings.
func (s *Session) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Position returns a copy of the current game.
func (s *Session) Position() *board.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos.Copy()
}

// Done reports whether the session has ended.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// ShutdownRequested reports whether the client asked the process to exit.
func (s *Session) ShutdownRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// Close ends the session and releases the oracle. It is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.close()
	return nil
}

func (s *Session) close() {
	if s.done {
		return
	}
	s.done = true
	s.closeOracle()
	s.logger.Info().Int("plies", s.pos.Ply()).Msg("session closed")
}

// Handle answers one message. Errors are also reported in the reply, so the
// reply can always be sent back to the client.
func (s *Session) Handle(ctx context.Context, msg string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg = strings.TrimSpace(msg)
	if s.done {
		return errorReply(ErrClosed), ErrClosed
	}
	s.logger.Debug().Str("msg", msg).Msg("received")

	switch msg {
	case CmdShutdown:
		s.shutdown = true
		s.close()
		return Reply{Status: "shutdown"}, nil
	case CmdGameEnd:
		return s.endGame(ctx)
	case CmdNewGame:
		s.newGame()
		return Reply{Status: "ok"}, nil
	}
	if raw, ok := strings.CutPrefix(msg, CmdSettings); ok {
		return s.applySettings(strings.TrimSpace(raw))
	}

	reply, err := s.playMove(ctx, msg)
	if err != nil {
		reply = errorReply(err)
		s.logger.Warn().Err(err).Str("msg", msg).Msg("move rejected")
	}
	return reply, err
}

func (s *Session) newGame() {
	pos, err := board.ParseFEN(s.startFEN)
	if err != nil {
		// startFEN was parsed in New.
		panic(err)
	}
	s.pos = pos
	s.acpl = nil
	s.startedAt = time.Now()
	s.logger.Info().Msg("new game")
}

func (s *Session) evaluator() analysis.Evaluator {
	if s.oracle != nil {
		return s.oracle
	}
	return analysis.StaticEvaluator{}
}

func (s *Session) moveSource() MoveSource {
	if s.settings.UsesStockfish() && s.oracle != nil {
		return s.oracle
	}
	return s.engine
}

func (s *Session) playMove(ctx context.Context, san string) (Reply, error) {
	pos := s.pos
	if pos.IsGameOver() {
		return Reply{}, fmt.Errorf("%w: %s", ErrGameOver, pos.Result())
	}
	m, err := pos.ParseSAN(san)
	if err != nil {
		return Reply{}, err
	}

	var reply Reply
	if s.settings.ACPL {
		cp, err := analysis.MoveACPL(ctx, pos, m, s.evaluator())
		if err != nil {
			s.logger.Warn().Err(err).Msg("acpl")
		} else {
			v := analysis.Pawns(cp)
			s.acpl = append(s.acpl, v)
			reply.ACPL = &v
		}
	}

	pos.MakeMove(m)
	if pos.IsGameOver() {
		reply.Result = pos.Result()
		s.logger.Info().Str("result", reply.Result).Msg("game over")
		return reply, nil
	}

	start := time.Now()
	mv, err := s.moveSource().BestMove(ctx, pos)
	if err != nil {
		pos.UnmakeMove()
		if reply.ACPL != nil {
			s.acpl = s.acpl[:len(s.acpl)-1]
		}
		return Reply{}, fmt.Errorf("session: choose reply: %w", err)
	}
	out, err := pos.ToSAN(mv)
	if err != nil {
		pos.UnmakeMove()
		if reply.ACPL != nil {
			s.acpl = s.acpl[:len(s.acpl)-1]
		}
		return Reply{}, err
	}
	pos.MakeMove(mv)

	reply.Move = out
	if pos.IsGameOver() {
		reply.Result = pos.Result()
	}
	s.logger.Info().
		Str("client", san).
		Str("reply", out).
		Dur("elapsed", time.Since(start)).
		Msg("move")
	return reply, nil
}

// endGame analyses and records the game, then closes the session.
func (s *Session) endGame(ctx context.Context) (Reply, error) {
	defer s.close()

	result := s.pos.Result()
	pgn, err := s.pos.PGN(map[string]string{
		"Event":  "cobra",
		"White":  "Player",
		"Black":  string(s.settings.Engine),
		"Result": result,
	})
	if err != nil {
		return errorReply(err), err
	}

	oracle := s.oracle
	if oracle == nil && s.openOracle != nil {
		if o, err := s.openOracle(s.settings); err != nil {
			s.logger.Warn().Err(err).Msg("no oracle for analysis, skipping best move count")
		} else {
			s.oracle, oracle = o, o
		}
	}
	var bestMover analysis.BestMover
	if oracle != nil {
		bestMover = oracle
	}

	rep, err := analysis.AnalyseGame(ctx, pgn, bestMover, s.engine)
	if err != nil {
		return errorReply(err), err
	}
	s.logger.Info().
		Int("best_moves", rep.BestMoveCount).
		Int("blunders", rep.BlunderCount).
		Str("result", result).
		Msg("game analysed")

	if s.recorder != nil {
		rec := &storage.GameRecord{
			PGN:           pgn,
			Result:        result,
			Engine:        string(s.settings.Engine),
			EngineColor:   "black",
			Depth:         s.settings.Depth,
			Plies:         s.pos.Ply(),
			BestMoveCount: rep.BestMoveCount,
			BlunderCount:  rep.BlunderCount,
			ACPL:          s.acpl,
			StartedAt:     s.startedAt,
			FinishedAt:    time.Now(),
		}
		if err := s.recorder.RecordGame(rec); err != nil {
			s.logger.Error().Err(err).Msg("recording game")
		}
	}

	return Reply{BestMoveCount: &rep.BestMoveCount, BlunderCount: &rep.BlunderCount}, nil
}
