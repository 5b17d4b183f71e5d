package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/george-m2/cobra/internal/config"
)

// ErrNotFound is returned for unknown game IDs.
var ErrNotFound = errors.New("storage: not found")

// Storage keys
const (
	keySettings = "settings"
	keyStats    = "stats"
	gamePrefix  = "game/"
)

// GameRecord is a finished (or abandoned) game as seen by the engine.
type GameRecord struct {
	ID            string    `json:"id"`
	PGN           string    `json:"pgn"`
	Result        string    `json:"result"`
	Engine        string    `json:"engine"`
	EngineColor   string    `json:"engine_color"`
	Depth         int       `json:"depth"`
	Plies         int       `json:"plies"`
	BestMoveCount int       `json:"best_move_count"`
	BlunderCount  int       `json:"blunder_count"`
	ACPL          []float64 `json:"acpl,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Outcome classifies the result from the engine's side: "win", "loss",
// "draw" or "unfinished".
func (r *GameRecord) Outcome() string {
	switch r.Result {
	case "1/2-1/2":
		return "draw"
	case "1-0":
		if r.EngineColor == "white" {
			return "win"
		}
		return "loss"
	case "0-1":
		if r.EngineColor == "black" {
			return "win"
		}
		return "loss"
	}
	return "unfinished"
}

// GameStats aggregates every recorded game.
type GameStats struct {
	GamesPlayed   int           `json:"games_played"`
	EngineWins    int           `json:"engine_wins"`
	EngineLosses  int           `json:"engine_losses"`
	Draws         int           `json:"draws"`
	Unfinished    int           `json:"unfinished"`
	ClientMoves   int           `json:"client_moves"`
	BestMoves     int           `json:"best_moves"`
	Blunders      int           `json:"blunders"`
	TotalPlayTime time.Duration `json:"total_play_time"`
}

// Accuracy returns the share of client moves matching the strong engine's
// choice, as a percentage (0-100).
func (s *GameStats) Accuracy() float64 {
	if s.ClientMoves == 0 {
		return 0
	}
	return float64(s.BestMoves) / float64(s.ClientMoves) * 100
}

// EngineWinRate returns the engine's win rate as a percentage (0-100).
func (s *GameStats) EngineWinRate() float64 {
	if s.GamesPlayed == 0 {
		return 0
	}
	return float64(s.EngineWins) / float64(s.GamesPlayed) * 100
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// NewStorage opens the database in the per-platform data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := DatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir)
}

// Open opens (or creates) the database in dir.
func Open(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dir, err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func getJSON(txn *badger.Txn, key string, v any) (bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

// SaveSettings stores the settings of the current session.
func (s *Storage) SaveSettings(settings config.Settings) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, keySettings, settings)
	})
}

// LoadSettings returns the last saved settings. found is false, with
// defaults, when none were saved.
func (s *Storage) LoadSettings() (settings config.Settings, found bool, err error) {
	settings = config.Default()
	err = s.db.View(func(txn *badger.Txn) error {
		found, err = getJSON(txn, keySettings, &settings)
		return err
	})
	return settings, found, err
}

// LoadStats loads game statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*GameStats, error) {
	stats := &GameStats{}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := getJSON(txn, keyStats, stats)
		return err
	})
	return stats, err
}

func gameKey(id string) []byte {
	return []byte(gamePrefix + id)
}

// RecordGame stores a game record and folds it into the statistics in one
// transaction. It fills in the record's ID and FinishedAt when unset.
func (s *Storage) RecordGame(rec *GameRecord) error {
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	if rec.ID == "" {
		// Zero-padded so that keys sort chronologically.
		rec.ID = fmt.Sprintf("%020d", rec.FinishedAt.UnixNano())
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, string(gameKey(rec.ID)), rec); err != nil {
			return err
		}

		stats := &GameStats{}
		if _, err := getJSON(txn, keyStats, stats); err != nil {
			return err
		}

		stats.GamesPlayed++
		switch rec.Outcome() {
		case "win":
			stats.EngineWins++
		case "loss":
			stats.EngineLosses++
		case "draw":
			stats.Draws++
		default:
			stats.Unfinished++
		}
		stats.ClientMoves += clientMoves(rec)
		stats.BestMoves += rec.BestMoveCount
		stats.Blunders += rec.BlunderCount
		if !rec.StartedAt.IsZero() {
			stats.TotalPlayTime += rec.FinishedAt.Sub(rec.StartedAt)
		}

		return setJSON(txn, keyStats, stats)
	})
}

// clientMoves counts the moves of the side the engine does not play.
func clientMoves(rec *GameRecord) int {
	if rec.EngineColor == "white" {
		return rec.Plies / 2
	}
	return (rec.Plies + 1) / 2
}

// GetGame loads one game record by ID.
func (s *Storage) GetGame(id string) (*GameRecord, error) {
	rec := &GameRecord{}
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, string(gameKey(id)), rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: game %s", ErrNotFound, id)
	}
	return rec, nil
}

// ListGames returns up to limit game records, newest first. A limit of 0
// or less returns every game.
func (s *Storage) ListGames(limit int) ([]GameRecord, error) {
	var games []GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(gamePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append([]byte(gamePrefix), 0xFF)); it.Valid(); it.Next() {
			if limit > 0 && len(games) >= limit {
				break
			}
			var rec GameRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			games = append(games, rec)
		}
		return nil
	})
	return games, err
}
