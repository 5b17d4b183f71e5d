// Package config builds the validated settings a session runs with.
//
// Sources, lowest precedence first: Default, the front-end's settings.json,
// environment variables (a .env file is loaded automatically) and finally
// command-line flags registered with RegisterFlags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

// ErrInvalidSettings is wrapped by every validation error.
var ErrInvalidSettings = errors.New("config: invalid settings")

// EngineKind selects who answers the client's moves.
type EngineKind string

const (
	EngineCobra     EngineKind = "cobra"
	EngineStockfish EngineKind = "stockfish"
)

// Limits
const (
	MinDepth          = 1
	MaxDepth          = 10
	MinSkillLevel     = 0
	MaxSkillLevel     = 20
	MaxCaptureDivisor = 100
)

// Settings is everything a session needs to know, built once and passed
// down to the engine and transport.
type Settings struct {
	Depth          int        `json:"depth"`
	Engine         EngineKind `json:"engine"`
	SkillLevel     int        `json:"skill_level"`
	ACPL           bool       `json:"acpl"`
	CaptureDivisor int        `json:"capture_divisor"`
	StockfishPath  string     `json:"stockfish_path"`
	Addr           string     `json:"addr"`
	DataDir        string     `json:"data_dir"`

	Logs LogConfig `json:"-"`
}

type LogConfig struct {
	Style string
	Level string
}

// Default returns the settings used when nothing else is configured.
func Default() Settings {
	return Settings{
		Depth:          3,
		Engine:         EngineCobra,
		SkillLevel:     2,
		CaptureDivisor: 1,
		StockfishPath:  "stockfish",
		Addr:           "127.0.0.1:5555",
		Logs:           LogConfig{Level: "info"},
	}
}

// Validate checks every field against its limits.
func (s Settings) Validate() error {
	if s.Depth < MinDepth || s.Depth > MaxDepth {
		return fmt.Errorf("%w: depth %d not in [%d, %d]", ErrInvalidSettings, s.Depth, MinDepth, MaxDepth)
	}
	if _, err := ParseEngine(string(s.Engine)); err != nil {
		return err
	}
	if s.SkillLevel < MinSkillLevel || s.SkillLevel > MaxSkillLevel {
		return fmt.Errorf("%w: skill level %d not in [%d, %d]", ErrInvalidSettings, s.SkillLevel, MinSkillLevel, MaxSkillLevel)
	}
	if s.CaptureDivisor < 1 || s.CaptureDivisor > MaxCaptureDivisor {
		return fmt.Errorf("%w: capture divisor %d not in [1, %d]", ErrInvalidSettings, s.CaptureDivisor, MaxCaptureDivisor)
	}
	if s.NeedsStockfish() && s.StockfishPath == "" {
		return fmt.Errorf("%w: stockfish path is empty", ErrInvalidSettings)
	}
	return nil
}

// UsesStockfish reports whether Stockfish answers the client's moves.
func (s Settings) UsesStockfish() bool {
	return s.Engine == EngineStockfish
}

// NeedsStockfish reports whether a Stockfish process should be started:
// to play, or to score moves for ACPL.
func (s Settings) NeedsStockfish() bool {
	return s.UsesStockfish() || s.ACPL
}

// ParseEngine accepts "cobra" or "stockfish" in any case, ignoring spaces.
func ParseEngine(name string) (EngineKind, error) {
	switch EngineKind(strings.ToLower(strings.TrimSpace(name))) {
	case EngineCobra:
		return EngineCobra, nil
	case EngineStockfish:
		return EngineStockfish, nil
	}
	return "", fmt.Errorf("%w: unknown engine %q", ErrInvalidSettings, name)
}

// frontEndSettings is the settings.json written by the game client.
type frontEndSettings struct {
	SelectedEngine      string `json:"selectedEngine"`
	Depth               *int   `json:"depth"`
	StockfishSkillLevel *int   `json:"stockfishSkillLevel"`
	ACPL                *bool  `json:"ACPL"`
}

// SettingsFilePath returns where the game client keeps its settings.json.
func SettingsFilePath() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "..", "LocalLow", "DefaultCompany", "Chess.NET", "settings.json")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "DefaultCompany", "Chess_NET", "settings.json")
	default:
		return filepath.Join(home, ".config", "unity3d", "DefaultCompany", "Chess.NET", "settings.json")
	}
}

// ApplyFile overlays the client's settings.json on base. A missing file
// leaves base unchanged; an unknown engine name resets to Default.
func ApplyFile(base Settings, path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return base, fmt.Errorf("config: read %s: %w", path, err)
	}

	s, err := ApplyJSON(base, data)
	if err != nil {
		return base, fmt.Errorf("config: %s: %w", path, err)
	}
	return s, nil
}

// ApplyJSON overlays a settings.json document, as written by the game
// client, on base. An unknown engine name resets to Default.
func ApplyJSON(base Settings, data []byte) (Settings, error) {
	var fe frontEndSettings
	if err := json.Unmarshal(data, &fe); err != nil {
		return base, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	engine, err := ParseEngine(fe.SelectedEngine)
	if err != nil {
		d := Default()
		d.StockfishPath, d.Addr, d.DataDir, d.Logs = base.StockfishPath, base.Addr, base.DataDir, base.Logs
		return d, nil
	}

	s := base
	s.Engine = engine
	if fe.Depth != nil {
		s.Depth = *fe.Depth
	}
	if fe.StockfishSkillLevel != nil && engine == EngineStockfish {
		s.SkillLevel = *fe.StockfishSkillLevel
	}
	if fe.ACPL != nil {
		s.ACPL = *fe.ACPL
	}
	return s, nil
}

// ApplyEnv overlays environment variables on base.
func ApplyEnv(base Settings) (Settings, error) {
	s := base
	var err error

	if s.Depth, err = envInt("COBRA_DEPTH", s.Depth); err != nil {
		return base, err
	}
	if s.SkillLevel, err = envInt("COBRA_SKILL_LEVEL", s.SkillLevel); err != nil {
		return base, err
	}
	if s.CaptureDivisor, err = envInt("COBRA_CAPTURE_DIVISOR", s.CaptureDivisor); err != nil {
		return base, err
	}
	if v := os.Getenv("COBRA_ENGINE"); v != "" {
		if s.Engine, err = ParseEngine(v); err != nil {
			return base, err
		}
	}
	if v := os.Getenv("COBRA_ACPL"); v != "" {
		if s.ACPL, err = strconv.ParseBool(v); err != nil {
			return base, fmt.Errorf("%w: COBRA_ACPL: %v", ErrInvalidSettings, err)
		}
	}
	if v := os.Getenv("STOCKFISH_PATH"); v != "" {
		s.StockfishPath = v
	}
	if v := os.Getenv("COBRA_ADDR"); v != "" {
		s.Addr = v
	}
	if v := os.Getenv("COBRA_DATA_DIR"); v != "" {
		s.DataDir = v
	}
	if v := os.Getenv("LOG_STYLE"); v != "" {
		s.Logs.Style = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		s.Logs.Level = v
	}
	return s, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, key, err)
	}
	return n, nil
}

// Load builds settings from defaults, the settings file at path and the
// environment. Flags are applied by the caller; validate afterwards.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		var err error
		if s, err = ApplyFile(s, path); err != nil {
			return s, err
		}
	}
	return ApplyEnv(s)
}
