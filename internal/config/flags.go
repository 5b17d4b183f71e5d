package config

import "flag"

// String implements flag.Value.
func (k *EngineKind) String() string {
	return string(*k)
}

// Set implements flag.Value.
func (k *EngineKind) Set(v string) error {
	e, err := ParseEngine(v)
	if err != nil {
		return err
	}
	*k = e
	return nil
}

// RegisterFlags binds the settings fields to fs. Current values become the
// flag defaults, so flags only override what the user passes.
func RegisterFlags(fs *flag.FlagSet, s *Settings) {
	fs.IntVar(&s.Depth, "depth", s.Depth, "search depth in plies")
	fs.Var(&s.Engine, "engine", "engine answering moves: cobra or stockfish")
	fs.IntVar(&s.SkillLevel, "skill-level", s.SkillLevel, "Stockfish skill level (0-20)")
	fs.BoolVar(&s.ACPL, "acpl", s.ACPL, "report the centipawn loss of each reply")
	fs.IntVar(&s.CaptureDivisor, "capture-divisor", s.CaptureDivisor, "divisor applied to the attacker in capture ordering")
	fs.StringVar(&s.StockfishPath, "stockfish", s.StockfishPath, "path to the Stockfish binary")
	fs.StringVar(&s.Addr, "addr", s.Addr, "listen address")
	fs.StringVar(&s.DataDir, "data-dir", s.DataDir, "database directory (default: per-platform data dir)")
}
