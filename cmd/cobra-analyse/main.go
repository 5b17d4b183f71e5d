// Command cobra-analyse runs the engine and the post-game analysis from the
// command line.
//
//	cobra-analyse -pgn game.pgn [-stockfish path]
//	cobra-analyse -fen "<fen>" -depth 4
//	cobra-analyse -sample 12 -depth 3
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"lukechampine.com/frand"

	"github.com/george-m2/cobra/internal/analysis"
	"github.com/george-m2/cobra/internal/board"
	"github.com/george-m2/cobra/internal/engine"
	"github.com/george-m2/cobra/internal/external"
	"github.com/george-m2/cobra/internal/logging"
)

var (
	pgnFile   = flag.String("pgn", "", "analyse the game in this PGN file")
	fen       = flag.String("fen", "", "search this position")
	sample    = flag.Int("sample", 0, "search a position reached by this many random plies")
	depth     = flag.Int("depth", 3, "search depth")
	divisor   = flag.Int("capture-divisor", engine.DefaultCaptureDivisor, "attacker divisor for capture ordering")
	stockfish = flag.String("stockfish", "", "stockfish binary for the best move count; the engine itself is used when empty")
	skill     = flag.Int("skill-level", 20, "stockfish skill level")
	logLevel  = flag.String("log-level", "warn", "log level")
)

func main() {
	flag.Parse()
	logger := logging.New("console", *logLevel, os.Stderr)
	eng := engine.NewEngine(engine.Config{Depth: *depth, CaptureDivisor: *divisor}, logger)
	ctx := context.Background()

	var err error
	switch {
	case *pgnFile != "":
		err = analysePGN(ctx, eng)
	case *fen != "":
		var pos *board.Position
		if pos, err = board.ParseFEN(*fen); err == nil {
			err = search(ctx, eng, pos)
		}
	case *sample > 0:
		err = search(ctx, eng, randomPosition(*sample))
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "cobra-analyse:", err)
		os.Exit(1)
	}
}

func analysePGN(ctx context.Context, eng *engine.Engine) error {
	data, err := os.ReadFile(*pgnFile)
	if err != nil {
		return err
	}

	var oracle analysis.BestMover = eng
	if *stockfish != "" {
		sf, err := external.Open(external.Config{
			Path:       *stockfish,
			SkillLevel: *skill,
			Depth:      *depth,
			Logger:     logging.New("console", *logLevel, os.Stderr),
		})
		if err != nil {
			return err
		}
		defer sf.Close()
		oracle = sf
	}

	rep, err := analysis.AnalyseGame(ctx, string(data), oracle, eng)
	if err != nil {
		return err
	}
	fmt.Printf("best moves: %d\nblunders:   %d\n", rep.BestMoveCount, rep.BlunderCount)
	return nil
}

func search(ctx context.Context, eng *engine.Engine, pos *board.Position) error {
	fmt.Println(pos)
	res, err := eng.FindBestMove(ctx, pos)
	if err != nil {
		return err
	}
	san, err := pos.ToSAN(res.Move)
	if err != nil {
		return err
	}
	fmt.Printf("best move: %s (%s)\nscore:     %s\nnodes:     %d\ntime:      %s\n",
		san, res.Move, engine.ScoreToString(res.Score), res.Nodes, res.Elapsed)
	return nil
}

// randomPosition plays up to plies random legal moves from the start,
// stopping early if the game ends.
func randomPosition(plies int) *board.Position {
	pos := board.NewPosition()
	for i := 0; i < plies; i++ {
		moves := pos.LegalMoves()
		if len(moves) == 0 || pos.IsGameOver() {
			break
		}
		pos.MakeMove(moves[frand.Intn(len(moves))])
	}
	return pos
}
