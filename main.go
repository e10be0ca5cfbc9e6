package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"othello/communication/server"
	"othello/config"
	"othello/experiments"
	"othello/game"
	"othello/searcher"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	mode := flag.String("mode", "suggest", "arena, throughput, serve or suggest")
	logLevel := flag.String("log-level", "", "Overrides the configured log level")
	moves := flag.String("moves", "", "Comma-separated actions played from the start before suggesting")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch *mode {
	case "arena":
		err = runArena(ctx, cfg)
	case "throughput":
		err = runThroughput(ctx, cfg)
	case "serve":
		err = serve(ctx, cfg)
	case "suggest":
		err = suggest(ctx, cfg, *moves)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatal().Err(err).Msgf("%s failed", *mode)
	}
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Msgf("unknown log level %q, using info", level)
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

func newMCTS(cfg config.Config) (*searcher.MCTS, error) {
	evaluator, err := cfg.NewEvaluator()
	if err != nil {
		return nil, err
	}
	return searcher.NewMCTS(cfg.BoardSize, evaluator, cfg.Search.Options()...)
}

func runArena(ctx context.Context, cfg config.Config) error {
	evaluator, err := cfg.NewEvaluator()
	if err != nil {
		return err
	}
	results, err := experiments.RunArena(ctx, experiments.Settings{
		BoardSize: cfg.BoardSize,
		NumGames:  cfg.Arena.Games,
		MaxPlies:  cfg.Arena.MaxPlies,
		OutputDir: cfg.Arena.OutputDir,
		Evaluator: evaluator,
	}, cfg.Arena.AgentConfigs())
	if err != nil {
		return err
	}
	printMatchups(results)
	return nil
}

// runThroughput plays self-play games for each configured goroutine count
// and charts playouts per second.
func runThroughput(ctx context.Context, cfg config.Config) error {
	evaluator, err := cfg.NewEvaluator()
	if err != nil {
		return err
	}
	results, err := experiments.RunThroughputExperiment(ctx, experiments.Settings{
		BoardSize: cfg.BoardSize,
		NumGames:  cfg.Throughput.Games,
		MaxPlies:  cfg.Arena.MaxPlies,
		OutputDir: cfg.Arena.OutputDir,
		Evaluator: evaluator,
	}, cfg.Throughput.Goroutines, cfg.Throughput.Duration, cfg.Throughput.Simulations)
	if err != nil {
		return err
	}
	printMatchups(results)
	return nil
}

func printMatchups(results experiments.Results) {
	for _, m := range results.Matchups {
		if m.SelfPlay {
			fmt.Printf("agent %d self-play: %s white wins, %s draws, %s black wins\n",
				m.Agent1, aurora.Green(m.Wins1), aurora.Yellow(m.Draws), aurora.Blue(m.Wins2))
			continue
		}
		fmt.Printf("agent %d vs agent %d: %s wins, %s draws, %s losses\n",
			m.Agent1, m.Agent2, aurora.Green(m.Wins1), aurora.Yellow(m.Draws), aurora.Red(m.Wins2))
	}
	if results.Dir != "" {
		fmt.Printf("records in %s\n", results.Dir)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	mcts, err := newMCTS(cfg)
	if err != nil {
		return err
	}
	srv := server.New(mcts, cfg.BoardSize, server.Defaults{
		Simulations: cfg.Search.Simulations,
		Exploration: cfg.Search.Exploration,
		Temperature: cfg.Search.Temperature,
	})
	return srv.Run(ctx, cfg.Server.Addr)
}

func suggest(ctx context.Context, cfg config.Config, moves string) error {
	pos, err := game.InitialPosition(cfg.BoardSize)
	if err != nil {
		return err
	}
	for _, field := range strings.FieldsFunc(moves, func(r rune) bool { return r == ',' }) {
		action, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return fmt.Errorf("invalid action %q: %w", field, err)
		}
		if pos, err = game.ApplyMove(pos, game.Action(action)); err != nil {
			return err
		}
	}

	mcts, err := newMCTS(cfg)
	if err != nil {
		return err
	}
	dist, err := mcts.ComputeActionProbabilities(ctx, pos, cfg.Search.Simulations, cfg.Search.Exploration, cfg.Search.Temperature)
	if err != nil {
		return err
	}
	// Shaping keeps the order of visit counts, so this is the most visited action
	best := game.Action(floats.MaxIdx(dist))

	printBoard(pos, best)
	fmt.Printf("%s to move, outcome so far: %s\n", pos.Player, game.GameOutcome(pos))
	for a, p := range dist {
		if p > 0 {
			fmt.Printf("  action %3d  %.3f\n", a, p)
		}
	}
	if best.IsPass(cfg.BoardSize) {
		fmt.Println(aurora.Yellow("suggested: pass"))
	} else {
		row, col := best.Cell(cfg.BoardSize)
		fmt.Println(aurora.Yellow(fmt.Sprintf("suggested: action %d (row %d, col %d)", best, row, col)))
	}
	return nil
}

// printBoard draws White as green O, Black as blue X and the suggestion as *.
func printBoard(pos game.Position, best game.Action) {
	size := pos.Size()
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			switch {
			case game.ActionAt(size, row, col) == best:
				fmt.Print(aurora.Yellow("* "))
			case pos.Board.At(row, col) == game.White:
				fmt.Print(aurora.Green("O "))
			case pos.Board.At(row, col) == game.Black:
				fmt.Print(aurora.Blue("X "))
			default:
				fmt.Print(". ")
			}
		}
		fmt.Println()
	}
}
