package experiments

import (
	"context"
	"fmt"
	"othello/agent"
	"othello/communication/client"
	"othello/engine"
	"othello/experiments/metrics"
	"othello/game"
	"othello/searcher"

	"github.com/rs/zerolog/log"
)

// Settings shared by every game of an experiment.
type Settings struct {
	BoardSize int
	NumGames  int // Per match up
	MaxPlies  int
	OutputDir string // Results are only written when set
	Evaluator searcher.Evaluator
}

// MatchupResult counts results from the point of view of the match up order,
// whichever colour each agent played. When an agent plays itself, Wins1
// counts White wins and Wins2 Black wins.
type MatchupResult struct {
	Agent1   int
	Agent2   int
	Wins1    int
	Wins2    int
	Draws    int
	SelfPlay bool
}

type Results struct {
	Matchups []MatchupResult
	Games    []metrics.GameRecord
	Moves    []metrics.MoveRecord
	Dir      string // Where the records were written, if anywhere
}

// RunArena pairs every configuration against the first one, the baseline.
func RunArena(ctx context.Context, s Settings, configs []metrics.AgentConfig) (Results, error) {
	if len(configs) < 2 {
		return Results{}, fmt.Errorf("arena needs a baseline and at least one challenger")
	}
	baseline := configs[0]
	matchUps := [][2]metrics.AgentConfig{}
	for _, config := range configs[1:] {
		matchUps = append(matchUps, [2]metrics.AgentConfig{baseline, config})
	}
	return runExperiment(ctx, s, "arena", configs, matchUps)
}

func runExperiment(ctx context.Context, s Settings, name string, configs []metrics.AgentConfig, matchUps [][2]metrics.AgentConfig) (Results, error) {
	results := Results{}
	count := 0

	log.Info().Msgf("starting %s experiment...", name)

	for mi, matchup := range matchUps {
		config1, config2 := matchup[0], matchup[1]
		tally := MatchupResult{Agent1: config1.ID, Agent2: config2.ID, SelfPlay: config1.ID == config2.ID}

		log.Info().Msgf("starting matchup %d of %d between agent1=%+v and agent2=%+v...", mi+1, len(matchUps), config1, config2)

		for i := 0; i < s.NumGames; i++ {
			// Alternate colours so neither agent always moves first
			white, black := config1, config2
			if i%2 == 1 {
				white, black = config2, config1
			}

			winner, gameMetric, moveMetrics, err := runGame(ctx, s, white, black, i)
			if err != nil {
				return results, fmt.Errorf("matchup %d game %d: %w", mi+1, i+1, err)
			}
			count++
			results.Games = append(results.Games, metrics.GameRecord{
				ID:         count,
				Agent1:     white.ID,
				Agent2:     black.ID,
				GameMetric: gameMetric,
			})
			for _, mm := range moveMetrics {
				results.Moves = append(results.Moves, metrics.MoveRecord{
					Game:       count,
					MoveMetric: mm,
				})
			}

			switch {
			case winner == game.None:
				tally.Draws++
			case tally.SelfPlay:
				if winner == game.White {
					tally.Wins1++
				} else {
					tally.Wins2++
				}
			case (winner == game.White) == (white.ID == config1.ID):
				tally.Wins1++
			default:
				tally.Wins2++
			}
			log.Info().Msgf("completed matchup %d of %d game %d with winner: %s (score %d)", mi+1, len(matchUps), i+1, winner, gameMetric.Score)
		}
		results.Matchups = append(results.Matchups, tally)
		if tally.SelfPlay {
			log.Info().Msgf("completed matchup %d of %d (self-play): white %d, draws %d, black %d", mi+1, len(matchUps), tally.Wins1, tally.Draws, tally.Wins2)
		} else {
			log.Info().Msgf("completed matchup %d of %d: %d-%d-%d", mi+1, len(matchUps), tally.Wins1, tally.Draws, tally.Wins2)
		}
	}

	log.Info().Msgf("completed %s experiment", name)

	if s.OutputDir == "" {
		return results, nil
	}
	dir, err := store(s.OutputDir, name, configs, results)
	results.Dir = dir
	return results, err
}

func store(root, name string, configs []metrics.AgentConfig, results Results) (string, error) {
	writer, err := metrics.NewWriter(root, name)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment writer: %w", err)
	}
	if err := writer.WriteAgentConfigs(configs); err != nil {
		return "", fmt.Errorf("failed to store agent configs: %w", err)
	}
	if err := writer.WriteGameRecords(results.Games); err != nil {
		return "", fmt.Errorf("failed to write game records: %w", err)
	}
	if err := writer.WriteMoveRecords(results.Moves); err != nil {
		return "", fmt.Errorf("failed to write move records: %w", err)
	}
	log.Info().Msgf("stored records in %s", writer.Dir())
	return writer.Dir(), nil
}

// runGame executes a single game between two agents and returns the winner.
// round seeds sampling agents so repeated games differ.
func runGame(ctx context.Context, s Settings, white, black metrics.AgentConfig, round int) (game.Player, metrics.GameMetric, []metrics.MoveMetric, error) {
	whiteAgent, err := createAgent(s, white, round)
	if err != nil {
		return game.None, metrics.GameMetric{}, nil, err
	}
	blackAgent, err := createAgent(s, black, round)
	if err != nil {
		return game.None, metrics.GameMetric{}, nil, err
	}

	e, err := engine.NewLocalEngine(s.BoardSize, whiteAgent, blackAgent, s.MaxPlies)
	if err != nil {
		return game.None, metrics.GameMetric{}, nil, err
	}
	return e.Run(ctx)
}

func createAgent(s Settings, config metrics.AgentConfig, round int) (agent.Agent, error) {
	budget := agent.Budget{Simulations: config.Simulations, Exploration: config.Exploration}
	if config.Addr != "" {
		return agent.NewRemoteAgent(client.NewClient(config.Addr), budget), nil
	}

	mcts, err := createMCTS(s, config)
	if err != nil {
		return nil, err
	}
	if config.Temperature > 0 {
		seed := config.Seed + uint64(round)
		return agent.NewTrainingAgent(mcts, budget, config.Temperature, seed), nil
	}
	return agent.NewEvaluationAgent(mcts, budget), nil
}

func createMCTS(s Settings, config metrics.AgentConfig) (*searcher.MCTS, error) {
	options := []searcher.Option{searcher.WithVirtualLoss(config.VirtualLoss)}

	if config.Goroutines > 1 {
		options = append(options, searcher.WithGoroutines(config.Goroutines))
	}
	if config.Duration > 0 {
		options = append(options, searcher.WithDuration(config.Duration))
	}
	if config.TreeReuse {
		options = append(options, searcher.WithTreeReuse())
	}

	options = append(options, searcher.WithMetrics())
	return searcher.NewMCTS(s.BoardSize, s.Evaluator, options...)
}
