package experiments

import (
	"context"
	"fmt"
	"othello/experiments/metrics"
	"othello/searcher"
	"time"

	"github.com/rs/zerolog/log"
)

// RunThroughputExperiment plays self-play games for each goroutine count
// under the same time budget and charts playouts per second by step.
// Each matchup uses the same config for both players for the same playing
// strength and similar game length.
func RunThroughputExperiment(ctx context.Context, s Settings, goroutines []int, duration time.Duration, simulations int) (Results, error) {
	configs := make([]metrics.AgentConfig, 0, len(goroutines))
	matchUps := make([][2]metrics.AgentConfig, 0, len(goroutines))
	for i, g := range goroutines {
		config := metrics.AgentConfig{
			ID:          i + 1,
			Goroutines:  g,
			Duration:    duration,
			Simulations: simulations,
			Exploration: searcher.DefaultExploration,
			VirtualLoss: searcher.DefaultVirtualLoss,
		}
		configs = append(configs, config)
		matchUps = append(matchUps, [2]metrics.AgentConfig{config, config})
	}

	results, err := runExperiment(ctx, s, "throughput", configs, matchUps)
	if err != nil || s.OutputDir == "" {
		return results, err
	}

	path, err := metrics.OpenWriter(results.Dir).WriteThroughputChart(results.Games, results.Moves)
	if err != nil {
		return results, fmt.Errorf("failed to chart throughput: %w", err)
	}
	log.Info().Msgf("stored throughput chart in %s", path)
	return results, nil
}
