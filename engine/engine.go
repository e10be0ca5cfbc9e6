package engine

import (
	"context"
	"othello/experiments/metrics"
	"othello/game"
)

// DefaultMaxPlies bounds a game when no limit is configured.
const DefaultMaxPlies = 200

type Engine interface {
	// Run plays a game till it ends or the ply limit is reached
	Run(ctx context.Context) (winner game.Player, gameMetric metrics.GameMetric, moveMetrics []metrics.MoveMetric, err error)
}
