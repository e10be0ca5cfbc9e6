package agent

import (
	"context"
	"othello/experiments/metrics"
	"othello/game"
)

type Agent interface {
	// FindMove returns the action to play and performance metrics (if collected) from the search
	FindMove(ctx context.Context, pos game.Position) (game.Action, metrics.SearchMetric, error)
}

// Searcher produces action distributions; *searcher.MCTS implements it.
type Searcher interface {
	ComputeActionProbabilities(ctx context.Context, pos game.Position, simulations int, exploration, temperature float64) ([]float64, error)
	LastSearch() metrics.SearchMetric
}

// Budget holds the per-move search parameters.
type Budget struct {
	Simulations int
	Exploration float64
}
