package agent

import (
	"context"
	"othello/experiments/metrics"
	"othello/game"

	"gonum.org/v1/gonum/floats"
)

type evaluationAgent struct {
	searcher Searcher
	budget   Budget
}

// NewEvaluationAgent returns a new agent for actual game play during evaluation.
// It always plays the most visited action.
func NewEvaluationAgent(searcher Searcher, budget Budget) Agent {
	return evaluationAgent{searcher: searcher, budget: budget}
}

func (a evaluationAgent) FindMove(ctx context.Context, pos game.Position) (game.Action, metrics.SearchMetric, error) {
	policy, err := a.searcher.ComputeActionProbabilities(ctx, pos, a.budget.Simulations, a.budget.Exploration, 0)
	if err != nil {
		return 0, metrics.SearchMetric{}, err
	}
	return game.Action(floats.MaxIdx(policy)), a.searcher.LastSearch(), nil
}
