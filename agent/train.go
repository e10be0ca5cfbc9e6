package agent

import (
	"context"
	"othello/experiments/metrics"
	"othello/game"
	"sync"

	"golang.org/x/exp/rand"
)

type trainingAgent struct {
	searcher    Searcher
	budget      Budget
	temperature float64
	mu          sync.Mutex
	rng         *rand.Rand
}

// NewTrainingAgent returns a new agent for self-play during training. Moves
// are sampled from the temperature-shaped visit distribution; the seed makes
// games reproducible.
func NewTrainingAgent(searcher Searcher, budget Budget, temperature float64, seed uint64) Agent {
	return &trainingAgent{
		searcher:    searcher,
		budget:      budget,
		temperature: temperature,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (a *trainingAgent) FindMove(ctx context.Context, pos game.Position) (game.Action, metrics.SearchMetric, error) {
	policy, err := a.searcher.ComputeActionProbabilities(ctx, pos, a.budget.Simulations, a.budget.Exploration, a.temperature)
	if err != nil {
		return 0, metrics.SearchMetric{}, err
	}

	a.mu.Lock()
	sampled := a.rng.Float64()
	a.mu.Unlock()
	return sample(policy, sampled), a.searcher.LastSearch(), nil
}

// sample walks the cumulative distribution up to u in [0, 1).
func sample(policy []float64, u float64) game.Action {
	cumulative := 0.0
	last := 0
	for action, prob := range policy {
		if prob == 0 {
			continue
		}
		last = action
		cumulative += prob
		if u < cumulative {
			return game.Action(action)
		}
	}
	return game.Action(last) // Fallback in case of rounding errors
}
