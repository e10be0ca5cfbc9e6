package agent

import (
	"context"
	"othello/communication"
	"othello/communication/client"
	"othello/experiments/metrics"
	"othello/game"
)

type remoteAgent struct {
	client *client.Client
	budget Budget
}

// NewRemoteAgent returns an agent that delegates the search to an agent
// server. Search metrics stay on the server.
func NewRemoteAgent(client *client.Client, budget Budget) Agent {
	return remoteAgent{client: client, budget: budget}
}

func (a remoteAgent) FindMove(ctx context.Context, pos game.Position) (game.Action, metrics.SearchMetric, error) {
	simulations := a.budget.Simulations
	exploration := a.budget.Exploration
	temperature := 0.0
	resp, err := a.client.Move(ctx, communication.SearchRequest{
		Position:    pos,
		Simulations: &simulations,
		Exploration: &exploration,
		Temperature: &temperature,
	})
	if err != nil {
		return 0, metrics.SearchMetric{}, err
	}

	action := game.Action(resp.Action)
	if action < 0 || int(action) >= game.NumActions(pos.Size()) || !game.ValidMoves(pos)[action] {
		return 0, metrics.SearchMetric{}, &game.IllegalActionError{Position: pos, Action: action}
	}
	return action, metrics.SearchMetric{}, nil
}
