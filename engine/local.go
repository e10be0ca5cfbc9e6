package engine

import (
	"context"
	"fmt"
	"othello/agent"
	"othello/experiments/metrics"
	"othello/game"
	"time"

	"github.com/rs/zerolog/log"
)

// LocalEngine plays one game between two in-process agents.
type LocalEngine struct {
	Position game.Position
	agents   map[game.Player]agent.Agent
	maxPlies int
}

func NewLocalEngine(size int, white, black agent.Agent, maxPlies int) (*LocalEngine, error) {
	if white == nil || black == nil {
		return nil, fmt.Errorf("need an agent for each player")
	}
	pos, err := game.InitialPosition(size)
	if err != nil {
		return nil, err
	}
	if maxPlies <= 0 {
		maxPlies = DefaultMaxPlies
	}

	return &LocalEngine{
		Position: pos,
		agents:   map[game.Player]agent.Agent{game.White: white, game.Black: black},
		maxPlies: maxPlies,
	}, nil
}

// Run executes the entire game loop until the game is over. The winner is
// game.None for a draw or when the ply limit stops the game.
func (e *LocalEngine) Run(ctx context.Context) (game.Player, metrics.GameMetric, []metrics.MoveMetric, error) {
	gameMetric := metrics.GameMetric{
		StartingPlayer: int(e.Position.Player),
		StartTime:      time.Now(),
	}
	log.Info().Msgf("player %s is starting", e.Position.Player)

	var moveMetrics []metrics.MoveMetric
	ply := 0
	for ; !game.GameOutcome(e.Position).Terminal() && ply < e.maxPlies; ply++ {
		if err := ctx.Err(); err != nil {
			return game.None, gameMetric, moveMetrics, err
		}

		mover := e.Position.Player
		action, searchMetric, err := e.agents[mover].FindMove(ctx, e.Position)
		if err != nil {
			return game.None, gameMetric, moveMetrics, fmt.Errorf("%s failed to move at ply %d: %w", mover, ply+1, err)
		}
		next, err := game.ApplyMove(e.Position, action)
		if err != nil {
			return game.None, gameMetric, moveMetrics, fmt.Errorf("%s chose an illegal move at ply %d: %w", mover, ply+1, err)
		}

		moveMetrics = append(moveMetrics, metrics.MoveMetric{
			Step:         ply + 1,
			Player:       int(mover),
			Action:       int(action),
			SearchMetric: searchMetric,
		})
		log.Debug().Int("ply", ply+1).Str("player", mover.String()).Int("action", int(action)).Msg("move played")
		e.Position = next
	}

	winner := game.None
	switch game.OutcomeFor(e.Position.Board, game.White) {
	case game.Win:
		winner = game.White
	case game.Loss:
		winner = game.Black
	}
	if ply >= e.maxPlies && !game.IsTerminal(e.Position.Board) {
		log.Warn().Msgf("stopped after %d plies without a result", ply)
	}

	gameMetric.Winner = int(winner)
	gameMetric.Score = game.ScoreDifferential(e.Position.Board, game.White)
	gameMetric.EndTime = time.Now()
	gameMetric.Duration = gameMetric.EndTime.Sub(gameMetric.StartTime)
	gameMetric.TotalMoves = ply
	return winner, gameMetric, moveMetrics, nil
}
