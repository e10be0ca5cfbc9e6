package searcher

import (
	"errors"
	"fmt"
	"othello/game"
)

// Evaluator maps a canonical board (the mover reads as +1) to an unmasked
// prior over all size*size+1 actions and a value in [-1, 1] for the mover.
// Implementations must be deterministic and safe for concurrent use.
type Evaluator interface {
	BoardSize() int
	Evaluate(board game.Board) (prior []float64, value float64, err error)
}

var (
	// ErrConfiguration is returned at construction when the search cannot
	// run at all.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidArgument is returned for search arguments out of range.
	ErrInvalidArgument = errors.New("invalid argument")
)

// EvaluationError aborts a search call when the evaluator fails or returns
// a malformed result. No partial distribution accompanies it.
type EvaluationError struct {
	Position game.Position // Canonical position being expanded
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed at %d discs for %s to move: %v",
		e.Position.Board.Discs(), e.Position.Player, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
