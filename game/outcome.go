package game

import "fmt"

// Outcome is the result of a position from one player's perspective.
type Outcome int

const (
	Continuing Outcome = iota
	Win
	Loss
	Draw
)

func (o Outcome) Terminal() bool {
	return o != Continuing
}

// Value maps a terminal outcome to the reward backed up by the search.
func (o Outcome) Value() float64 {
	switch o {
	case Win:
		return 1
	case Loss:
		return -1
	default:
		return 0
	}
}

// Reverse returns the same result seen by the other player.
func (o Outcome) Reverse() Outcome {
	switch o {
	case Win:
		return Loss
	case Loss:
		return Win
	default:
		return o
	}
}

func (o Outcome) String() string {
	switch o {
	case Continuing:
		return "continuing"
	case Win:
		return "win"
	case Loss:
		return "loss"
	case Draw:
		return "draw"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// IllegalActionError reports an action absent from a position's legality
// mask. The position is left unchanged.
type IllegalActionError struct {
	Position Position
	Action   Action
}

func (e *IllegalActionError) Error() string {
	size := e.Position.Size()
	if e.Action.IsPass(size) {
		return fmt.Sprintf("illegal action: %s cannot pass while a placement is available", e.Position.Player)
	}
	if e.Action < 0 || int(e.Action) > size*size {
		return fmt.Sprintf("illegal action: %d is out of range [0, %d]", e.Action, size*size)
	}
	row, col := e.Action.Cell(size)
	return fmt.Sprintf("illegal action: %s cannot place at (%d,%d)", e.Position.Player, row, col)
}
