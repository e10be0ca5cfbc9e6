package game

import "fmt"

// Player is the signed identifier of a side. Board cells hold the sign of
// the player owning them, None for an empty cell.
type Player int8

const (
	None  Player = 0
	White Player = 1 // Moves first
	Black Player = -1
)

func (p Player) Opponent() Player {
	return -p
}

func (p Player) Valid() bool {
	return p == White || p == Black
}

func (p Player) String() string {
	switch p {
	case White:
		return "white"
	case Black:
		return "black"
	case None:
		return "none"
	default:
		return fmt.Sprintf("player(%d)", int8(p))
	}
}

// Action indexes a cell as row*size+col. The index size*size is the pass
// sentinel.
type Action int

// PassAction returns the pass sentinel for a board of the given size.
func PassAction(size int) Action {
	return Action(size * size)
}

// NumActions returns the length of action vectors (masks, priors,
// distributions) for a board of the given size.
func NumActions(size int) int {
	return size*size + 1
}

// ActionAt returns the placement action for a cell.
func ActionAt(size, row, col int) Action {
	return Action(row*size + col)
}

// Cell returns the row and column of a placement action.
func (a Action) Cell(size int) (row, col int) {
	return int(a) / size, int(a) % size
}

func (a Action) IsPass(size int) bool {
	return a == PassAction(size)
}

// Key identifies a position exactly: board contents plus player to move.
// It is never a hash, so distinct positions never share a key.
type Key string
