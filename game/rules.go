package game

import "fmt"

// MinBoardSize is the smallest board with a standard starting layout.
const MinBoardSize = 4

var directions = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// ValidateSize reports whether a board size is playable: even and at least
// MinBoardSize.
func ValidateSize(size int) error {
	if size < MinBoardSize || size%2 != 0 {
		return fmt.Errorf("board size %d must be even and at least %d", size, MinBoardSize)
	}
	// Cells are packed into a byte of the position key
	if size > 254 {
		return fmt.Errorf("board size %d is too large", size)
	}
	return nil
}

// InitialPosition returns the starting layout: four discs crossed in the
// centre, White to move.
func InitialPosition(size int) (Position, error) {
	if err := ValidateSize(size); err != nil {
		return Position{}, err
	}
	board := newBoard(size).with(func(cells []Player) {
		mid := size / 2
		cells[(mid-1)*size+mid] = White
		cells[mid*size+mid-1] = White
		cells[(mid-1)*size+mid-1] = Black
		cells[mid*size+mid] = Black
	})
	return Position{Board: board, Player: White}, nil
}

// ValidMoves returns the legality mask of a position. A placement is legal
// iff it captures at least one run of opponent discs; pass is legal iff no
// placement is. At least one entry is always true.
func ValidMoves(pos Position) []bool {
	size := pos.Size()
	mask := make([]bool, NumActions(size))
	found := false
	for i, cell := range pos.Board.cells {
		if cell == None && capturesAny(pos.Board, pos.Player, i/size, i%size) {
			mask[i] = true
			found = true
		}
	}
	if !found {
		mask[PassAction(size)] = true
	}
	return mask
}

// LegalActions lists the true entries of ValidMoves in increasing order.
func LegalActions(pos Position) []Action {
	mask := ValidMoves(pos)
	actions := make([]Action, 0, len(mask))
	for a, ok := range mask {
		if ok {
			actions = append(actions, Action(a))
		}
	}
	return actions
}

// ApplyMove plays an action and hands the turn to the opponent. A pass keeps
// the board and only switches the mover. A player without a placement must
// pass explicitly; the opponent is never skipped automatically.
func ApplyMove(pos Position, action Action) (Position, error) {
	size := pos.Size()
	if action < 0 || int(action) >= NumActions(size) || !pos.Player.Valid() {
		return pos, &IllegalActionError{Position: pos, Action: action}
	}

	if action.IsPass(size) {
		if hasPlacement(pos.Board, pos.Player) {
			return pos, &IllegalActionError{Position: pos, Action: action}
		}
		return Position{Board: pos.Board, Player: pos.Player.Opponent()}, nil
	}

	row, col := action.Cell(size)
	if pos.Board.At(row, col) != None {
		return pos, &IllegalActionError{Position: pos, Action: action}
	}
	flips := captures(pos.Board, pos.Player, row, col)
	if len(flips) == 0 {
		return pos, &IllegalActionError{Position: pos, Action: action}
	}

	board := pos.Board.with(func(cells []Player) {
		cells[action] = pos.Player
		for _, i := range flips {
			cells[i] = pos.Player
		}
	})
	return Position{Board: board, Player: pos.Player.Opponent()}, nil
}

// GameOutcome reports the result for the player to move.
func GameOutcome(pos Position) Outcome {
	return OutcomeFor(pos.Board, pos.Player)
}

// OutcomeFor reports the result for an arbitrary player. The game is over
// only when neither side has a placement; the disc majority wins.
func OutcomeFor(board Board, player Player) Outcome {
	if !IsTerminal(board) {
		return Continuing
	}
	switch diff := ScoreDifferential(board, player); {
	case diff > 0:
		return Win
	case diff < 0:
		return Loss
	default:
		return Draw
	}
}

// IsTerminal reports whether neither player can place a disc. A full board
// is always terminal.
func IsTerminal(board Board) bool {
	return !hasPlacement(board, White) && !hasPlacement(board, Black)
}

// Canonicalize sign-multiplies the board by the mover's sign.
func Canonicalize(pos Position) Board {
	return pos.Board.Multiply(pos.Player)
}

// ScoreDifferential returns player's sign times (count(+1) - count(-1)).
func ScoreDifferential(board Board, player Player) int {
	return int(player) * (board.Count(White) - board.Count(Black))
}

func hasPlacement(board Board, player Player) bool {
	size := board.size
	for i, cell := range board.cells {
		if cell == None && capturesAny(board, player, i/size, i%size) {
			return true
		}
	}
	return false
}

func capturesAny(board Board, player Player, row, col int) bool {
	for _, d := range directions {
		if runLength(board, player, row, col, d) > 0 {
			return true
		}
	}
	return false
}

// captures returns the cell indices flipped by placing at (row, col).
func captures(board Board, player Player, row, col int) []int {
	var flips []int
	for _, d := range directions {
		n := runLength(board, player, row, col, d)
		for k := 1; k <= n; k++ {
			flips = append(flips, (row+k*d[0])*board.size+col+k*d[1])
		}
	}
	return flips
}

// runLength counts the opponent discs bracketed by player from (row, col)
// along d, or 0 if the run is not closed by one of player's discs.
func runLength(board Board, player Player, row, col int, d [2]int) int {
	opponent := player.Opponent()
	n := 0
	r, c := row+d[0], col+d[1]
	for r >= 0 && r < board.size && c >= 0 && c < board.size {
		switch board.At(r, c) {
		case opponent:
			n++
		case player:
			return n
		default:
			return 0
		}
		r += d[0]
		c += d[1]
	}
	return 0
}
