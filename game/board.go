package game

import (
	"fmt"
	"strings"
)

// Board is an immutable size x size grid. Operations on Board always return
// a new copy.
type Board struct {
	size  int
	cells []Player // Row-major, indexed by placement action
}

func newBoard(size int) Board {
	return Board{size: size, cells: make([]Player, size*size)}
}

// NewBoard builds a board from rows of cell values in {-1, 0, 1}.
func NewBoard(rows [][]int) (Board, error) {
	size := len(rows)
	if size == 0 {
		return Board{}, fmt.Errorf("board has no rows")
	}
	b := newBoard(size)
	for r, row := range rows {
		if len(row) != size {
			return Board{}, fmt.Errorf("row %d has %d cells, want %d", r, len(row), size)
		}
		for c, v := range row {
			p := Player(v)
			if p != None && !p.Valid() {
				return Board{}, fmt.Errorf("cell (%d,%d) has invalid value %d", r, c, v)
			}
			b.cells[r*size+c] = p
		}
	}
	return b, nil
}

func (b Board) Size() int {
	return b.size
}

func (b Board) At(row, col int) Player {
	return b.cells[row*b.size+col]
}

// Rows returns the cell values as a fresh nested slice.
func (b Board) Rows() [][]int {
	rows := make([][]int, b.size)
	for r := range rows {
		rows[r] = make([]int, b.size)
		for c := range rows[r] {
			rows[r][c] = int(b.At(r, c))
		}
	}
	return rows
}

// Cells returns the cell values in action order as float64, the input layout
// evaluators consume.
func (b Board) Cells() []float64 {
	out := make([]float64, len(b.cells))
	for i, p := range b.cells {
		out[i] = float64(p)
	}
	return out
}

// Count returns the number of cells holding p (None counts empty cells).
func (b Board) Count(p Player) int {
	n := 0
	for _, cell := range b.cells {
		if cell == p {
			n++
		}
	}
	return n
}

// Discs returns the number of occupied cells.
func (b Board) Discs() int {
	return len(b.cells) - b.Count(None)
}

// Multiply sign-multiplies every cell.
func (b Board) Multiply(sign Player) Board {
	out := newBoard(b.size)
	for i, cell := range b.cells {
		out.cells[i] = cell * sign
	}
	return out
}

func (b Board) Equal(other Board) bool {
	if b.size != other.size {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

func (b Board) with(mutate func(cells []Player)) Board {
	out := newBoard(b.size)
	copy(out.cells, b.cells)
	mutate(out.cells)
	return out
}

func (b Board) String() string {
	var sb strings.Builder
	for r := 0; r < b.size; r++ {
		for c := 0; c < b.size; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			switch b.At(r, c) {
			case White:
				sb.WriteByte('O')
			case Black:
				sb.WriteByte('X')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
