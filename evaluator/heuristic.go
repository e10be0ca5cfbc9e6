package evaluator

import (
	"othello/game"
)

// Heuristic scores a board without learned parameters. The prior favours
// corners and edges and avoids the cells diagonally next to corners; the
// value blends disc, mobility and corner balances for the mover.
type Heuristic struct {
	size    int
	weights []float64
}

func NewHeuristic(size int) (*Heuristic, error) {
	if err := game.ValidateSize(size); err != nil {
		return nil, err
	}
	return &Heuristic{size: size, weights: cellWeights(size)}, nil
}

func (h *Heuristic) BoardSize() int {
	return h.size
}

// Evaluate implements searcher.Evaluator.
func (h *Heuristic) Evaluate(board game.Board) ([]float64, float64, error) {
	prior := make([]float64, game.NumActions(h.size))
	copy(prior, h.weights)
	prior[game.PassAction(h.size)] = 1

	me, opponent := game.White, game.Black // Board is canonical

	discScore := normalize(float64(board.Count(me)), float64(board.Count(opponent)))
	mobilityScore := normalize(mobility(board, me), mobility(board, opponent))
	cornerScore := normalize(corners(board, me), corners(board, opponent))

	return prior, (discScore + mobilityScore + 2*cornerScore) / 4, nil
}

// normalize maps two non-negative tallies to [-1, 1] in favour of the first.
func normalize(value float64, otherValue float64) float64 {
	total := value + otherValue
	if total == 0 {
		return 0
	}
	return (value - otherValue) / total
}

func mobility(board game.Board, player game.Player) float64 {
	actions := game.LegalActions(game.Position{Board: board, Player: player})
	if len(actions) == 1 && actions[0].IsPass(board.Size()) {
		return 0
	}
	return float64(len(actions))
}

func corners(board game.Board, player game.Player) float64 {
	last := board.Size() - 1
	count := 0.0
	for _, c := range [4][2]int{{0, 0}, {0, last}, {last, 0}, {last, last}} {
		if board.At(c[0], c[1]) == player {
			count++
		}
	}
	return count
}

// cellWeights gives corners 8, edges 3, corner neighbours 0.5 and the rest 1.
func cellWeights(size int) []float64 {
	last := size - 1
	near := func(i int) bool { return i == 1 || i == last-1 }
	edge := func(i int) bool { return i == 0 || i == last }

	weights := make([]float64, size*size)
	for row := 0; row < size; row++ {
		for col := 0; col < size; col++ {
			w := 1.0
			switch {
			case edge(row) && edge(col):
				w = 8
			case (near(row) && (near(col) || edge(col))) || (edge(row) && near(col)):
				w = 0.5
			case edge(row) || edge(col):
				w = 3
			}
			weights[row*size+col] = w
		}
	}
	return weights
}
