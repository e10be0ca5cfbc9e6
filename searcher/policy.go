package searcher

import "math"

// Hyperparameters for MCTS

const DefaultExploration = 1.0 // c in the selection formula
const DefaultVirtualLoss = 1.0 // Temporary loss per in-flight playout on an edge

// Keeps the prior meaningful on the first descent from a fresh node
const epsilon = 1e-8

type puct struct {
	numerator float64
}

func newPUCT(c float64, N int) puct {
	return puct{numerator: c * math.Sqrt(float64(N)+epsilon)}
}

func (u puct) evaluate(q float64, p float64, n int) float64 {
	// PUCT = Q + c*P*sqrt(sum N)/(1+n)
	return q + u.numerator*p/(1+float64(n))
}
