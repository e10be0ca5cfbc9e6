package searcher

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// oneHot returns a distribution with all mass on action.
func oneHot(numActions, action int) []float64 {
	out := make([]float64, numActions)
	out[action] = 1
	return out
}

// argmax returns the legal action with the highest count, the lowest index
// winning ties.
func argmax(counts []float64, mask []bool) int {
	masked := make([]float64, len(counts))
	for a := range counts {
		masked[a] = math.Inf(-1)
		if mask[a] {
			masked[a] = counts[a]
		}
	}
	return floats.MaxIdx(masked)
}

// shape converts root visit counts into the output distribution. A zero
// temperature gives a one-hot argmax; otherwise weights are N^(1/T). Without
// any visits every legal action weighs the same. Illegal actions are 0.
func shape(counts []float64, mask []bool, temperature float64) []float64 {
	if temperature == 0 {
		return oneHot(len(counts), argmax(counts, mask))
	}

	maxCount := 0.0
	legal := 0
	for a, ok := range mask {
		if ok {
			legal++
			maxCount = math.Max(maxCount, counts[a])
		}
	}

	out := make([]float64, len(counts))
	for a, ok := range mask {
		switch {
		case !ok:
		case maxCount == 0:
			out[a] = 1
		case counts[a] > 0:
			// Relative to the max in log space so small temperatures cannot overflow
			out[a] = math.Exp((math.Log(counts[a]) - math.Log(maxCount)) / temperature)
		}
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// normalizePrior masks the evaluator prior to the legal actions and
// renormalizes it. ok is false when the masked mass vanishes, in which case
// the prior is uniform.
func normalizePrior(raw []float64, legal []int) (prior []float64, ok bool) {
	prior = make([]float64, len(legal))
	for i, a := range legal {
		prior[i] = raw[a]
	}
	sum := floats.Sum(prior)
	if sum <= priorFloor {
		for i := range prior {
			prior[i] = 1 / float64(len(prior))
		}
		return prior, false
	}
	floats.Scale(1/sum, prior)
	return prior, true
}

const priorFloor = 1e-12
