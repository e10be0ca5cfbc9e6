package searcher

import (
	"context"
	"errors"
	"othello/game"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// mockEvaluator returns a fixed prior and value and counts evaluations per
// board.
type mockEvaluator struct {
	size  int
	prior func(numActions int) []float64
	value float64
	err   error
	delay time.Duration

	mu    sync.Mutex
	calls map[game.Key]int
}

func newMockEvaluator(size int) *mockEvaluator {
	return &mockEvaluator{
		size: size,
		prior: func(numActions int) []float64 {
			prior := make([]float64, numActions)
			for i := range prior {
				prior[i] = 1 / float64(numActions)
			}
			return prior
		},
		calls: make(map[game.Key]int),
	}
}

func (e *mockEvaluator) BoardSize() int {
	return e.size
}

func (e *mockEvaluator) Evaluate(board game.Board) ([]float64, float64, error) {
	e.mu.Lock()
	e.calls[game.Position{Board: board, Player: game.White}.Key()]++
	e.mu.Unlock()
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.err != nil {
		return nil, 0, e.err
	}
	return e.prior(game.NumActions(e.size)), e.value, nil
}

func (e *mockEvaluator) total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, n := range e.calls {
		total += n
	}
	return total
}

func requireDistribution(t *testing.T, pos game.Position, dist []float64) {
	t.Helper()
	require.Len(t, dist, game.NumActions(pos.Size()))
	require.InDelta(t, 1.0, floats.Sum(dist), 1e-9, "Distribution should sum to 1")
	for a, legal := range game.ValidMoves(pos) {
		if !legal {
			require.Zero(t, dist[a], "Illegal action %d should have no mass", a)
		}
		require.GreaterOrEqual(t, dist[a], 0.0)
	}
}

func TestNewMCTS(t *testing.T) {
	t.Run("requires an evaluator", func(t *testing.T) {
		_, err := NewMCTS(6, nil)
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("rejects unplayable sizes", func(t *testing.T) {
		_, err := NewMCTS(5, newMockEvaluator(5))
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("rejects an evaluator for another size", func(t *testing.T) {
		_, err := NewMCTS(6, newMockEvaluator(8))
		require.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestComputeActionProbabilities(t *testing.T) {
	ctx := context.Background()
	opening, _ := game.InitialPosition(6)

	t.Run("opening search returns a legal one-hot", func(t *testing.T) {
		mcts, err := NewMCTS(6, newMockEvaluator(6))
		require.NoError(t, err)

		dist, err := mcts.ComputeActionProbabilities(ctx, opening, 50, 1.0, 0)

		require.NoError(t, err)
		requireDistribution(t, opening, dist)
		require.Equal(t, 1.0, floats.Max(dist), "Zero temperature should be one-hot")
		require.Contains(t, []int{8, 13, 22, 27}, floats.MaxIdx(dist))
	})

	t.Run("positive temperature spreads over legal actions", func(t *testing.T) {
		mcts, _ := NewMCTS(6, newMockEvaluator(6))

		dist, err := mcts.ComputeActionProbabilities(ctx, opening, 50, 1.0, 1.0)

		require.NoError(t, err)
		requireDistribution(t, opening, dist)
	})

	t.Run("search is deterministic", func(t *testing.T) {
		first, _ := NewMCTS(6, newMockEvaluator(6))
		second, _ := NewMCTS(6, newMockEvaluator(6))

		a, err := first.ComputeActionProbabilities(ctx, opening, 80, 1.0, 1.0)
		require.NoError(t, err)
		b, err := second.ComputeActionProbabilities(ctx, opening, 80, 1.0, 1.0)
		require.NoError(t, err)
		c, err := first.ComputeActionProbabilities(ctx, opening, 80, 1.0, 1.0)
		require.NoError(t, err)

		require.Equal(t, a, b, "Fresh engines should agree")
		require.Equal(t, a, c, "Repeated calls without reuse should agree")
	})

	t.Run("zero budget is uniform over legal actions", func(t *testing.T) {
		evaluator := newMockEvaluator(6)
		mcts, _ := NewMCTS(6, evaluator)

		dist, err := mcts.ComputeActionProbabilities(ctx, opening, 0, 1.0, 1.0)
		require.NoError(t, err)
		require.InDelta(t, 0.25, dist[8], 1e-12)
		require.InDelta(t, 0.25, dist[27], 1e-12)

		dist, err = mcts.ComputeActionProbabilities(ctx, opening, 0, 1.0, 0)
		require.NoError(t, err)
		require.Equal(t, 1.0, dist[8], "Zero temperature should pick the lowest legal action")
		require.Zero(t, evaluator.total())
	})

	t.Run("a forced move skips the search", func(t *testing.T) {
		board, err := game.NewBoard([][]int{
			{-1, 1, 0, 0},
			{0, 0, 0, 0},
			{0, 0, 0, 0},
			{0, 0, 0, 0},
		})
		require.NoError(t, err)
		pos := game.Position{Board: board, Player: game.White}
		evaluator := newMockEvaluator(4)
		mcts, _ := NewMCTS(4, evaluator)

		dist, err := mcts.ComputeActionProbabilities(ctx, pos, 0, 1.0, 1.0)

		require.NoError(t, err)
		require.Equal(t, 1.0, dist[game.PassAction(4)], "Pass should get all the mass")
		require.Zero(t, evaluator.total(), "Evaluator should not be called")
	})

	t.Run("black to move searches the canonical board", func(t *testing.T) {
		pos, _ := game.ApplyMove(opening, 8)
		mcts, _ := NewMCTS(6, newMockEvaluator(6))

		dist, err := mcts.ComputeActionProbabilities(ctx, pos, 40, 1.0, 1.0)

		require.NoError(t, err)
		requireDistribution(t, pos, dist)
	})

	t.Run("each position is evaluated once per call", func(t *testing.T) {
		evaluator := newMockEvaluator(4)
		mcts, _ := NewMCTS(4, evaluator)
		pos, _ := game.InitialPosition(4)

		_, err := mcts.ComputeActionProbabilities(ctx, pos, 300, 1.0, 1.0)

		require.NoError(t, err)
		for key, n := range evaluator.calls {
			require.Equal(t, 1, n, "Position %q should be evaluated once", key)
		}
	})

	t.Run("a prior without legal mass falls back to uniform", func(t *testing.T) {
		evaluator := newMockEvaluator(6)
		evaluator.prior = func(numActions int) []float64 {
			prior := make([]float64, numActions)
			prior[0] = 1 // Corner is never legal early on
			return prior
		}
		mcts, _ := NewMCTS(6, evaluator)

		dist, err := mcts.ComputeActionProbabilities(ctx, opening, 30, 1.0, 1.0)

		require.NoError(t, err)
		requireDistribution(t, opening, dist)
	})

	t.Run("evaluator failure aborts the call", func(t *testing.T) {
		failure := errors.New("network unavailable")
		evaluator := newMockEvaluator(6)
		evaluator.err = failure
		mcts, _ := NewMCTS(6, evaluator)

		dist, err := mcts.ComputeActionProbabilities(ctx, opening, 10, 1.0, 1.0)

		require.Nil(t, dist, "No partial distribution should be returned")
		var evalErr *EvaluationError
		require.ErrorAs(t, err, &evalErr)
		require.ErrorIs(t, err, failure)
		require.Equal(t, 1, evaluator.total(), "Search should stop at the first failure")
	})

	t.Run("malformed evaluator output is an evaluation error", func(t *testing.T) {
		evaluator := newMockEvaluator(6)
		evaluator.prior = func(numActions int) []float64 { return make([]float64, numActions-1) }
		mcts, _ := NewMCTS(6, evaluator)

		_, err := mcts.ComputeActionProbabilities(ctx, opening, 10, 1.0, 1.0)
		var evalErr *EvaluationError
		require.ErrorAs(t, err, &evalErr)

		evaluator = newMockEvaluator(6)
		evaluator.value = 2
		mcts, _ = NewMCTS(6, evaluator)
		_, err = mcts.ComputeActionProbabilities(ctx, opening, 10, 1.0, 1.0)
		require.ErrorAs(t, err, &evalErr)
	})

	t.Run("rejects invalid arguments", func(t *testing.T) {
		mcts, _ := NewMCTS(6, newMockEvaluator(6))
		small, _ := game.InitialPosition(4)

		_, err := mcts.ComputeActionProbabilities(ctx, opening, -1, 1.0, 0)
		require.ErrorIs(t, err, ErrInvalidArgument)
		_, err = mcts.ComputeActionProbabilities(ctx, opening, 10, -1.0, 0)
		require.ErrorIs(t, err, ErrInvalidArgument)
		_, err = mcts.ComputeActionProbabilities(ctx, opening, 10, 1.0, -0.5)
		require.ErrorIs(t, err, ErrInvalidArgument)
		_, err = mcts.ComputeActionProbabilities(ctx, small, 10, 1.0, 0)
		require.ErrorIs(t, err, ErrInvalidArgument)
		_, err = mcts.ComputeActionProbabilities(ctx, game.Position{Board: opening.Board}, 10, 1.0, 0)
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestCancellation(t *testing.T) {
	opening, _ := game.InitialPosition(6)

	t.Run("cancelled context returns what was searched", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		mcts, _ := NewMCTS(6, newMockEvaluator(6), WithMetrics())

		dist, err := mcts.ComputeActionProbabilities(ctx, opening, 1000, 1.0, 1.0)

		require.NoError(t, err)
		requireDistribution(t, opening, dist)
		require.True(t, mcts.LastSearch().IsCancelled)
		require.Zero(t, mcts.LastSearch().Playouts)
	})

	t.Run("duration bounds the search", func(t *testing.T) {
		evaluator := newMockEvaluator(6)
		evaluator.delay = 5 * time.Millisecond
		mcts, _ := NewMCTS(6, evaluator, WithDuration(30*time.Millisecond), WithMetrics())

		start := time.Now()
		dist, err := mcts.ComputeActionProbabilities(context.Background(), opening, 100000, 1.0, 1.0)

		require.NoError(t, err)
		requireDistribution(t, opening, dist)
		require.Less(t, time.Since(start), 2*time.Second)
		require.True(t, mcts.LastSearch().IsCancelled)
		require.Less(t, mcts.LastSearch().Playouts, 100000)
	})
}

func TestParallelSearch(t *testing.T) {
	opening, _ := game.InitialPosition(6)
	evaluator := newMockEvaluator(6)
	mcts, err := NewMCTS(6, evaluator, WithGoroutines(4), WithMetrics())
	require.NoError(t, err)

	dist, err := mcts.ComputeActionProbabilities(context.Background(), opening, 200, 1.0, 1.0)

	require.NoError(t, err)
	requireDistribution(t, opening, dist)
	metric := mcts.LastSearch()
	require.Equal(t, 4, metric.Goroutines)
	require.Equal(t, 200, metric.Playouts, "Every simulation should complete")
	for key, n := range evaluator.calls {
		require.Equal(t, 1, n, "Position %q should be evaluated once", key)
	}

	t.Run("failure stops every worker", func(t *testing.T) {
		failing := newMockEvaluator(6)
		failing.err = errors.New("boom")
		mcts, _ := NewMCTS(6, failing, WithGoroutines(4))

		_, err := mcts.ComputeActionProbabilities(context.Background(), opening, 200, 1.0, 1.0)

		var evalErr *EvaluationError
		require.ErrorAs(t, err, &evalErr)
	})
}

func TestTreeReuse(t *testing.T) {
	ctx := context.Background()
	opening, _ := game.InitialPosition(6)

	t.Run("statistics accumulate across calls", func(t *testing.T) {
		mcts, _ := NewMCTS(6, newMockEvaluator(6), WithTreeReuse(), WithMetrics())

		_, err := mcts.ComputeActionProbabilities(ctx, opening, 40, 1.0, 1.0)
		require.NoError(t, err)
		first := mcts.LastSearch()
		_, err = mcts.ComputeActionProbabilities(ctx, opening, 40, 1.0, 1.0)
		require.NoError(t, err)
		second := mcts.LastSearch()

		require.False(t, first.IsTreeReused)
		require.True(t, second.IsTreeReused)
		require.Greater(t, second.TableSize, first.TableSize)
	})

	t.Run("stateless calls start over", func(t *testing.T) {
		mcts, _ := NewMCTS(6, newMockEvaluator(6), WithMetrics())

		mcts.ComputeActionProbabilities(ctx, opening, 40, 1.0, 1.0)
		first := mcts.LastSearch()
		mcts.ComputeActionProbabilities(ctx, opening, 40, 1.0, 1.0)
		second := mcts.LastSearch()

		require.False(t, second.IsTreeReused)
		require.Equal(t, first.TableSize, second.TableSize)
	})

	t.Run("earlier positions are pruned", func(t *testing.T) {
		mcts, _ := NewMCTS(6, newMockEvaluator(6), WithTreeReuse(), WithMetrics())

		mcts.ComputeActionProbabilities(ctx, opening, 40, 1.0, 0)
		next, _ := game.ApplyMove(opening, 8)
		_, err := mcts.ComputeActionProbabilities(ctx, next, 40, 1.0, 0)
		require.NoError(t, err)

		require.Nil(t, mcts.table.get(opening.Canonical().Key()), "Opening should be pruned")
	})

	t.Run("a new game starts a new tree", func(t *testing.T) {
		mcts, _ := NewMCTS(6, newMockEvaluator(6), WithTreeReuse(), WithMetrics())

		next, _ := game.ApplyMove(opening, 8)
		_, err := mcts.ComputeActionProbabilities(ctx, next, 40, 1.0, 0)
		require.NoError(t, err)
		require.Greater(t, mcts.LastSearch().TableSize, 1)

		_, err = mcts.ComputeActionProbabilities(ctx, opening, 1, 1.0, 0)
		require.NoError(t, err)
		search := mcts.LastSearch()

		require.False(t, search.IsTreeReused)
		require.Equal(t, 1, search.TableSize, "Only the new root should be in the tree")
	})
}
