package evaluator

import (
	"context"
	"os"
	"othello/game"
	"othello/searcher"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

var (
	_ searcher.Evaluator = (*Network)(nil)
	_ searcher.Evaluator = (*Heuristic)(nil)
)

func TestNetwork(t *testing.T) {
	pos, _ := game.InitialPosition(4)

	t.Run("outputs a prior and a bounded value", func(t *testing.T) {
		network, err := New(NetworkConfig{BoardSize: 4, Hidden: []int{8}})
		require.NoError(t, err)

		prior, value, err := network.Evaluate(pos.Board)

		require.NoError(t, err)
		require.Len(t, prior, 17, "One entry per cell plus pass")
		require.InDelta(t, 1.0, floats.Sum(prior), 1e-6, "Softmax prior should sum to 1")
		require.GreaterOrEqual(t, value, -1.0)
		require.LessOrEqual(t, value, 1.0)
	})

	t.Run("rejects boards of another size", func(t *testing.T) {
		network, _ := New(DefaultNetworkConfig(4))
		large, _ := game.InitialPosition(6)

		_, _, err := network.Evaluate(large.Board)
		require.Error(t, err)
	})

	t.Run("rejects invalid configurations", func(t *testing.T) {
		_, err := New(NetworkConfig{BoardSize: 5})
		require.Error(t, err)
		_, err = New(NetworkConfig{BoardSize: 4, Hidden: []int{0}})
		require.Error(t, err)
	})

	t.Run("saved parameters reproduce the evaluation", func(t *testing.T) {
		network, _ := New(NetworkConfig{BoardSize: 4, Hidden: []int{8}})
		path := filepath.Join(t.TempDir(), "params.json")
		require.NoError(t, network.Save(path))

		loaded, err := Load(path)
		require.NoError(t, err)

		wantPrior, wantValue, _ := network.Evaluate(pos.Board)
		gotPrior, gotValue, err := loaded.Evaluate(pos.Board)
		require.NoError(t, err)
		require.Equal(t, 4, loaded.BoardSize())
		require.InDeltaSlice(t, wantPrior, gotPrior, 1e-12)
		require.InDelta(t, wantValue, gotValue, 1e-12)
	})

	t.Run("load fails on missing or malformed parameters", func(t *testing.T) {
		dir := t.TempDir()

		_, err := Load(filepath.Join(dir, "missing.json"))
		require.Error(t, err)

		malformed := filepath.Join(dir, "malformed.json")
		require.NoError(t, os.WriteFile(malformed, []byte("{not json"), 0o644))
		_, err = Load(malformed)
		require.Error(t, err)

		empty := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(empty, []byte(`{"board_size": 4}`), 0o644))
		_, err = Load(empty)
		require.Error(t, err, "Missing networks should be rejected")
	})

	t.Run("load rejects networks for another board", func(t *testing.T) {
		network, _ := New(NetworkConfig{BoardSize: 4, Hidden: []int{8}})
		path := filepath.Join(t.TempDir(), "params.json")
		require.NoError(t, network.Save(path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		data = []byte(`{"board_size":6` + string(data[len(`{"board_size":4`):]))
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err = Load(path)
		require.Error(t, err)
	})

	t.Run("drives a search", func(t *testing.T) {
		network, _ := New(NetworkConfig{BoardSize: 4, Hidden: []int{8}})
		mcts, err := searcher.NewMCTS(4, network, searcher.WithGoroutines(2))
		require.NoError(t, err)

		dist, err := mcts.ComputeActionProbabilities(context.Background(), pos, 30, 1.0, 1.0)

		require.NoError(t, err)
		require.InDelta(t, 1.0, floats.Sum(dist), 1e-9)
	})
}
