package searcher

import (
	"context"
	"errors"
	"othello/game"
	"testing"

	"github.com/stretchr/testify/require"
)

func expandedNode(prior ...float64) *node {
	actions := make([]game.Action, len(prior))
	for i := range actions {
		actions[i] = game.Action(i)
	}
	n := newNode(4)
	n.expand(actions, prior)
	return n
}

func TestSelectEdge(t *testing.T) {
	t.Run("ties go to the lowest index", func(t *testing.T) {
		n := expandedNode(0.25, 0.25, 0.25, 0.25)
		require.Equal(t, 0, n.selectEdge(1.0, 0))
	})

	t.Run("highest prior first on a fresh node", func(t *testing.T) {
		n := expandedNode(0.1, 0.6, 0.3)
		require.Equal(t, 1, n.selectEdge(1.0, 0))
	})

	t.Run("virtual loss steers the next selection away", func(t *testing.T) {
		n := expandedNode(0.5, 0.5)

		first := n.selectEdge(1.0, 1.0)
		second := n.selectEdge(1.0, 1.0)

		require.NotEqual(t, first, second, "In-flight edge should be penalized")
		require.Equal(t, []int{1, 1}, n.losses)
	})

	t.Run("backup clears the virtual loss", func(t *testing.T) {
		n := expandedNode(0.5, 0.5)

		edge := n.selectEdge(1.0, 1.0)
		n.backup(edge, 0.5)

		require.Equal(t, 0, n.losses[edge])
		require.Equal(t, 1, n.visits[edge])
		require.Equal(t, 0.5, n.rewards[edge])
		require.Equal(t, 1, n.total)
	})

	t.Run("revert leaves no trace", func(t *testing.T) {
		n := expandedNode(0.5, 0.5)

		edge := n.selectEdge(1.0, 1.0)
		n.revert(edge)

		require.Equal(t, []int{0, 0}, n.losses)
		require.Equal(t, []int{0, 0}, n.visits)
		require.Equal(t, 0, n.total)
	})
}

func TestBackup(t *testing.T) {
	root := expandedNode(1)
	child := expandedNode(1)
	path := []step{{node: root, edge: root.selectEdge(1, 0)}, {node: child, edge: child.selectEdge(1, 0)}}

	// Leaf is good for its mover, so bad for whoever moved into it
	backup(path, 1)

	require.Equal(t, -1.0, child.rewards[0], "Edge into the leaf should be credited for the opponent")
	require.Equal(t, 1.0, root.rewards[0], "Sign should alternate up the path")
}

func TestNodeWait(t *testing.T) {
	t.Run("returns once expanded", func(t *testing.T) {
		n := newNode(4)
		go n.expandTerminal(1)

		require.NoError(t, n.wait(context.Background()))
		require.True(t, n.expanded())
	})

	t.Run("returns the expansion failure", func(t *testing.T) {
		failure := errors.New("boom")
		n := newNode(4)
		n.fail(failure)

		require.ErrorIs(t, n.wait(context.Background()), failure)
		require.False(t, n.expanded())
	})

	t.Run("gives up on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.ErrorIs(t, newNode(4).wait(ctx), errCancelled)
	})
}

func TestTable(t *testing.T) {
	pos, _ := game.InitialPosition(4)
	next, _ := game.ApplyMove(pos, game.LegalActions(pos)[0])
	tbl := newTable()

	n, created := tbl.lookup(pos.Key(), pos.Board.Discs())
	require.True(t, created)
	again, created := tbl.lookup(pos.Key(), pos.Board.Discs())
	require.False(t, created, "Second lookup should find the node")
	require.Same(t, n, again)

	tbl.lookup(next.Key(), next.Board.Discs())
	require.Equal(t, 2, tbl.size())

	require.Equal(t, 1, tbl.prune(next.Board.Discs()), "Positions with fewer discs should be pruned")
	require.Nil(t, tbl.get(pos.Key()))
	require.NotNil(t, tbl.get(next.Key()))
}
