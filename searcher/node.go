package searcher

import (
	"context"
	"math"
	"othello/game"
	"sync"
)

// node holds the statistics of one canonical position. Edge statistics are
// indexed like actions, the legal actions in increasing order.
type node struct {
	sync.Mutex
	ready    chan struct{} // Closed once expanded (or failed)
	err      error
	discs    int
	terminal bool
	value    float64 // Terminal value for the mover
	actions  []game.Action
	prior    []float64
	visits   []int
	rewards  []float64
	losses   []int // Virtual losses of playouts still in flight
	total    int
}

func newNode(discs int) *node {
	return &node{ready: make(chan struct{}), discs: discs}
}

func (n *node) expandTerminal(value float64) {
	n.terminal = true
	n.value = value
	close(n.ready)
}

func (n *node) expand(actions []game.Action, prior []float64) {
	n.actions = actions
	n.prior = prior
	n.visits = make([]int, len(actions))
	n.rewards = make([]float64, len(actions))
	n.losses = make([]int, len(actions))
	close(n.ready)
}

func (n *node) fail(err error) {
	n.err = err
	close(n.ready)
}

// wait blocks until another playout finishes expanding the node.
func (n *node) wait(ctx context.Context) error {
	select {
	case <-n.ready:
		return n.err
	case <-ctx.Done():
		return errCancelled
	}
}

// selectEdge picks the edge maximizing PUCT, the lowest index winning ties,
// and applies a virtual loss to it until backup or revert.
func (n *node) selectEdge(c, virtualLoss float64) int {
	n.Lock()
	defer n.Unlock()

	inFlight := 0
	for _, l := range n.losses {
		inFlight += l
	}
	policy := newPUCT(c, n.total+inFlight)

	best := -1
	bestScore := math.Inf(-1)
	for i := range n.actions {
		visits := n.visits[i] + n.losses[i]
		q := 0.0
		if visits > 0 {
			q = (n.rewards[i] - virtualLoss*float64(n.losses[i])) / float64(visits)
		}
		if score := policy.evaluate(q, n.prior[i], visits); score > bestScore {
			best = i
			bestScore = score
		}
	}
	n.losses[best]++
	return best
}

func (n *node) backup(edge int, value float64) {
	n.Lock()
	defer n.Unlock()

	n.losses[edge]--
	n.visits[edge]++
	n.rewards[edge] += value
	n.total++
}

func (n *node) revert(edge int) {
	n.Lock()
	defer n.Unlock()

	n.losses[edge]--
}

// counts scatters the edge visit counts into a full action vector.
func (n *node) counts(numActions int) []float64 {
	out := make([]float64, numActions)
	n.Lock()
	defer n.Unlock()
	for i, a := range n.actions {
		out[a] = float64(n.visits[i])
	}
	return out
}

func (n *node) expanded() bool {
	select {
	case <-n.ready:
		return n.err == nil
	default:
		return false
	}
}

// table maps exact position keys to nodes.
type table struct {
	sync.RWMutex
	nodes map[game.Key]*node
}

func newTable() *table {
	return &table{nodes: make(map[game.Key]*node)}
}

// lookup returns the node for key, creating it when absent. The caller that
// created it is responsible for expanding it.
func (t *table) lookup(key game.Key, discs int) (*node, bool) {
	t.RLock()
	n, ok := t.nodes[key]
	t.RUnlock()
	if ok {
		return n, false
	}

	t.Lock()
	defer t.Unlock()
	if n, ok := t.nodes[key]; ok {
		return n, false
	}
	n = newNode(discs)
	t.nodes[key] = n
	return n, true
}

func (t *table) get(key game.Key) *node {
	t.RLock()
	defer t.RUnlock()
	return t.nodes[key]
}

func (t *table) remove(key game.Key) {
	t.Lock()
	defer t.Unlock()
	delete(t.nodes, key)
}

// prune drops nodes with fewer discs than the new root. Discs never
// disappear, so those positions cannot be reached again.
func (t *table) prune(discs int) int {
	t.Lock()
	defer t.Unlock()
	removed := 0
	for key, n := range t.nodes {
		if n.discs < discs {
			delete(t.nodes, key)
			removed++
		}
	}
	return removed
}

func (t *table) size() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.nodes)
}
