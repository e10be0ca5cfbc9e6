package searcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"othello/experiments/metrics"
	"othello/game"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Option func(mcts *MCTS)

// errCancelled stops a playout when the call's context ends; the search
// still returns the distribution accumulated so far.
var errCancelled = errors.New("search cancelled")

// MCTS computes action distributions by PUCT tree search guided by an
// Evaluator. One search runs at a time per instance; concurrent calls are
// serialized. Nodes are owned by the instance and, unless WithTreeReuse is
// given, discarded at the start of every call.
type MCTS struct {
	mu          sync.Mutex
	size        int
	evaluator   Evaluator
	goroutines  int
	duration    time.Duration
	reuse       bool
	virtualLoss float64
	table       *table
	rootDiscs   int // Discs at the last root, to detect a new game
	metrics     metrics.Collector
	last        metrics.SearchMetric
}

type step struct {
	node *node
	edge int
}

// WithGoroutines runs playouts on several goroutines sharing the tree.
// Nodes are locked individually and a virtual loss discourages workers from
// descending the same path before backup.
func WithGoroutines(goroutines int) Option {
	return func(m *MCTS) {
		if goroutines > 0 {
			m.goroutines = goroutines
		}
	}
}

// WithDuration bounds every call; the search then returns the distribution
// of the playouts completed in time.
func WithDuration(duration time.Duration) Option {
	return func(m *MCTS) {
		if duration > 0 {
			m.duration = duration
		}
	}
}

// WithTreeReuse keeps statistics across calls. Nodes with fewer discs than
// the new root are pruned since they are no longer reachable. A root with
// fewer discs than the previous one starts a new game and a new tree.
func WithTreeReuse() Option {
	return func(m *MCTS) {
		m.reuse = true
	}
}

func WithVirtualLoss(loss float64) Option {
	return func(m *MCTS) {
		if loss >= 0 {
			m.virtualLoss = loss
		}
	}
}

func WithMetrics() Option {
	return func(m *MCTS) {
		m.metrics = metrics.NewCollector()
	}
}

// NewMCTS builds a search engine for a board size. A missing evaluator or
// one expecting another board size is a configuration error: the engine
// never falls back to unguided play.
func NewMCTS(size int, evaluator Evaluator, options ...Option) (*MCTS, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("%w: no evaluator", ErrConfiguration)
	}
	if err := game.ValidateSize(size); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if evaluator.BoardSize() != size {
		return nil, fmt.Errorf("%w: evaluator expects a %dx%d board, search uses %dx%d",
			ErrConfiguration, evaluator.BoardSize(), evaluator.BoardSize(), size, size)
	}

	m := &MCTS{ // Default values
		size:        size,
		evaluator:   evaluator,
		goroutines:  1,
		virtualLoss: DefaultVirtualLoss,
		metrics:     metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(m)
	}
	return m, nil
}

func (m *MCTS) BoardSize() int {
	return m.size
}

// LastSearch returns the metrics of the latest call (zero without WithMetrics).
func (m *MCTS) LastSearch() metrics.SearchMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// ComputeActionProbabilities runs up to simulations playouts from pos and
// returns a distribution over all size*size+1 actions, zero on illegal ones.
// Cancelling ctx (or exceeding WithDuration) ends the search early with the
// distribution of the completed playouts. An evaluator failure aborts the
// call with an *EvaluationError and no distribution.
func (m *MCTS) ComputeActionProbabilities(ctx context.Context, pos game.Position, simulations int, exploration, temperature float64) ([]float64, error) {
	if err := m.validate(pos, simulations, exploration, temperature); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	numActions := game.NumActions(m.size)
	mask := game.ValidMoves(pos)
	actions := game.LegalActions(pos)
	m.metrics.Start(m.goroutines, simulations)
	if len(actions) == 1 { // Forced move, nothing to search
		m.last = m.metrics.Complete(0, false)
		return oneHot(numActions, int(actions[0])), nil
	}

	root := pos.Canonical()
	m.prepareTable(root)

	if m.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.duration)
		defer cancel()
	}

	cancelled, err := m.run(ctx, root, simulations, exploration)
	m.last = m.metrics.Complete(m.table.size(), cancelled)
	if err != nil {
		return nil, err
	}

	counts := make([]float64, numActions)
	if n := m.table.get(root.Key()); n != nil && n.expanded() {
		counts = n.counts(numActions)
	}

	log.Debug().
		Int("simulations", simulations).
		Bool("cancelled", cancelled).
		Int("nodes", m.table.size()).
		Msg("search complete")

	return shape(counts, mask, temperature), nil
}

func (m *MCTS) validate(pos game.Position, simulations int, exploration, temperature float64) error {
	if pos.Size() != m.size {
		return fmt.Errorf("%w: position is %dx%d, search uses %dx%d",
			ErrInvalidArgument, pos.Size(), pos.Size(), m.size, m.size)
	}
	if !pos.Player.Valid() {
		return fmt.Errorf("%w: no player to move (%s)", ErrInvalidArgument, pos.Player)
	}
	if simulations < 0 {
		return fmt.Errorf("%w: negative simulation budget %d", ErrInvalidArgument, simulations)
	}
	if exploration < 0 || math.IsNaN(exploration) || math.IsInf(exploration, 0) {
		return fmt.Errorf("%w: exploration constant %v", ErrInvalidArgument, exploration)
	}
	if temperature < 0 || math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return fmt.Errorf("%w: temperature %v", ErrInvalidArgument, temperature)
	}
	return nil
}

func (m *MCTS) prepareTable(root game.Position) {
	discs := root.Board.Discs()
	if !m.reuse || m.table == nil || discs < m.rootDiscs {
		if m.reuse && m.table != nil {
			log.Debug().Int("discs", discs).Msg("new game, dropping retained search tree")
		}
		m.table = newTable()
		m.rootDiscs = discs
		m.metrics.SetTreeReused(false)
		return
	}

	m.rootDiscs = discs
	pruned := m.table.prune(discs)
	reused := m.table.get(root.Key()) != nil
	m.metrics.SetTreeReused(reused)
	log.Debug().Int("pruned", pruned).Bool("reused", reused).Msg("retained search tree")
}

func (m *MCTS) run(ctx context.Context, root game.Position, simulations int, exploration float64) (bool, error) {
	if m.goroutines == 1 {
		for i := 0; i < simulations; i++ {
			if ctx.Err() != nil {
				return true, nil
			}
			err := m.playout(ctx, root, exploration)
			if errors.Is(err, errCancelled) {
				return true, nil
			}
			if err != nil {
				return false, err
			}
		}
		return false, nil
	}

	var started atomic.Int64
	var stopped atomic.Bool
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < m.goroutines; i++ {
		g.Go(func() error {
			for started.Add(1) <= int64(simulations) {
				if gctx.Err() != nil {
					stopped.Store(true)
					return nil
				}
				err := m.playout(gctx, root, exploration)
				if errors.Is(err, errCancelled) {
					stopped.Store(true)
					return nil
				}
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return stopped.Load(), nil
}

// playout descends from the root along PUCT choices until it reaches a
// position without statistics or a terminal one, then backs the value up
// the path. The path is an explicit stack, never recursion.
func (m *MCTS) playout(ctx context.Context, root game.Position, exploration float64) error {
	pos := root
	var path []step
	for {
		key := pos.Key()
		n, created := m.table.lookup(key, pos.Board.Discs())
		if created {
			value, err := m.expand(n, pos)
			if err != nil {
				m.table.remove(key)
				n.fail(err)
				revert(path)
				return err
			}
			backup(path, value)
			m.metrics.AddPlayout()
			return nil
		}

		if err := n.wait(ctx); err != nil {
			revert(path)
			return err
		}
		if n.terminal {
			m.metrics.AddTerminalHit()
			backup(path, n.value)
			m.metrics.AddPlayout()
			return nil
		}

		edge := n.selectEdge(exploration, m.virtualLoss)
		path = append(path, step{node: n, edge: edge})
		next, err := game.ApplyMove(pos, n.actions[edge])
		if err != nil {
			revert(path)
			return err
		}
		pos = next.Canonical()
	}
}

// expand records statistics for a new position and returns its value for
// the player to move.
func (m *MCTS) expand(n *node, pos game.Position) (float64, error) {
	if outcome := game.GameOutcome(pos); outcome.Terminal() {
		m.metrics.AddTerminalHit()
		n.expandTerminal(outcome.Value())
		return outcome.Value(), nil
	}

	actions := game.LegalActions(pos)
	raw, value, err := m.evaluator.Evaluate(pos.Board)
	m.metrics.AddEvaluation()
	if err == nil {
		err = checkEvaluation(raw, value, game.NumActions(m.size))
	}
	if err != nil {
		return 0, &EvaluationError{Position: pos, Err: err}
	}

	legal := make([]int, len(actions))
	for i, a := range actions {
		legal[i] = int(a)
	}
	prior, ok := normalizePrior(raw, legal)
	if !ok {
		log.Warn().Int("discs", pos.Board.Discs()).Msg("evaluator prior has no mass on legal actions, using a uniform prior")
	}
	n.expand(actions, prior)
	return value, nil
}

func checkEvaluation(prior []float64, value float64, numActions int) error {
	if len(prior) != numActions {
		return fmt.Errorf("prior has %d entries, want %d", len(prior), numActions)
	}
	for a, p := range prior {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("prior entry %d is %v", a, p)
		}
	}
	if math.IsNaN(value) || value < -1 || value > 1 {
		return fmt.Errorf("value %v is outside [-1, 1]", value)
	}
	return nil
}

// backup walks the path bottom-up. value is for the player to move at the
// leaf; each edge is credited from its own mover's perspective, so the sign
// alternates with every ply.
func backup(path []step, value float64) {
	v := -value
	for i := len(path) - 1; i >= 0; i-- {
		path[i].node.backup(path[i].edge, v)
		v = -v
	}
}

func revert(path []step) {
	for _, s := range path {
		s.node.revert(s.edge)
	}
}
