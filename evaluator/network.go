package evaluator

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"othello/game"
	"sync"

	"github.com/patrikeh/go-deep"
)

// NetworkConfig describes the hidden layers shared by the policy and value
// networks. Input is the canonical board, one unit per cell.
type NetworkConfig struct {
	BoardSize int
	Hidden    []int
}

func DefaultNetworkConfig(size int) NetworkConfig {
	return NetworkConfig{
		BoardSize: size,
		Hidden:    []int{64, 64},
	}
}

// Network evaluates boards with two feed-forward networks: a softmax policy
// over size*size+1 actions and a regression value squashed into [-1, 1].
type Network struct {
	size int
	// go-deep keeps activations inside the neurons, so predictions are serialized
	mu     sync.Mutex
	policy *deep.Neural
	value  *deep.Neural
}

type parameters struct {
	BoardSize int        `json:"board_size"`
	Policy    *deep.Dump `json:"policy"`
	Value     *deep.Dump `json:"value"`
}

// New returns a randomly initialized network.
func New(config NetworkConfig) (*Network, error) {
	if err := game.ValidateSize(config.BoardSize); err != nil {
		return nil, err
	}
	for _, width := range config.Hidden {
		if width <= 0 {
			return nil, fmt.Errorf("hidden layer width %d must be positive", width)
		}
	}

	cells := config.BoardSize * config.BoardSize
	policyLayout := append(append([]int{}, config.Hidden...), game.NumActions(config.BoardSize))
	valueLayout := append(append([]int{}, config.Hidden...), 1)

	return &Network{
		size: config.BoardSize,
		policy: deep.NewNeural(&deep.Config{
			Inputs:     cells,
			Layout:     policyLayout,
			Activation: deep.ActivationReLU,
			Mode:       deep.ModeMultiClass,
			Weight:     deep.NewNormal(0.1, 0.0),
			Bias:       true,
		}),
		value: deep.NewNeural(&deep.Config{
			Inputs:     cells,
			Layout:     valueLayout,
			Activation: deep.ActivationReLU,
			Mode:       deep.ModeRegression,
			Weight:     deep.NewNormal(0.1, 0.0),
			Bias:       true,
		}),
	}, nil
}

// Load reads network parameters written by Save.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network parameters: %w", err)
	}

	var params parameters
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to decode network parameters %s: %w", path, err)
	}
	if err := game.ValidateSize(params.BoardSize); err != nil {
		return nil, fmt.Errorf("invalid network parameters %s: %w", path, err)
	}
	cells := params.BoardSize * params.BoardSize
	if err := checkDump(params.Policy, cells, game.NumActions(params.BoardSize)); err != nil {
		return nil, fmt.Errorf("invalid policy parameters %s: %w", path, err)
	}
	if err := checkDump(params.Value, cells, 1); err != nil {
		return nil, fmt.Errorf("invalid value parameters %s: %w", path, err)
	}

	n := &Network{size: params.BoardSize}
	if err := restore(func() {
		n.policy = deep.FromDump(params.Policy)
		n.value = deep.FromDump(params.Value)
	}); err != nil {
		return nil, fmt.Errorf("invalid network parameters %s: %w", path, err)
	}
	return n, nil
}

func checkDump(dump *deep.Dump, inputs, outputs int) error {
	if dump == nil || dump.Config == nil {
		return fmt.Errorf("missing network")
	}
	layout := dump.Config.Layout
	if dump.Config.Inputs != inputs {
		return fmt.Errorf("network takes %d inputs, want %d", dump.Config.Inputs, inputs)
	}
	if len(layout) == 0 || layout[len(layout)-1] != outputs {
		return fmt.Errorf("network layout %v must end with %d outputs", layout, outputs)
	}
	if len(dump.Weights) != len(layout) {
		return fmt.Errorf("weights cover %d layers, layout has %d", len(dump.Weights), len(layout))
	}
	for i, layer := range dump.Weights {
		if len(layer) != layout[i] {
			return fmt.Errorf("layer %d has %d neurons, want %d", i, len(layer), layout[i])
		}
	}
	return nil
}

// Save writes the parameters as JSON.
func (n *Network) Save(path string) error {
	n.mu.Lock()
	params := parameters{
		BoardSize: n.size,
		Policy:    n.policy.Dump(),
		Value:     n.value.Dump(),
	}
	n.mu.Unlock()

	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode network parameters: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write network parameters: %w", err)
	}
	return nil
}

func (n *Network) BoardSize() int {
	return n.size
}

// Evaluate implements searcher.Evaluator. A panic inside the network is
// reported as an error.
func (n *Network) Evaluate(board game.Board) (prior []float64, value float64, err error) {
	if board.Size() != n.size {
		return nil, 0, fmt.Errorf("board is %dx%d, network expects %dx%d", board.Size(), board.Size(), n.size, n.size)
	}

	inputs := board.Cells()
	var raw []float64
	err = restore(func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		prior = n.policy.Predict(inputs)
		raw = n.value.Predict(inputs)
	})
	if err != nil {
		return nil, 0, err
	}

	if len(prior) != game.NumActions(n.size) || len(raw) != 1 {
		return nil, 0, fmt.Errorf("network returned %d priors and %d values", len(prior), len(raw))
	}
	for a, p := range prior {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, 0, fmt.Errorf("network prior for action %d is %v", a, p)
		}
	}
	if math.IsNaN(raw[0]) {
		return nil, 0, fmt.Errorf("network value is NaN")
	}
	return prior, math.Tanh(raw[0]), nil
}

func restore(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("network panicked: %v", r)
		}
	}()
	f()
	return nil
}
