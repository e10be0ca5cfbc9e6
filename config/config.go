package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"othello/evaluator"
	"othello/experiments/metrics"
	"othello/game"
	"othello/searcher"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	EvaluatorHeuristic = "heuristic"
	EvaluatorNetwork   = "network"
)

type Config struct {
	BoardSize  int              `yaml:"board_size"`
	LogLevel   string           `yaml:"log_level"`
	Search     SearchConfig     `yaml:"search"`
	Evaluator  EvaluatorConfig  `yaml:"evaluator"`
	Server     ServerConfig     `yaml:"server"`
	Arena      ArenaConfig      `yaml:"arena"`
	Throughput ThroughputConfig `yaml:"throughput"`
}

// SearchConfig holds the per-move search parameters and engine options.
type SearchConfig struct {
	Simulations int           `yaml:"simulations"`
	Exploration float64       `yaml:"exploration"`
	Temperature float64       `yaml:"temperature"`
	Goroutines  int           `yaml:"goroutines"`
	Duration    time.Duration `yaml:"duration"` // 0 means no time bound
	TreeReuse   bool          `yaml:"tree_reuse"`
	VirtualLoss float64       `yaml:"virtual_loss"`
}

// EvaluatorConfig selects the evaluator. Kind defaults to the network when
// a parameters file is given and to the heuristic otherwise.
type EvaluatorConfig struct {
	Kind   string `yaml:"kind"`
	Params string `yaml:"params"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ArenaConfig lists the agents of an arena; the first is the baseline every
// other agent plays against.
type ArenaConfig struct {
	Games     int           `yaml:"games"`
	MaxPlies  int           `yaml:"max_plies"`
	OutputDir string        `yaml:"output_dir"`
	Agents    []AgentConfig `yaml:"agents"`
}

// AgentConfig is one arena agent. Agents with a positive temperature sample
// their moves from a generator seeded with Seed; agents with an Addr play
// through a remote agent server.
type AgentConfig struct {
	SearchConfig `yaml:",inline"`
	Seed         uint64 `yaml:"seed"`
	Addr         string `yaml:"addr"`
}

// ThroughputConfig runs self-play games under a time budget per move for
// each goroutine count.
type ThroughputConfig struct {
	Games       int           `yaml:"games"`
	Goroutines  []int         `yaml:"goroutines"`
	Duration    time.Duration `yaml:"duration"`
	Simulations int           `yaml:"simulations"`
}

func Default() Config {
	search := SearchConfig{
		Simulations: 50,
		Exploration: searcher.DefaultExploration,
		Temperature: 0,
		Goroutines:  1,
		VirtualLoss: searcher.DefaultVirtualLoss,
	}
	challenger := search
	challenger.Simulations = 200

	return Config{
		BoardSize: 6,
		LogLevel:  "info",
		Search:    search,
		Server:    ServerConfig{Addr: ":8080"},
		Arena: ArenaConfig{
			Games:     10,
			MaxPlies:  200,
			OutputDir: "results",
			Agents:    []AgentConfig{{SearchConfig: search}, {SearchConfig: challenger}},
		},
		Throughput: ThroughputConfig{
			Games:       2,
			Goroutines:  []int{1, 2, 4, 8},
			Duration:    100 * time.Millisecond,
			Simulations: 1_000_000,
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := game.ValidateSize(c.BoardSize); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	switch c.EvaluatorKind() {
	case EvaluatorHeuristic:
	case EvaluatorNetwork:
		if c.Evaluator.Params == "" {
			return fmt.Errorf("network evaluator needs a params file")
		}
	default:
		return fmt.Errorf("unknown evaluator kind %q", c.Evaluator.Kind)
	}
	if c.Arena.Games < 0 || c.Arena.MaxPlies < 0 {
		return fmt.Errorf("arena games and max plies must not be negative")
	}
	for i, agent := range c.Arena.Agents {
		if err := agent.Validate(); err != nil {
			return fmt.Errorf("arena agent %d: %w", i, err)
		}
	}
	if err := c.Throughput.Validate(); err != nil {
		return fmt.Errorf("throughput: %w", err)
	}
	return nil
}

func (t ThroughputConfig) Validate() error {
	if t.Games < 0 || t.Simulations < 0 || t.Duration < 0 {
		return fmt.Errorf("games, simulations and duration must not be negative")
	}
	if len(t.Goroutines) == 0 {
		return fmt.Errorf("needs at least one goroutine count")
	}
	for _, g := range t.Goroutines {
		if g < 1 {
			return fmt.Errorf("goroutine counts must be at least 1")
		}
	}
	return nil
}

func (s SearchConfig) Validate() error {
	switch {
	case s.Simulations < 0:
		return fmt.Errorf("simulations must not be negative")
	case s.Exploration < 0:
		return fmt.Errorf("exploration must not be negative")
	case s.Temperature < 0:
		return fmt.Errorf("temperature must not be negative")
	case s.Goroutines < 1:
		return fmt.Errorf("goroutines must be at least 1")
	case s.Duration < 0:
		return fmt.Errorf("duration must not be negative")
	case s.VirtualLoss < 0:
		return fmt.Errorf("virtual loss must not be negative")
	}
	return nil
}

func (c Config) EvaluatorKind() string {
	if c.Evaluator.Kind != "" {
		return c.Evaluator.Kind
	}
	if c.Evaluator.Params != "" {
		return EvaluatorNetwork
	}
	return EvaluatorHeuristic
}

// NewEvaluator builds the configured evaluator; network parameters are read
// once here.
func (c Config) NewEvaluator() (searcher.Evaluator, error) {
	if c.EvaluatorKind() == EvaluatorNetwork {
		network, err := evaluator.Load(c.Evaluator.Params)
		if err != nil {
			return nil, err
		}
		return network, nil
	}
	return evaluator.NewHeuristic(c.BoardSize)
}

func (s SearchConfig) Options() []searcher.Option {
	options := []searcher.Option{
		searcher.WithGoroutines(s.Goroutines),
		searcher.WithVirtualLoss(s.VirtualLoss),
		searcher.WithMetrics(),
	}
	if s.Duration > 0 {
		options = append(options, searcher.WithDuration(s.Duration))
	}
	if s.TreeReuse {
		options = append(options, searcher.WithTreeReuse())
	}
	return options
}

// AgentConfigs numbers the arena agents from 0, the baseline.
func (a ArenaConfig) AgentConfigs() []metrics.AgentConfig {
	configs := make([]metrics.AgentConfig, len(a.Agents))
	for i, agent := range a.Agents {
		configs[i] = metrics.AgentConfig{
			ID:          i,
			Goroutines:  agent.Goroutines,
			Duration:    agent.Duration,
			Simulations: agent.Simulations,
			Exploration: agent.Exploration,
			Temperature: agent.Temperature,
			VirtualLoss: agent.VirtualLoss,
			TreeReuse:   agent.TreeReuse,
			Seed:        agent.Seed,
			Addr:        agent.Addr,
		}
	}
	return configs
}
