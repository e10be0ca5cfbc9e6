package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// AgentConfig identifies one agent of an experiment. A positive
// temperature makes it sample its moves, seeded per game from Seed. Addr
// delegates the search to a remote agent server.
type AgentConfig struct {
	ID          int
	Goroutines  int
	Duration    time.Duration
	Simulations int
	Exploration float64
	Temperature float64
	VirtualLoss float64
	TreeReuse   bool
	Seed        uint64
	Addr        string
}

type GameRecord struct {
	ID     int
	Agent1 int // AgentConfig.ID playing White
	Agent2 int // AgentConfig.ID playing Black
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

type Writer struct {
	baseDir string
}

// NewWriter creates a subfolder of root named after the experiment and the
// current timestamp.
func NewWriter(root, name string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(root, name, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

// OpenWriter writes into an existing directory.
func OpenWriter(dir string) *Writer {
	return &Writer{baseDir: dir}
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	header := []string{"id", "goroutines", "duration", "simulations", "exploration", "temperature", "virtual_loss", "tree_reuse", "seed", "addr"}
	rows := make([][]string, 0, len(configs))
	for _, config := range configs {
		rows = append(rows, []string{
			strconv.Itoa(config.ID),
			strconv.Itoa(config.Goroutines),
			config.Duration.String(),
			strconv.Itoa(config.Simulations),
			strconv.FormatFloat(config.Exploration, 'g', -1, 64),
			strconv.FormatFloat(config.Temperature, 'g', -1, 64),
			strconv.FormatFloat(config.VirtualLoss, 'g', -1, 64),
			strconv.FormatBool(config.TreeReuse),
			strconv.FormatUint(config.Seed, 10),
			config.Addr,
		})
	}
	return w.write("agent_configs.csv", header, rows)
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "agent1", "agent2", "starting_player", "winner", "score", "total_moves", "start_time", "end_time", "duration"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Agent1),
			strconv.Itoa(record.Agent2),
			strconv.Itoa(record.StartingPlayer),
			strconv.Itoa(record.Winner),
			strconv.Itoa(record.Score),
			strconv.Itoa(record.TotalMoves),
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
		})
	}
	return w.write("game_records.csv", header, rows)
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"game", "step", "player", "action", "goroutines", "duration", "simulations", "playouts", "evaluations", "terminal_hits", "table_size", "is_tree_reused", "is_cancelled"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Step),
			strconv.Itoa(record.Player),
			strconv.Itoa(record.Action),
			strconv.Itoa(record.Goroutines),
			record.Duration.String(),
			strconv.Itoa(record.Simulations),
			strconv.Itoa(record.Playouts),
			strconv.Itoa(record.Evaluations),
			strconv.Itoa(record.TerminalHits),
			strconv.Itoa(record.TableSize),
			strconv.FormatBool(record.IsTreeReused),
			strconv.FormatBool(record.IsCancelled),
		})
	}
	return w.write("move_records.csv", header, rows)
}

func (w *Writer) write(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}
	return nil
}
