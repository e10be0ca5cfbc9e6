package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteThroughputChart renders the mean playouts per second at each game
// step, one line per agent.
func (w *Writer) WriteThroughputChart(games []GameRecord, moves []MoveRecord) (string, error) {
	agentOf := make(map[[2]int]int, len(games)*2) // (game, player) -> agent
	for _, g := range games {
		agentOf[[2]int{g.ID, 1}] = g.Agent1
		agentOf[[2]int{g.ID, -1}] = g.Agent2
	}

	type tally struct {
		sum   float64
		count int
	}
	series := map[int]map[int]*tally{} // agent -> step -> tally
	maxStep := 0
	for _, m := range moves {
		if m.Duration <= 0 {
			continue
		}
		agent := agentOf[[2]int{m.Game, m.Player}]
		if series[agent] == nil {
			series[agent] = map[int]*tally{}
		}
		t := series[agent][m.Step]
		if t == nil {
			t = &tally{}
			series[agent][m.Step] = t
		}
		t.sum += float64(m.Playouts) / m.Duration.Seconds()
		t.count++
		maxStep = max(maxStep, m.Step)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Search throughput",
			Subtitle: "mean playouts per second by step",
		}),
	)

	steps := make([]string, 0, maxStep)
	for i := 1; i <= maxStep; i++ {
		steps = append(steps, strconv.Itoa(i))
	}
	line.SetXAxis(steps)

	agents := make([]int, 0, len(series))
	for agent := range series {
		agents = append(agents, agent)
	}
	sort.Ints(agents)
	for _, agent := range agents {
		items := make([]opts.LineData, 0, maxStep)
		for i := 1; i <= maxStep; i++ {
			if t := series[agent][i]; t != nil {
				items = append(items, opts.LineData{Value: t.sum / float64(t.count)})
			} else {
				items = append(items, opts.LineData{Value: "-"})
			}
		}
		line.AddSeries(fmt.Sprintf("agent %d", agent), items)
	}

	path := filepath.Join(w.baseDir, "throughput.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	page := components.NewPage()
	page.AddCharts(line)
	if err := page.Render(f); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return path, nil
}
