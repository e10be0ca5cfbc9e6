package metrics

import (
	"sync/atomic"
	"time"
)

type SearchMetric struct {
	Goroutines   int
	Duration     time.Duration
	Simulations  int // Requested budget
	Playouts     int // Completed playouts
	Evaluations  int
	TerminalHits int
	TableSize    int
	IsTreeReused bool
	IsCancelled  bool
}

type MoveMetric struct {
	Step   int
	Player int // +1 or -1
	Action int
	SearchMetric
}

type GameMetric struct {
	StartingPlayer int
	Winner         int // 0 for a draw
	Score          int // Disc differential for White
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalMoves     int
}

type Collector interface {
	Start(goroutines, simulations int)
	SetTreeReused(value bool)
	AddPlayout()
	AddEvaluation()
	AddTerminalHit()
	Complete(tableSize int, cancelled bool) SearchMetric
}

type collector struct {
	goroutines   int
	simulations  int
	startTime    time.Time
	playouts     atomic.Int32
	evaluations  atomic.Int32
	terminalHits atomic.Int32
	isTreeReused atomic.Bool
}

func NewCollector() Collector {
	return &collector{}
}

func (m *collector) Start(goroutines, simulations int) {
	m.startTime = time.Now()
	m.goroutines = goroutines
	m.simulations = simulations
	m.playouts.Store(0)
	m.evaluations.Store(0)
	m.terminalHits.Store(0)
}

func (m *collector) SetTreeReused(value bool) {
	m.isTreeReused.Store(value)
}

func (m *collector) AddPlayout() {
	m.playouts.Add(1)
}

func (m *collector) AddEvaluation() {
	m.evaluations.Add(1)
}

func (m *collector) AddTerminalHit() {
	m.terminalHits.Add(1)
}

func (m *collector) Complete(tableSize int, cancelled bool) SearchMetric {
	return SearchMetric{
		Goroutines:   m.goroutines,
		Duration:     time.Since(m.startTime),
		Simulations:  m.simulations,
		Playouts:     int(m.playouts.Load()),
		Evaluations:  int(m.evaluations.Load()),
		TerminalHits: int(m.terminalHits.Load()),
		TableSize:    tableSize,
		IsTreeReused: m.isTreeReused.Load(),
		IsCancelled:  cancelled,
	}
}

type dummyCollector struct{}

func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (m *dummyCollector) Start(goroutines, simulations int)                   {}
func (m *dummyCollector) SetTreeReused(value bool)                            {}
func (m *dummyCollector) AddPlayout()                                         {}
func (m *dummyCollector) AddEvaluation()                                      {}
func (m *dummyCollector) AddTerminalHit()                                     {}
func (m *dummyCollector) Complete(tableSize int, cancelled bool) SearchMetric { return SearchMetric{} }
