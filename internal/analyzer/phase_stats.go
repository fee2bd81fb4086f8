package analyzer

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/util"
)

// Phase is one timed step of a run
type Phase struct {
	Name     string
	Duration time.Duration
}

// PhaseStats records how long each phase of a run took
type PhaseStats struct {
	mu     sync.Mutex
	phases []Phase
}

// NewPhaseStats creates an empty PhaseStats
func NewPhaseStats() *PhaseStats {
	return &PhaseStats{}
}

// Track starts timing a phase; call the returned function when it ends.
func (ps *PhaseStats) Track(name string) func() {
	start := time.Now()
	return func() {
		ps.mu.Lock()
		ps.phases = append(ps.phases, Phase{Name: name, Duration: time.Since(start)})
		ps.mu.Unlock()
	}
}

// Phases returns the finished phases in completion order
func (ps *PhaseStats) Phases() []Phase {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return append([]Phase(nil), ps.phases...)
}

// Last returns the duration of the most recently finished phase
func (ps *PhaseStats) Last() time.Duration {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if len(ps.phases) == 0 {
		return 0
	}
	return ps.phases[len(ps.phases)-1].Duration
}

// Total sums all phase durations
func (ps *PhaseStats) Total() time.Duration {
	var total time.Duration
	for _, p := range ps.Phases() {
		total += p.Duration
	}
	return total
}

func (ps *PhaseStats) String() string {
	phases := ps.Phases()
	parts := make([]string, len(phases))
	for i, p := range phases {
		parts[i] = fmt.Sprintf("%s:%v", p.Name, p.Duration)
	}
	return strings.Join(parts, " ")
}

// PrintFinalStats logs the total and per-phase durations
func (ps *PhaseStats) PrintFinalStats() {
	util.LogDebug(fmt.Sprintf("Total duration: %v (%s)", ps.Total(), ps.String()))
}
