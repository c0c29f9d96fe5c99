package scenario

import (
	"sync"
	"time"

	"skywatch-sim/internal/environment"
)

// Timeline is an environment.Provider that walks a scenario's phases as
// simulation time passes and detections accumulate.
type Timeline struct {
	mu         sync.Mutex
	sc         *Scenario
	base       environment.Snapshot
	current    string
	phaseStart time.Duration
	detections int
}

// NewTimeline starts sc at its first phase.
func NewTimeline(sc *Scenario, base environment.Snapshot) *Timeline {
	t := &Timeline{sc: sc, base: base}
	if len(sc.Phases) > 0 {
		t.current = sc.Phases[0].Name
	}
	return t
}

// Phase returns the active phase name.
func (t *Timeline) Phase() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Observe feeds a detection count into the trigger evaluation.
func (t *Timeline) Observe(detections int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.detections += detections
	if next, ok := t.sc.NextPhase(t.current, Event{Type: EventDetections, Value: t.detections}); ok {
		t.current = next
		t.detections = 0
	}
}

// At implements environment.Provider.
func (t *Timeline) At(simTime time.Duration) environment.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	// chained time triggers may fire in one call
	for i := 0; i < len(t.sc.Phases); i++ {
		elapsed := int((simTime - t.phaseStart) / time.Second)
		next, ok := t.sc.NextPhase(t.current, Event{Type: EventTimeElapsed, Value: elapsed})
		if !ok {
			break
		}
		t.current = next
		t.phaseStart = simTime
		t.detections = 0
	}
	p, ok := t.sc.phase(t.current)
	if !ok {
		return t.base
	}
	return p.Environment.Apply(t.base)
}
