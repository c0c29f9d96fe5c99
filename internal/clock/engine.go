// Package clock advances simulation time in fixed steps and notifies listeners.
package clock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"skywatch-sim/internal/logging"
	"skywatch-sim/internal/simerr"
)

// Time step bounds.
const (
	MinTimeStep = time.Millisecond
	MaxTimeStep = time.Second
)

const latencyWindow = 64

// State is the lifecycle state of an Engine.
type State string

// Engine states.
const (
	StateStopped State = "STOPPED"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
)

// Tick describes one advance of simulation time.
type Tick struct {
	ID      uint64
	SimTime time.Duration
	Delta   time.Duration
	Wall    time.Time
}

// Listener is notified on every tick.
type Listener interface {
	OnTick(ctx context.Context, t Tick) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, t Tick) error

// OnTick implements Listener.
func (f ListenerFunc) OnTick(ctx context.Context, t Tick) error { return f(ctx, t) }

// Stats is a point-in-time view of the engine.
type Stats struct {
	State      State         `json:"state"`
	TimeStep   time.Duration `json:"time_step_ns"`
	TickCount  uint64        `json:"tick_count"`
	SimTime    time.Duration `json:"sim_time_ns"`
	FPS        float64       `json:"fps"`
	AvgLatency time.Duration `json:"avg_latency_ns"`
	StartedAt  time.Time     `json:"started_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Engine is a periodic tick source. Listeners run synchronously on the tick
// goroutine in registration order.
type Engine struct {
	mu        sync.Mutex
	state     State
	step      time.Duration
	listeners []Listener
	tickID    uint64
	simTime   time.Duration
	startedAt time.Time
	updatedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	resetCh   chan time.Duration

	// fireMu keeps the loop and Step from running ticks concurrently.
	fireMu    sync.Mutex
	tickTimes []time.Time
	latencies []time.Duration

	now func() time.Time
}

// New returns a stopped engine.
func New(step time.Duration) (*Engine, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	return &Engine{
		state:   StateStopped,
		step:    step,
		resetCh: make(chan time.Duration, 1),
		now:     time.Now,
	}, nil
}

func checkStep(step time.Duration) error {
	if step < MinTimeStep || step > MaxTimeStep {
		return simerr.Validation("time step %v outside [%v,%v]", step, MinTimeStep, MaxTimeStep)
	}
	return nil
}

// AddListener registers l for every following tick.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Start begins ticking. Tick ids and simulation time continue from any
// earlier Step or run of the same engine, so they never repeat.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateStopped {
		return simerr.State("cannot start clock in state %s", e.state)
	}
	e.startedAt = e.now()
	e.updatedAt = e.startedAt
	e.state = StateRunning

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(runCtx, e.step, e.done)
	logging.FromContext(ctx).Info("clock started", "time_step", e.step)
	return nil
}

// Pause suspends ticking without losing simulation time.
func (e *Engine) Pause() error {
	return e.transition(StateRunning, StatePaused)
}

// Resume continues a paused engine.
func (e *Engine) Resume() error {
	return e.transition(StatePaused, StateRunning)
}

func (e *Engine) transition(from, to State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != from {
		return simerr.State("cannot move clock from %s to %s", e.state, to)
	}
	e.state = to
	e.updatedAt = e.now()
	return nil
}

// Stop halts the tick loop and waits for an in-flight tick to finish.
// It must not be called from a listener.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return simerr.State("clock already stopped")
	}
	e.state = StateStopped
	e.updatedAt = e.now()
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Step runs exactly one tick synchronously. The engine must not be running.
func (e *Engine) Step(ctx context.Context) (Tick, error) {
	if st := e.State(); st == StateRunning {
		return Tick{}, simerr.State("cannot step a running clock")
	}
	return e.fire(ctx), nil
}

// SetTimeStep changes the tick period. A running loop picks it up on its next
// reschedule.
func (e *Engine) SetTimeStep(step time.Duration) error {
	if err := checkStep(step); err != nil {
		return err
	}
	e.mu.Lock()
	e.step = step
	e.updatedAt = e.now()
	e.mu.Unlock()

	// keep only the latest pending value
	select {
	case <-e.resetCh:
	default:
	}
	select {
	case e.resetCh <- step:
	default:
	}
	return nil
}

// TimeStep returns the current tick period.
func (e *Engine) TimeStep() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.step
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) run(ctx context.Context, step time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-e.resetCh:
			ticker.Reset(d)
		case <-ticker.C:
			if e.State() == StateRunning {
				e.fire(ctx)
			}
		}
	}
}

func (e *Engine) fire(ctx context.Context) Tick {
	e.fireMu.Lock()
	defer e.fireMu.Unlock()

	e.mu.Lock()
	e.tickID++
	e.simTime += e.step
	t := Tick{ID: e.tickID, SimTime: e.simTime, Delta: e.step, Wall: e.now()}
	e.updatedAt = t.Wall
	listeners := slices.Clone(e.listeners)
	e.mu.Unlock()

	start := time.Now()
	for _, l := range listeners {
		e.invoke(ctx, l, t)
	}
	e.record(t.Wall, time.Since(start))
	return t
}

func (e *Engine) invoke(ctx context.Context, l Listener, t Tick) {
	log := logging.FromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			log.Error("tick listener panicked", "tick", t.ID, "panic", fmt.Sprint(r))
		}
	}()
	if err := l.OnTick(ctx, t); err != nil {
		log.Error("tick listener failed", "tick", t.ID, "err", err)
	}
}

func (e *Engine) record(at time.Time, latency time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickTimes = append(pruneBefore(e.tickTimes, at.Add(-time.Second)), at)
	e.latencies = append(e.latencies, latency)
	if len(e.latencies) > latencyWindow {
		e.latencies = e.latencies[len(e.latencies)-latencyWindow:]
	}
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	return ts[i:]
}

// Stats reports FPS over the last second and the mean tick latency over the
// most recent ticks.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	recent := pruneBefore(e.tickTimes, e.now().Add(-time.Second))
	var avg time.Duration
	if n := len(e.latencies); n > 0 {
		var sum time.Duration
		for _, l := range e.latencies {
			sum += l
		}
		avg = sum / time.Duration(n)
	}
	return Stats{
		State:      e.state,
		TimeStep:   e.step,
		TickCount:  e.tickID,
		SimTime:    e.simTime,
		FPS:        float64(len(recent)),
		AvgLatency: avg,
		StartedAt:  e.startedAt,
		UpdatedAt:  e.updatedAt,
	}
}
