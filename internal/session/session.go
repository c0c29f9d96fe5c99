// Package session keeps one simulation per airspace. A session pairs a clock
// engine with the orchestrator listening to it; sessions are created on
// start and dropped on stop.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"skywatch-sim/internal/clock"
	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/logging"
	"skywatch-sim/internal/sim"
	"skywatch-sim/internal/simerr"
	"skywatch-sim/internal/telemetry"
)

// Session is one running airspace.
type Session struct {
	ID    string
	Clock *clock.Engine
	Orch  *sim.Orchestrator

	closers []func() error
}

// New wires orch to a fresh clock ticking every step.
func New(id string, step time.Duration, orch *sim.Orchestrator) (*Session, error) {
	if id == "" {
		return nil, simerr.Validation("session needs an airspace id")
	}
	if orch == nil {
		return nil, simerr.Validation("session %s needs an orchestrator", id)
	}
	eng, err := clock.New(step)
	if err != nil {
		return nil, err
	}
	eng.AddListener(orch)
	return &Session{ID: id, Clock: eng, Orch: orch}, nil
}

// OnClose registers fn to run after the session stops, e.g. closing a
// gateway connection.
func (s *Session) OnClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Session) close(ctx context.Context) {
	if s.Clock.State() != clock.StateStopped {
		_ = s.Clock.Stop()
	}
	s.Orch.Close()
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			logging.FromContext(ctx).Warn("session close hook failed", "airspace_id", s.ID, "err", err)
		}
	}
}

// Status is the externally visible state of a session.
type Status struct {
	AirspaceID  string                   `json:"airspace_id"`
	Clock       clock.Stats              `json:"clock"`
	Performance telemetry.PerformanceRow `json:"performance"`
	Environment environment.Snapshot     `json:"environment"`
	Devices     int                      `json:"devices"`
	Targets     int                      `json:"targets"`
}

// Status reports clock and orchestrator state.
func (s *Session) Status() Status {
	return Status{
		AirspaceID:  s.ID,
		Clock:       s.Clock.Stats(),
		Performance: s.Orch.Performance(),
		Environment: s.Orch.Environment(),
		Devices:     s.Orch.Sensors().Len(),
		Targets:     len(s.Orch.Snapshot()),
	}
}

// Factory builds a stopped session for an airspace id.
type Factory func(airspaceID string) (*Session, error)

// Manager owns the sessions keyed by airspace id.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  Factory
	// ctx outlives the requests that start sessions.
	ctx context.Context
}

// NewManager returns a manager creating sessions with factory. Clocks run
// under ctx, so cancelling it stops every session's loop.
func NewManager(ctx context.Context, factory Factory) *Manager {
	return &Manager{sessions: make(map[string]*Session), factory: factory, ctx: ctx}
}

// get returns the session for id, creating it when create is set. The
// factory may dial a remote simulator, so it runs without holding m.mu.
func (m *Manager) get(id string, create bool) (*Session, error) {
	if id == "" {
		return nil, simerr.Validation("airspace id is required")
	}
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return s, nil
	}
	if !create {
		return nil, simerr.NotFound("airspace %s has no session", id)
	}
	s, err := m.factory(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		// lost the race to a concurrent create
		s.close(m.ctx)
		return existing, nil
	}
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Start creates the session if needed and starts its clock.
func (m *Manager) Start(id string) (Status, error) {
	s, err := m.get(id, true)
	if err != nil {
		return Status{}, err
	}
	ctx := logging.NewContext(m.ctx, logging.FromContext(m.ctx).With("airspace_id", id))
	if err := s.Clock.Start(ctx); err != nil {
		return Status{}, err
	}
	return s.Status(), nil
}

// Pause suspends the clock of id.
func (m *Manager) Pause(id string) (Status, error) {
	s, err := m.get(id, false)
	if err != nil {
		return Status{}, err
	}
	if err := s.Clock.Pause(); err != nil {
		return Status{}, err
	}
	return s.Status(), nil
}

// Resume continues a paused clock.
func (m *Manager) Resume(id string) (Status, error) {
	s, err := m.get(id, false)
	if err != nil {
		return Status{}, err
	}
	if err := s.Clock.Resume(); err != nil {
		return Status{}, err
	}
	return s.Status(), nil
}

// Stop halts the session and forgets it.
func (m *Manager) Stop(id string) error {
	if id == "" {
		return simerr.Validation("airspace id is required")
	}
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return simerr.NotFound("airspace %s has no session", id)
	}
	s.close(m.ctx)
	return nil
}

// Step runs a single tick. A missing session is created in the stopped
// state so an airspace can be advanced tick by tick from the start.
func (m *Manager) Step(id string) (clock.Tick, error) {
	s, err := m.get(id, true)
	if err != nil {
		return clock.Tick{}, err
	}
	ctx := logging.NewContext(m.ctx, logging.FromContext(m.ctx).With("airspace_id", id))
	return s.Clock.Step(ctx)
}

// SetTimeStep changes the tick period of id.
func (m *Manager) SetTimeStep(id string, step time.Duration) (Status, error) {
	s, err := m.get(id, false)
	if err != nil {
		return Status{}, err
	}
	if err := s.Clock.SetTimeStep(step); err != nil {
		return Status{}, err
	}
	return s.Status(), nil
}

// Status reports the session of id.
func (m *Manager) Status(id string) (Status, error) {
	s, err := m.get(id, false)
	if err != nil {
		return Status{}, err
	}
	return s.Status(), nil
}

// Targets returns the targets seen on the last tick of id.
func (m *Manager) Targets(id string) ([]telemetry.Target, error) {
	s, err := m.get(id, false)
	if err != nil {
		return nil, err
	}
	return s.Orch.Snapshot(), nil
}

// DeviceEvents returns up to limit of the newest events of one device.
func (m *Manager) DeviceEvents(id, deviceID string, limit int) ([]detection.Event, error) {
	s, err := m.get(id, false)
	if err != nil {
		return nil, err
	}
	d, err := s.Orch.Sensors().Get(deviceID)
	if err != nil {
		return nil, err
	}
	return d.Log().Recent(limit), nil
}

// IDs lists the active airspaces.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops every session.
func (m *Manager) Close() {
	for _, id := range m.IDs() {
		_ = m.Stop(id)
	}
}
