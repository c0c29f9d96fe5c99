package detection

import (
	"context"
	"sort"

	"skywatch-sim/internal/device"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/simerr"
	"skywatch-sim/internal/telemetry"
)

// Detector is the capability set shared by every sensor kind.
type Detector interface {
	ID() string
	Initialize(spec device.Spec) error
	PerformDetection(ctx context.Context, targets []telemetry.Target, env environment.Snapshot) ([]Result, error)
	AdjustParameters(p device.Params) error
	Enable() error
	Disable() error
	Reset() error
	Status() device.Status
	Ready() bool
	Snapshot() device.Snapshot
	Log() *EventLog
}

// Sensor is a Detector backed by a device and its bounded event log.
type Sensor struct {
	*device.Device
	log *EventLog
}

var _ Detector = (*Sensor)(nil)

// NewSensor returns an uninitialized sensor keeping logCapacity events.
func NewSensor(logCapacity int) (*Sensor, error) {
	log, err := NewEventLog(logCapacity)
	if err != nil {
		return nil, err
	}
	return &Sensor{Device: device.New(), log: log}, nil
}

// Log returns the sensor's event log.
func (s *Sensor) Log() *EventLog { return s.log }

// Reset returns the device to ACTIVE and clears its event log.
func (s *Sensor) Reset() error {
	if err := s.Device.Reset(); err != nil {
		return err
	}
	s.log.Clear()
	return nil
}

// PerformDetection evaluates every target and returns the results in target
// id order. It stops early, returning ctx.Err(), once ctx is done.
func (s *Sensor) PerformDetection(ctx context.Context, targets []telemetry.Target, env environment.Snapshot) ([]Result, error) {
	if !s.Ready() {
		return nil, simerr.State("device %s is not ready", s.ID())
	}
	spec := s.Spec()
	var out []Result
	for _, tgt := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, ok, err := Evaluate(spec, tgt, env)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TargetID < out[j].TargetID })
	return out, nil
}
