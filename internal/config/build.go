package config

import (
	"time"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/device"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/gateway"
	"skywatch-sim/internal/scenario"
	"skywatch-sim/internal/sim"
	"skywatch-sim/internal/simerr"
	"skywatch-sim/internal/spatial"
	"skywatch-sim/internal/telemetry"
)

// Spec converts the entry to a device spec.
func (d DeviceConfig) Spec() (device.Spec, error) {
	var blocks []device.Params
	if d.Radar != nil {
		blocks = append(blocks, *d.Radar)
	}
	if d.Optical != nil {
		blocks = append(blocks, *d.Optical)
	}
	if d.Radio != nil {
		blocks = append(blocks, *d.Radio)
	}
	if d.Jammer != nil {
		blocks = append(blocks, *d.Jammer)
	}
	var params device.Params
	switch len(blocks) {
	case 0:
		p, err := device.DefaultParams(d.Type)
		if err != nil {
			return device.Spec{}, err
		}
		params = p
	case 1:
		params = blocks[0]
	default:
		return device.Spec{}, simerr.Validation("device %s has %d parameter blocks", d.ID, len(blocks))
	}
	fov := d.FieldOfView
	if fov == 0 {
		fov = 360
	}
	return device.Spec{
		ID:          d.ID,
		Type:        d.Type,
		Position:    d.Position,
		Azimuth:     d.Azimuth,
		Elevation:   d.Elevation,
		RangeM:      d.RangeM,
		FieldOfView: fov,
		Params:      params,
	}, nil
}

// TimeStep returns the clock period.
func (c *Config) TimeStep() time.Duration {
	return time.Duration(c.Clock.TimeStepMS) * time.Millisecond
}

// OrchestratorOptions maps the orchestrator section.
func (c *Config) OrchestratorOptions() sim.Options {
	o := sim.Options{
		AirspaceID:         c.AirspaceID,
		Parallelism:        c.Orchestrator.Parallelism,
		DeadlineFraction:   c.Orchestrator.DeadlineFraction,
		DetectionThreshold: c.Orchestrator.DetectionThreshold,
		ReportInterval:     c.Orchestrator.ReportInterval,
	}
	if b := c.Orchestrator.Bounds; b != nil {
		o.Bounds = &spatial.Box{Min: b.Min, Max: b.Max}
	}
	return o
}

// ClientConfig maps the gateway section for rpc mode.
func (g GatewayConfig) ClientConfig() gateway.Config {
	return gateway.Config{
		Address:     g.Address,
		Timeout:     g.Timeout,
		MaxAttempts: g.MaxAttempts,
		BaseBackoff: g.BaseBackoff,
		MaxBackoff:  g.MaxBackoff,
	}
}

// DeviceSpecs converts every device entry.
func (c *Config) DeviceSpecs() ([]device.Spec, error) {
	specs := make([]device.Spec, 0, len(c.Devices))
	for _, d := range c.Devices {
		s, err := d.Spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// Sensors initializes a sensor per device and registers it. Devices with
// enabled: false are disabled after initialization.
func (c *Config) Sensors() (*device.Registry[detection.Detector], error) {
	reg := device.NewRegistry[detection.Detector]()
	for _, d := range c.Devices {
		spec, err := d.Spec()
		if err != nil {
			return nil, err
		}
		s, err := detection.NewSensor(c.Orchestrator.EventLogCapacity)
		if err != nil {
			return nil, err
		}
		if err := s.Initialize(spec); err != nil {
			return nil, err
		}
		if d.Enabled != nil && !*d.Enabled {
			if err := s.Disable(); err != nil {
				return nil, err
			}
		}
		if err := reg.Add(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// TargetList returns the static target attributes the orchestrator tracks.
func (c *Config) TargetList() []telemetry.Target {
	out := make([]telemetry.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		out = append(out, telemetry.Target{
			ID:        t.ID,
			Model:     t.Model,
			Position:  t.Position,
			Frequency: t.Frequency,
			Signature: t.Signature,
		})
	}
	return out
}

// Drones returns the initial state for the synthetic generator.
func (c *Config) Drones() []telemetry.Drone {
	out := make([]telemetry.Drone, 0, len(c.Targets))
	for _, t := range c.Targets {
		out = append(out, telemetry.Drone{ID: t.ID, Model: t.Model, Position: t.Position})
	}
	return out
}

// EnvironmentProvider returns a scenario timeline when a scenario is set and
// the static environment otherwise.
func (c *Config) EnvironmentProvider() (environment.Provider, error) {
	base := environment.Default()
	if c.Environment != nil {
		base = *c.Environment
	}
	if c.Scenario == "" {
		return environment.Static(base), nil
	}
	sc, err := scenario.Resolve(c.Scenario)
	if err != nil {
		return nil, err
	}
	return scenario.NewTimeline(sc, base), nil
}
