// YAML config loader with CUE validation integration
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"skywatch-sim/internal/device"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/simerr"
	"skywatch-sim/internal/telemetry"
)

// Defaults applied after loading.
const (
	DefaultTimeStepMS       = 100
	DefaultEventLogCapacity = 1000
	DefaultGatewayMode      = "local"
	DefaultBoundsM          = 5000
)

// ClockConfig sets the tick period.
type ClockConfig struct {
	TimeStepMS int `yaml:"time_step_ms"`
}

// Bounds is an axis-aligned airspace box in NED metres.
type Bounds struct {
	Min geo.Position `yaml:"min"`
	Max geo.Position `yaml:"max"`
}

// OrchestratorConfig tunes the detection orchestrator.
type OrchestratorConfig struct {
	Parallelism        int           `yaml:"parallelism"`
	DeadlineFraction   float64       `yaml:"deadline_fraction"`
	DetectionThreshold float64       `yaml:"detection_threshold"`
	ReportInterval     time.Duration `yaml:"report_interval"`
	EventLogCapacity   int           `yaml:"event_log_capacity"`
	Bounds             *Bounds       `yaml:"bounds"`
}

// GatewayConfig selects the target state source. Mode "local" drives targets
// from the synthetic generator; "rpc" dials the external simulator.
type GatewayConfig struct {
	Mode        string        `yaml:"mode"`
	Address     string        `yaml:"address"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
	Seed        int64         `yaml:"seed"`
	BoundsM     float64       `yaml:"bounds_m"`
}

// DeviceConfig describes one detection device. At most one parameter block
// may be set and it must match Type; a missing block selects the defaults.
type DeviceConfig struct {
	ID          string                `yaml:"id"`
	Type        device.Type           `yaml:"type"`
	Position    geo.Position          `yaml:"position"`
	Azimuth     float64               `yaml:"azimuth_deg"`
	Elevation   float64               `yaml:"elevation_deg"`
	RangeM      float64               `yaml:"range_m"`
	FieldOfView float64               `yaml:"field_of_view_deg"`
	Enabled     *bool                 `yaml:"enabled"`
	Radar       *device.RadarParams   `yaml:"radar"`
	Optical     *device.OpticalParams `yaml:"optical"`
	Radio       *device.RadioParams   `yaml:"radio"`
	Jammer      *device.JammerParams  `yaml:"jammer"`
}

// TargetConfig describes a tracked drone. Zero frequency or signature fields
// are taken from the model profile.
type TargetConfig struct {
	ID        string              `yaml:"id"`
	Model     string              `yaml:"model"`
	Position  geo.Position        `yaml:"position"`
	Frequency float64             `yaml:"frequency_hz"`
	Signature telemetry.Signature `yaml:"signature"`
}

// Config is the root configuration of one airspace.
type Config struct {
	AirspaceID   string                `yaml:"airspace_id"`
	Clock        ClockConfig           `yaml:"clock"`
	Orchestrator OrchestratorConfig    `yaml:"orchestrator"`
	Gateway      GatewayConfig         `yaml:"gateway"`
	Environment  *environment.Snapshot `yaml:"environment"`
	Scenario     string                `yaml:"scenario"`
	Devices      []DeviceConfig        `yaml:"devices"`
	Targets      []TargetConfig        `yaml:"targets"`
}

// Load reads the YAML file at path, validates it against the embedded CUE
// schema and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Config, error) {
	// Validate with CUE first
	if err := ValidateWithCue(data, nil); err != nil {
		return nil, err
	}
	// environment fields left out of the file keep their defaults
	env := environment.Default()
	cfg := Config{Environment: &env}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, simerr.Validation("cannot unmarshal YAML config: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Clock.TimeStepMS == 0 {
		c.Clock.TimeStepMS = DefaultTimeStepMS
	}
	if c.Orchestrator.EventLogCapacity == 0 {
		c.Orchestrator.EventLogCapacity = DefaultEventLogCapacity
	}
	if c.Gateway.Mode == "" {
		c.Gateway.Mode = DefaultGatewayMode
	}
	if c.Gateway.BoundsM == 0 {
		c.Gateway.BoundsM = DefaultBoundsM
	}
	if c.Environment == nil {
		env := environment.Default()
		c.Environment = &env
	}
	for i := range c.Targets {
		t := &c.Targets[i]
		p := telemetry.ProfileFor(t.Model)
		if t.Frequency == 0 {
			t.Frequency = p.Frequency
		}
		if t.Signature == (telemetry.Signature{}) {
			t.Signature = p.Signature
		}
	}
}

// Validate checks cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AirspaceID) == "" {
		return simerr.Validation("airspace_id is required")
	}
	switch c.Gateway.Mode {
	case "local":
	case "rpc":
		if c.Gateway.Address == "" {
			return simerr.Validation("gateway address is required in rpc mode")
		}
	default:
		return simerr.Validation("unknown gateway mode %q", c.Gateway.Mode)
	}
	if err := c.Environment.Validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Devices))
	for _, d := range c.Devices {
		if _, dup := seen[d.ID]; dup {
			return simerr.Validation("duplicate device %s", d.ID)
		}
		seen[d.ID] = struct{}{}
		spec, err := d.Spec()
		if err != nil {
			return err
		}
		if err := spec.Validate(); err != nil {
			return err
		}
	}
	targets := make(map[string]struct{}, len(c.Targets))
	for _, t := range c.Targets {
		if _, dup := targets[t.ID]; dup {
			return simerr.Validation("duplicate target %s", t.ID)
		}
		targets[t.ID] = struct{}{}
	}
	return nil
}

// UnmarshalYAML decodes a device entry. Parameter blocks start from the
// defaults of their kind so a file only names the fields it changes.
func (d *DeviceConfig) UnmarshalYAML(n *yaml.Node) error {
	type plain DeviceConfig
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*d = DeviceConfig(p)
	for i := 0; i+1 < len(n.Content); i += 2 {
		val := n.Content[i+1]
		switch n.Content[i].Value {
		case "radar":
			r := device.DefaultRadarParams()
			if err := val.Decode(&r); err != nil {
				return err
			}
			d.Radar = &r
		case "optical":
			o := device.DefaultOpticalParams()
			if err := val.Decode(&o); err != nil {
				return err
			}
			d.Optical = &o
		case "radio":
			r := device.DefaultRadioParams()
			if err := val.Decode(&r); err != nil {
				return err
			}
			d.Radio = &r
		case "jammer":
			j := device.DefaultJammerParams()
			if err := val.Decode(&j); err != nil {
				return err
			}
			d.Jammer = &j
		}
	}
	return nil
}
