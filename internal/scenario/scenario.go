package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"skywatch-sim/internal/environment"
)

// Trigger event types understood by Timeline.
const (
	EventTimeElapsed = "time_elapsed"
	EventDetections  = "detections"
)

// Scenario defines an environment storyline with ordered phases.
type Scenario struct {
	Name        string  `yaml:"name,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Phases      []Phase `yaml:"phases"`
}

// Phase describes a stretch of weather and the triggers that end it.
type Phase struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Environment Overrides `yaml:"environment,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty"`
}

// Overrides replaces individual environment fields while a phase is active.
type Overrides struct {
	TemperatureC   *float64 `yaml:"temperature_c,omitempty"`
	HumidityPct    *float64 `yaml:"humidity_pct,omitempty"`
	WindSpeedMS    *float64 `yaml:"wind_speed_ms,omitempty"`
	VisibilityM    *float64 `yaml:"visibility_m,omitempty"`
	CloudCoverPct  *float64 `yaml:"cloud_cover_pct,omitempty"`
	PrecipMMH      *float64 `yaml:"precipitation_mm_h,omitempty"`
	LightIntensity *float64 `yaml:"light_intensity,omitempty"`
	Clarity        *float64 `yaml:"atmospheric_clarity,omitempty"`
}

// Apply returns base with the set overrides written over it.
func (o Overrides) Apply(base environment.Snapshot) environment.Snapshot {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&base.TemperatureC, o.TemperatureC)
	set(&base.HumidityPct, o.HumidityPct)
	set(&base.WindSpeedMS, o.WindSpeedMS)
	set(&base.VisibilityM, o.VisibilityM)
	set(&base.CloudCoverPct, o.CloudCoverPct)
	set(&base.PrecipMMH, o.PrecipMMH)
	set(&base.LightIntensity, o.LightIntensity)
	set(&base.Clarity, o.Clarity)
	return base
}

// Trigger moves the scenario to another phase based on an event.
type Trigger struct {
	Event string `yaml:"event"`
	Value int    `yaml:"value"`
	Next  string `yaml:"next"`
}

// Event represents a runtime occurrence that may advance the scenario.
type Event struct {
	Type  string
	Value int
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Phases) == 0 {
		return nil, fmt.Errorf("scenario %q has no phases", s.Name)
	}
	return &s, nil
}

// Resolve returns a built-in arc by name or loads the file at nameOrPath.
func Resolve(nameOrPath string) (*Scenario, error) {
	if arc, ok := BuiltIn()[nameOrPath]; ok {
		return &arc, nil
	}
	return Load(nameOrPath)
}

// NextPhase returns the name of the next phase given the current phase and event.
// If no trigger matches, ok will be false.
func (s *Scenario) NextPhase(current string, ev Event) (next string, ok bool) {
	for _, p := range s.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if tr.Event == ev.Type && ev.Value >= tr.Value {
				return tr.Next, true
			}
		}
	}
	return "", false
}

func (s *Scenario) phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}
