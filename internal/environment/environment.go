// Package environment models the weather and light conditions a tick is evaluated under.
package environment

import (
	"math"
	"time"

	"skywatch-sim/internal/simerr"
)

// Snapshot is the environment for one tick.
type Snapshot struct {
	TemperatureC   float64 `json:"temperature_c" yaml:"temperature_c"`
	HumidityPct    float64 `json:"humidity_pct" yaml:"humidity_pct"`
	WindSpeedMS    float64 `json:"wind_speed_ms" yaml:"wind_speed_ms"`
	WindDirection  float64 `json:"wind_direction_deg" yaml:"wind_direction_deg"`
	VisibilityM    float64 `json:"visibility_m" yaml:"visibility_m"`
	PressureHPa    float64 `json:"pressure_hpa" yaml:"pressure_hpa"`
	CloudCoverPct  float64 `json:"cloud_cover_pct" yaml:"cloud_cover_pct"`
	PrecipMMH      float64 `json:"precipitation_mm_h" yaml:"precipitation_mm_h"`
	LightIntensity float64 `json:"light_intensity" yaml:"light_intensity"`
	Clarity        float64 `json:"atmospheric_clarity" yaml:"atmospheric_clarity"`
}

// Default is a clear, mild day.
func Default() Snapshot {
	return Snapshot{
		TemperatureC:   15,
		HumidityPct:    50,
		WindSpeedMS:    3,
		WindDirection:  270,
		VisibilityM:    10000,
		PressureHPa:    1013.25,
		CloudCoverPct:  20,
		LightIntensity: 1,
		Clarity:        1,
	}
}

// Validate checks physical bounds.
func (s Snapshot) Validate() error {
	switch {
	case s.HumidityPct < 0 || s.HumidityPct > 100:
		return simerr.Validation("humidity %v%% outside [0,100]", s.HumidityPct)
	case s.CloudCoverPct < 0 || s.CloudCoverPct > 100:
		return simerr.Validation("cloud cover %v%% outside [0,100]", s.CloudCoverPct)
	case s.VisibilityM < 0:
		return simerr.Validation("visibility %v m is negative", s.VisibilityM)
	case s.WindSpeedMS < 0:
		return simerr.Validation("wind speed %v m/s is negative", s.WindSpeedMS)
	case s.PrecipMMH < 0:
		return simerr.Validation("precipitation %v mm/h is negative", s.PrecipMMH)
	case s.LightIntensity < 0 || s.LightIntensity > 1:
		return simerr.Validation("light intensity %v outside [0,1]", s.LightIntensity)
	case s.Clarity < 0 || s.Clarity > 1:
		return simerr.Validation("atmospheric clarity %v outside [0,1]", s.Clarity)
	}
	return nil
}

// VisibilityFactor is visibility relative to 10 km, capped at 1.
func (s Snapshot) VisibilityFactor() float64 {
	return clamp01(s.VisibilityM / 10000)
}

// RadarWeatherFactor attenuates radar returns for rain, humidity and haze.
// It is 1 in clear air and never drops below 0.1.
func (s Snapshot) RadarWeatherFactor() float64 {
	f := 1.0
	f *= math.Exp(-0.02 * s.PrecipMMH)
	if s.HumidityPct > 80 {
		f *= 1 - (s.HumidityPct-80)/100*0.5
	}
	if s.VisibilityM < 1000 {
		f *= 0.9
	}
	return math.Max(0.1, f)
}

// OpticalSuitability weighs light, visibility and clarity into [0,1].
func (s Snapshot) OpticalSuitability() float64 {
	return clamp01(0.4*s.LightIntensity + 0.35*s.VisibilityFactor() + 0.25*s.Clarity)
}

// VisibilityScore averages light, visibility and clarity.
func (s Snapshot) VisibilityScore() float64 {
	return clamp01((s.LightIntensity + s.VisibilityFactor() + s.Clarity) / 3)
}

// RadioPenaltyDB is the extra path loss caused by humidity and frost.
func (s Snapshot) RadioPenaltyDB() float64 {
	var p float64
	if s.HumidityPct > 80 {
		p += 2
	}
	if s.TemperatureC < 0 {
		p++
	}
	return p
}

// Provider yields the environment at a simulation time.
type Provider interface {
	At(simTime time.Duration) Snapshot
}

// Static always returns the same snapshot.
type Static Snapshot

// At implements Provider.
func (s Static) At(time.Duration) Snapshot { return Snapshot(s) }

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
