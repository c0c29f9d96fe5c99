package environment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"skywatch-sim/internal/simerr"
)

func TestDefaultIsValidAndClear(t *testing.T) {
	env := Default()
	if err := env.Validate(); err != nil {
		t.Fatalf("default invalid: %v", err)
	}
	assert.InDelta(t, 1, env.OpticalSuitability(), 1e-9)
	assert.InDelta(t, 1, env.VisibilityScore(), 1e-9)
	assert.InDelta(t, 1, env.RadarWeatherFactor(), 1e-9)
	assert.Zero(t, env.RadioPenaltyDB())
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	bad := []Snapshot{
		{HumidityPct: 120},
		{VisibilityM: -1},
		{LightIntensity: 1.5},
		{Clarity: -0.1},
		{PrecipMMH: -3},
	}
	for _, s := range bad {
		if err := s.Validate(); !errors.Is(err, simerr.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", s, err)
		}
	}
}

func TestFogAndDarknessDegradeOptics(t *testing.T) {
	env := Default()
	env.LightIntensity = 0.8
	env.VisibilityM = 5000
	env.Clarity = 0.9
	// 0.4*0.8 + 0.35*0.5 + 0.25*0.9
	assert.InDelta(t, 0.72, env.OpticalSuitability(), 1e-9)
	assert.InDelta(t, (0.8+0.5+0.9)/3, env.VisibilityScore(), 1e-9)
}

func TestRadioPenalty(t *testing.T) {
	env := Default()
	env.HumidityPct = 85
	env.TemperatureC = -2
	assert.InDelta(t, 3, env.RadioPenaltyDB(), 1e-9)
}

func TestRadarWeatherFactorBounded(t *testing.T) {
	env := Default()
	env.PrecipMMH = 500
	env.HumidityPct = 100
	env.VisibilityM = 100
	assert.InDelta(t, 0.1, env.RadarWeatherFactor(), 1e-9)
}

func TestStaticProvider(t *testing.T) {
	env := Default()
	env.TemperatureC = -5
	var p Provider = Static(env)
	assert.Equal(t, env, p.At(0))
}
