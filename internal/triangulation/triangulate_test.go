package triangulation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/simerr"
)

func bearingTo(id string, rx, tgt geo.Position) Observation {
	az, el := geo.Bearing(rx, tgt)
	return Observation{DetectorID: id, Receiver: rx, Azimuth: az, Elevation: el, SignalQuality: 0.8, DirectionAccuracyDeg: 2}
}

func TestTooFewObservations(t *testing.T) {
	for _, obs := range [][]Observation{nil, {bearingTo("a", geo.Position{}, geo.Position{North: 1})}} {
		if _, err := Triangulate(obs); !errors.Is(err, simerr.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	}
}

func TestInvalidBearingRejected(t *testing.T) {
	obs := []Observation{
		{Azimuth: 400},
		{Azimuth: 10},
	}
	if _, err := Triangulate(obs); !errors.Is(err, simerr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTwoRaysIntersect(t *testing.T) {
	tgt := geo.Position{North: 800, East: 600, Down: -120}
	obs := []Observation{
		bearingTo("a", geo.Position{}, tgt),
		bearingTo("b", geo.Position{East: 1500}, tgt),
	}
	got, err := Triangulate(obs)
	require.NoError(t, err)
	assert.InDelta(t, 0, geo.Distance(got, tgt), 1e-6)
}

func TestTwoSkewRaysGiveFinitePoint(t *testing.T) {
	obs := []Observation{
		{Receiver: geo.Position{}, Azimuth: 45, Elevation: 5, SignalQuality: 1, DirectionAccuracyDeg: 1},
		{Receiver: geo.Position{East: 1000, Down: -50}, Azimuth: 315, Elevation: 0, SignalQuality: 1, DirectionAccuracyDeg: 1},
	}
	got, err := Triangulate(obs)
	require.NoError(t, err)
	for _, v := range []float64{got.North, got.East, got.Down} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite estimate %+v", got)
		}
	}
}

func TestParallelRaysFallBack(t *testing.T) {
	obs := []Observation{
		{Receiver: geo.Position{}, Azimuth: 0, SignalQuality: 1, DirectionAccuracyDeg: 1},
		{Receiver: geo.Position{East: 100}, Azimuth: 0, SignalQuality: 1, DirectionAccuracyDeg: 1},
	}
	got, err := Triangulate(obs)
	require.NoError(t, err)
	assert.InDelta(t, NominalDistanceM, got.North, 1e-6)
	assert.InDelta(t, 50, got.East, 1e-6)
}

func TestThreeReceiversRefine(t *testing.T) {
	tgt := geo.Position{North: 1000, East: 1000, Down: -300}
	obs := []Observation{
		bearingTo("a", geo.Position{}, tgt),
		bearingTo("b", geo.Position{North: 2000}, tgt),
		bearingTo("c", geo.Position{East: 2000}, tgt),
	}
	got, err := Triangulate(obs)
	require.NoError(t, err)
	assert.Less(t, geo.Distance(got, tgt), 1.0)
}

func TestRefineBeatsInitialGuessWithNoise(t *testing.T) {
	tgt := geo.Position{North: 2500, East: -400, Down: -200}
	obs := []Observation{
		bearingTo("a", geo.Position{}, tgt),
		bearingTo("b", geo.Position{North: 1000, East: 1500}, tgt),
		bearingTo("c", geo.Position{North: -500, East: -1500}, tgt),
		bearingTo("d", geo.Position{North: 4000}, tgt),
	}
	obs[0].Azimuth = geo.NormalizeAzimuth(obs[0].Azimuth + 0.5)
	obs[2].DirectionAccuracyDeg = 10
	got, err := Triangulate(obs)
	require.NoError(t, err)
	assert.Less(t, geo.Distance(got, tgt), 50.0)
}
