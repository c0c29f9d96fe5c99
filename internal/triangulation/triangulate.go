// Package triangulation fuses radio bearings from several receivers into one
// emitter position.
package triangulation

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/spatial/r3"

	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/simerr"
)

// NominalDistanceM is how far along each bearing the initial guess is placed.
const NominalDistanceM = 1000.0

// Observation is one bearing to the emitter.
type Observation struct {
	DetectorID           string
	Receiver             geo.Position
	Azimuth              float64
	Elevation            float64
	SignalQuality        float64
	DirectionAccuracyDeg float64
}

func (o Observation) direction() r3.Vec { return geo.Direction(o.Azimuth, o.Elevation) }

func (o Observation) validate() error {
	switch {
	case o.Azimuth < 0 || o.Azimuth >= 360 || math.IsNaN(o.Azimuth):
		return simerr.Validation("azimuth %v outside [0,360)", o.Azimuth)
	case o.Elevation < -90 || o.Elevation > 90 || math.IsNaN(o.Elevation):
		return simerr.Validation("elevation %v outside [-90,90]", o.Elevation)
	case o.DirectionAccuracyDeg < 0:
		return simerr.Validation("direction accuracy %v is negative", o.DirectionAccuracyDeg)
	}
	return nil
}

// Triangulate returns the position best explaining obs. At least two
// observations are required.
func Triangulate(obs []Observation) (geo.Position, error) {
	if len(obs) < 2 {
		return geo.Position{}, simerr.Validation("need at least 2 bearings, got %d", len(obs))
	}
	for _, o := range obs {
		if err := o.validate(); err != nil {
			return geo.Position{}, err
		}
	}
	if len(obs) == 2 {
		return geo.FromVec(closestApproach(obs[0], obs[1])), nil
	}
	return geo.FromVec(refine(obs)), nil
}

// closestApproach returns the midpoint of the shortest segment joining the two
// rays. Parallel rays fall back to the nominal displacement of both.
func closestApproach(a, b Observation) r3.Vec {
	p1, d1 := a.Receiver.Vec(), a.direction()
	p2, d2 := b.Receiver.Vec(), b.direction()
	w0 := r3.Sub(p1, p2)
	bb := r3.Dot(d1, d2)
	d := r3.Dot(d1, w0)
	e := r3.Dot(d2, w0)
	denom := 1 - bb*bb
	if denom < 1e-9 {
		return midpoint(nominal(a), nominal(b))
	}
	t := math.Max(0, (bb*e-d)/denom)
	s := math.Max(0, (e-bb*d)/denom)
	return midpoint(r3.Add(p1, r3.Scale(t, d1)), r3.Add(p2, r3.Scale(s, d2)))
}

func nominal(o Observation) r3.Vec {
	return r3.Add(o.Receiver.Vec(), r3.Scale(NominalDistanceM, o.direction()))
}

func midpoint(a, b r3.Vec) r3.Vec { return r3.Scale(0.5, r3.Add(a, b)) }

// baseWeight favours strong signals and precise receivers.
func baseWeight(o Observation) float64 {
	acc := math.Max(o.DirectionAccuracyDeg, 0.1)
	q := math.Max(o.SignalQuality, 0.01)
	return q / acc
}

func weightedMean(points []r3.Vec, w []float64) r3.Vec {
	total := floats.Sum(w)
	var m r3.Vec
	for i, p := range points {
		m = r3.Add(m, r3.Scale(w[i]/total, p))
	}
	return m
}

// refine starts from the weighted mean of the nominal points and minimises the
// weighted squared bearing residuals with Nelder-Mead.
func refine(obs []Observation) r3.Vec {
	points := make([]r3.Vec, len(obs))
	w := make([]float64, len(obs))
	for i, o := range obs {
		points[i] = nominal(o)
		w[i] = baseWeight(o)
	}
	init := weightedMean(points, w)

	// closer receivers resolve position better
	for i, o := range obs {
		w[i] *= 1 / (1 + r3.Norm(r3.Sub(init, o.Receiver.Vec()))/1000)
	}
	floats.Scale(1/floats.Sum(w), w)

	cost := func(x []float64) float64 {
		p := r3.Vec{X: x[0], Y: x[1], Z: x[2]}
		var sum float64
		for i, o := range obs {
			los := r3.Sub(p, o.Receiver.Vec())
			n := r3.Norm(los)
			if n == 0 {
				sum += w[i] * 4
				continue
			}
			diff := r3.Sub(r3.Scale(1/n, los), o.direction())
			sum += w[i] * r3.Norm2(diff)
		}
		return sum
	}

	x0 := []float64{init.X, init.Y, init.Z}
	res, err := optimize.Minimize(
		optimize.Problem{Func: cost},
		x0,
		&optimize.Settings{
			MajorIterations: 2000,
			Converger:       &optimize.FunctionConverge{Absolute: 1e-14, Iterations: 200},
		},
		&optimize.NelderMead{SimplexSize: 50},
	)
	if res == nil || (err != nil && res.Location.X == nil) {
		return init
	}
	x := res.Location.X
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return init
		}
	}
	if res.Location.F > cost(x0) {
		return init
	}
	return r3.Vec{X: x[0], Y: x[1], Z: x[2]}
}
