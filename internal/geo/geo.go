// Package geo provides the local North-East-Down frame used by every sensor model.
package geo

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Position is a point in the local NED frame in metres.
type Position struct {
	North float64 `json:"north" yaml:"north"`
	East  float64 `json:"east" yaml:"east"`
	Down  float64 `json:"down" yaml:"down"`
}

// Velocity is a NED velocity in m/s.
type Velocity struct {
	North float64 `json:"north" yaml:"north"`
	East  float64 `json:"east" yaml:"east"`
	Down  float64 `json:"down" yaml:"down"`
}

// Vec returns p as an r3 vector (X north, Y east, Z down).
func (p Position) Vec() r3.Vec { return r3.Vec{X: p.North, Y: p.East, Z: p.Down} }

// FromVec converts an r3 vector back into a Position.
func FromVec(v r3.Vec) Position { return Position{North: v.X, East: v.Y, Down: v.Z} }

// Altitude is the height above the frame origin.
func (p Position) Altitude() float64 { return -p.Down }

// Vec returns v as an r3 vector.
func (v Velocity) Vec() r3.Vec { return r3.Vec{X: v.North, Y: v.East, Z: v.Down} }

// Speed is the magnitude of v.
func (v Velocity) Speed() float64 { return r3.Norm(v.Vec()) }

// Advance moves p along v for dt seconds.
func (p Position) Advance(v Velocity, dt float64) Position {
	return FromVec(r3.Add(p.Vec(), r3.Scale(dt, v.Vec())))
}

// Offset returns the vector from a to b.
func Offset(a, b Position) r3.Vec {
	return r3.Sub(b.Vec(), a.Vec())
}

// Distance returns the straight line distance between a and b.
func Distance(a, b Position) float64 {
	return r3.Norm(Offset(a, b))
}

// HorizontalDistance ignores the down component.
func HorizontalDistance(a, b Position) float64 {
	return math.Hypot(b.North-a.North, b.East-a.East)
}

// NormalizeAzimuth folds deg into [0,360).
func NormalizeAzimuth(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}

// ClampElevation limits deg to [-90,90].
func ClampElevation(deg float64) float64 {
	return math.Max(-90, math.Min(90, deg))
}

// Bearing returns the azimuth (clockwise from north) and elevation (positive
// up) of to as seen from from, both in degrees.
func Bearing(from, to Position) (azimuth, elevation float64) {
	dn := to.North - from.North
	de := to.East - from.East
	up := -(to.Down - from.Down)
	azimuth = NormalizeAzimuth(Degrees(math.Atan2(de, dn)))
	elevation = ClampElevation(Degrees(math.Atan2(up, math.Hypot(dn, de))))
	return azimuth, elevation
}

// Direction returns the unit vector pointing along azimuth/elevation.
func Direction(azimuth, elevation float64) r3.Vec {
	az, el := Radians(azimuth), Radians(elevation)
	return r3.Vec{
		X: math.Cos(el) * math.Cos(az),
		Y: math.Cos(el) * math.Sin(az),
		Z: -math.Sin(el),
	}
}

// Project returns the point distance metres from origin along azimuth/elevation.
func Project(origin Position, azimuth, elevation, distance float64) Position {
	return FromVec(r3.Add(origin.Vec(), r3.Scale(distance, Direction(azimuth, elevation))))
}

// AngleBetween returns the angle between a and b in degrees. Zero vectors yield 0.
func AngleBetween(a, b r3.Vec) float64 {
	if r3.Norm(a) == 0 || r3.Norm(b) == 0 {
		return 0
	}
	c := math.Max(-1, math.Min(1, r3.Cos(a, b)))
	return Degrees(math.Acos(c))
}

// AngleDiff is the absolute smallest difference between two azimuths.
func AngleDiff(a, b float64) float64 {
	d := math.Abs(NormalizeAzimuth(a) - NormalizeAzimuth(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

func Radians(deg float64) float64 { return deg * math.Pi / 180 }
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Orientation is a unit quaternion rotating body axes into NED.
type Orientation struct {
	q quat.Number
}

// Identity faces north with no pitch or roll.
var Identity = Orientation{q: quat.Number{Real: 1}}

// NewOrientation normalises q. A zero quaternion yields Identity.
func NewOrientation(q quat.Number) Orientation {
	n := quat.Abs(q)
	if n == 0 {
		return Identity
	}
	return Orientation{q: quat.Scale(1/n, q)}
}

// FromEuler builds an orientation from yaw, pitch and roll in degrees (ZYX order).
func FromEuler(yaw, pitch, roll float64) Orientation {
	cy, sy := math.Cos(Radians(yaw)/2), math.Sin(Radians(yaw)/2)
	cp, sp := math.Cos(Radians(pitch)/2), math.Sin(Radians(pitch)/2)
	cr, sr := math.Cos(Radians(roll)/2), math.Sin(Radians(roll)/2)
	return NewOrientation(quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	})
}

// Quaternion returns the underlying unit quaternion.
func (o Orientation) Quaternion() quat.Number {
	if o.q == (quat.Number{}) {
		return Identity.q
	}
	return o.q
}

// Yaw is the heading in degrees, normalised to [0,360).
func (o Orientation) Yaw() float64 {
	q := o.Quaternion()
	return NormalizeAzimuth(Degrees(math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag), 1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))))
}

// Pitch is the nose-up angle in degrees.
func (o Orientation) Pitch() float64 {
	q := o.Quaternion()
	s := 2 * (q.Real*q.Jmag - q.Kmag*q.Imag)
	return Degrees(math.Asin(math.Max(-1, math.Min(1, s))))
}

// Rotate applies the orientation to a body-frame vector.
func (o Orientation) Rotate(v r3.Vec) r3.Vec {
	q := o.Quaternion()
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}
