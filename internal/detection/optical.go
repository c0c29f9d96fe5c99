package detection

import (
	"math"

	"skywatch-sim/internal/device"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/telemetry"
)

// RawOptical is an uncalibrated camera detection before environmental weighting.
type RawOptical struct {
	Confidence float64
	BBox       BBox
	DistanceM  float64
}

// ObserveOptical synthesises the raw camera detection of tgt from geometry.
// ok is false when the target is outside the field of view or range.
func ObserveOptical(dev device.Spec, p device.OpticalParams, tgt telemetry.Target) (RawOptical, bool) {
	d := geo.Distance(dev.Position, tgt.Position)
	if d == 0 || d > dev.RangeM {
		return RawOptical{}, false
	}
	az, el := geo.Bearing(dev.Position, tgt.Position)
	dAz := signedAngle(az - dev.Azimuth)
	dEl := el - dev.Elevation
	half := dev.FieldOfView / 2
	if math.Abs(dAz) > half || math.Abs(dEl) > half {
		return RawOptical{}, false
	}

	pitch := p.SensorWidthMM / float64(p.ResolutionWidth)
	side := p.FocalLengthMM * tgt.Signature.SizeM / d / pitch
	cx := float64(p.ResolutionWidth)/2 + dAz/half*float64(p.ResolutionWidth)/2
	cy := float64(p.ResolutionHeight)/2 - dEl/half*float64(p.ResolutionHeight)/2
	return RawOptical{
		Confidence: math.Min(0.98, 1-math.Exp(-side/20)),
		BBox:       BBox{X: cx - side/2, Y: cy - side/2, W: side, H: side},
		DistanceM:  d,
	}, true
}

// OpticalConfidence weights a raw confidence by scene suitability and a
// penalty for boxes outside the configured target size bounds.
func OpticalConfidence(p device.OpticalParams, raw RawOptical, env environment.Snapshot) float64 {
	c := raw.Confidence * env.OpticalSuitability()
	switch {
	case math.Min(raw.BBox.W, raw.BBox.H) < p.MinTargetSizePx:
		c *= 0.5
	case math.Max(raw.BBox.W, raw.BBox.H) > p.MaxTargetSizePx:
		c *= 0.8
	}
	return clamp01(c)
}

// EvaluateOptical turns a raw camera detection into a result. ok is false
// when the weighted confidence falls below the camera threshold.
//
// The world position is the device position pushed along its boresight by
// the measured distance rather than a full back-projection of the box.
func EvaluateOptical(dev device.Spec, p device.OpticalParams, targetID string, raw RawOptical, env environment.Snapshot) (Result, bool) {
	conf := OpticalConfidence(p, raw, env)
	if conf < p.ConfidenceThreshold {
		return Result{}, false
	}
	vis := env.VisibilityScore()
	return Result{
		TargetID:    targetID,
		Probability: conf,
		Position:    geo.Project(dev.Position, dev.Azimuth, dev.Elevation, raw.DistanceM),
		DistanceM:   raw.DistanceM,
		Optical: &OpticalPayload{
			BBox:            raw.BBox,
			VisibilityScore: vis,
			Trackable:       vis >= 0.5 && raw.BBox.Area() >= p.MinPixelFootprint,
		},
	}, true
}

// signedAngle folds deg into (-180,180].
func signedAngle(deg float64) float64 {
	a := geo.NormalizeAzimuth(deg)
	if a > 180 {
		a -= 360
	}
	return a
}
