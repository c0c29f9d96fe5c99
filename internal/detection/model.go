package detection

import (
	"skywatch-sim/internal/device"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/simerr"
	"skywatch-sim/internal/telemetry"
)

// Evaluate runs the model matching dev's parameter kind against tgt.
// A GPS jammer has no detection model and never reports.
func Evaluate(dev device.Spec, tgt telemetry.Target, env environment.Snapshot) (Result, bool, error) {
	switch p := dev.Params.(type) {
	case device.RadarParams:
		r, ok := EvaluateRadar(dev, p, tgt, env)
		return r, ok, nil
	case device.OpticalParams:
		raw, ok := ObserveOptical(dev, p, tgt)
		if !ok {
			return Result{}, false, nil
		}
		r, ok := EvaluateOptical(dev, p, tgt.ID, raw, env)
		return r, ok, nil
	case device.RadioParams:
		r, ok := EvaluateRadio(dev, p, tgt, env)
		return r, ok, nil
	case device.JammerParams:
		return Result{}, false, nil
	default:
		return Result{}, false, simerr.State("device %s has unsupported parameters %T", dev.ID, dev.Params)
	}
}
