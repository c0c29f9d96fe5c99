package detection

import (
	"math"

	"skywatch-sim/internal/device"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/telemetry"
)

// radioDynamicRangeDB normalises received strength above sensitivity into a quality.
const radioDynamicRangeDB = 60

// FSPL returns free space path loss in dB for a distance in metres and a
// frequency in Hz. The distance enters the formula in kilometres.
func FSPL(distanceM, frequencyHz float64) float64 {
	km := math.Max(distanceM, 1) / 1000
	return 20*math.Log10(km) + 20*math.Log10(frequencyHz) + 20*math.Log10(4*math.Pi/speedOfLight)
}

// ReceivedStrength is the emitter power after path loss and weather penalties.
func ReceivedStrength(emissionDBm, distanceM, frequencyHz float64, env environment.Snapshot) float64 {
	return emissionDBm - FSPL(distanceM, frequencyHz) - env.RadioPenaltyDB()
}

// EvaluateRadio checks whether tgt's emission is heard by the direction finder.
// Out of band emitters are never detected, however strong.
func EvaluateRadio(dev device.Spec, p device.RadioParams, tgt telemetry.Target, env environment.Snapshot) (Result, bool) {
	if tgt.Frequency < p.MinFrequencyHz || tgt.Frequency > p.MaxFrequencyHz {
		return Result{}, false
	}
	d := geo.Distance(dev.Position, tgt.Position)
	rx := ReceivedStrength(tgt.Signature.EmissionPowerDBm, d, tgt.Frequency, env)
	if rx < p.SensitivityDBm {
		return Result{}, false
	}
	az, el := geo.Bearing(dev.Position, tgt.Position)
	q := clamp01((rx - p.SensitivityDBm) / radioDynamicRangeDB)
	return Result{
		TargetID:    tgt.ID,
		Probability: 0.5 + 0.5*q,
		Position:    tgt.Position,
		DistanceM:   d,
		Radio: &RadioPayload{
			Azimuth:              az,
			Elevation:            el,
			SignalStrengthDBm:    rx,
			DirectionAccuracyDeg: p.DirectionAccuracyDeg,
			FrequencyHz:          tgt.Frequency,
			SignalQuality:        q,
		},
	}, true
}
