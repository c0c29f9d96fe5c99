package detection

import (
	"math"

	"skywatch-sim/internal/device"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/telemetry"
)

const (
	speedOfLight = 299792458.0
	boltzmann    = 1.380649e-23
	noiseTempK   = 290.0
)

// RadarSNR returns the signal to noise ratio in dB of a target at rangeM
// offBoresightDeg away from the beam centre.
func RadarSNR(p device.RadarParams, rcs, rangeM, offBoresightDeg float64, env environment.Snapshot) float64 {
	lambda := speedOfLight / p.FrequencyHz
	gain := dbToLinear(p.AntennaGainDBi)
	pr := p.PeakPowerW * gain * gain * lambda * lambda * rcs /
		(math.Pow(4*math.Pi, 3) * math.Pow(rangeM, 4))

	pr *= dbToLinear(-p.AtmosLossDBPerKm * rangeM / 1000)
	half := p.BeamwidthDeg / 2
	pr *= math.Exp(-2.77 * math.Pow(offBoresightDeg/half, 2))
	pr *= env.RadarWeatherFactor()

	noise := boltzmann * noiseTempK * p.BandwidthHz * dbToLinear(p.NoiseFigureDB)
	if pr <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(pr/noise)
}

// RadarProbability maps SNR to a detection probability. At the threshold it is
// 0.5; above it saturates towards 0.99, below it decays exponentially to 0.
func RadarProbability(snrDB, thresholdDB float64) float64 {
	if math.IsInf(snrDB, -1) || math.IsNaN(snrDB) {
		return 0
	}
	margin := snrDB - thresholdDB
	if margin >= 0 {
		return math.Min(0.99, 0.5+0.49*(1-math.Exp(-margin/3)))
	}
	return 0.5 * math.Exp(margin/2)
}

// ClassifyRCS buckets a radar cross section.
func ClassifyRCS(rcs float64) string {
	switch {
	case rcs < 0.05:
		return "micro-drone"
	case rcs < 0.5:
		return "small-drone"
	case rcs < 5:
		return "medium-uav"
	default:
		return "aircraft"
	}
}

// EvaluateRadar runs the radar equation for one target. ok is false when the
// target is outside the instrumented range or the beam.
func EvaluateRadar(dev device.Spec, p device.RadarParams, tgt telemetry.Target, env environment.Snapshot) (Result, bool) {
	r := geo.Distance(dev.Position, tgt.Position)
	if r < p.MinRangeM || r > p.MaxRangeM || r == 0 {
		return Result{}, false
	}
	off := geo.AngleBetween(geo.Direction(dev.Azimuth, dev.Elevation), geo.Offset(dev.Position, tgt.Position))
	if off > p.BeamwidthDeg/2 {
		return Result{}, false
	}

	snr := RadarSNR(p, tgt.Signature.RCS, r, off, env)
	prob := RadarProbability(snr, p.SNRThresholdDB)
	if prob <= 0 {
		return Result{}, false
	}
	return Result{
		TargetID:    tgt.ID,
		Probability: prob,
		Position:    tgt.Position,
		DistanceM:   r,
		Radar: &RadarPayload{
			SNRdB:          snr,
			RCS:            tgt.Signature.RCS,
			Classification: ClassifyRCS(tgt.Signature.RCS),
			Quality:        clamp01(snr / 30),
		},
	}, true
}

func dbToLinear(db float64) float64 { return math.Pow(10, db/10) }

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
