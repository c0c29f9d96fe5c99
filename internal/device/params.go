package device

import (
	"skywatch-sim/internal/simerr"
)

// Params is the sensor-specific parameter set of a device. The set of
// implementations is closed: RadarParams, OpticalParams, RadioParams and
// JammerParams.
type Params interface {
	Kind() Type
	Validate() error
	sealed()
}

// RadarParams configures a pulsed radar.
type RadarParams struct {
	FrequencyHz      float64 `json:"frequency_hz" yaml:"frequency_hz"`
	PeakPowerW       float64 `json:"peak_power_w" yaml:"peak_power_w"`
	AntennaGainDBi   float64 `json:"antenna_gain_dbi" yaml:"antenna_gain_dbi"`
	NoiseFigureDB    float64 `json:"noise_figure_db" yaml:"noise_figure_db"`
	BeamwidthDeg     float64 `json:"beamwidth_deg" yaml:"beamwidth_deg"`
	BandwidthHz      float64 `json:"bandwidth_hz" yaml:"bandwidth_hz"`
	MinRangeM        float64 `json:"min_range_m" yaml:"min_range_m"`
	MaxRangeM        float64 `json:"max_range_m" yaml:"max_range_m"`
	SNRThresholdDB   float64 `json:"snr_threshold_db" yaml:"snr_threshold_db"`
	AtmosLossDBPerKm float64 `json:"atmospheric_loss_db_km" yaml:"atmospheric_loss_db_km"`
}

// OpticalParams configures an electro-optical camera.
type OpticalParams struct {
	ResolutionWidth     int     `json:"resolution_width" yaml:"resolution_width"`
	ResolutionHeight    int     `json:"resolution_height" yaml:"resolution_height"`
	FocalLengthMM       float64 `json:"focal_length_mm" yaml:"focal_length_mm"`
	SensorWidthMM       float64 `json:"sensor_width_mm" yaml:"sensor_width_mm"`
	ISO                 int     `json:"iso" yaml:"iso"`
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	MinTargetSizePx     float64 `json:"min_target_size_px" yaml:"min_target_size_px"`
	MaxTargetSizePx     float64 `json:"max_target_size_px" yaml:"max_target_size_px"`
	MinPixelFootprint   float64 `json:"min_pixel_footprint" yaml:"min_pixel_footprint"`
}

// RadioParams configures a passive radio direction finder.
type RadioParams struct {
	MinFrequencyHz       float64 `json:"min_frequency_hz" yaml:"min_frequency_hz"`
	MaxFrequencyHz       float64 `json:"max_frequency_hz" yaml:"max_frequency_hz"`
	SensitivityDBm       float64 `json:"sensitivity_dbm" yaml:"sensitivity_dbm"`
	DirectionAccuracyDeg float64 `json:"direction_accuracy_deg" yaml:"direction_accuracy_deg"`
}

// JammerParams configures a GPS jammer.
type JammerParams struct {
	CenterFrequencyHz float64 `json:"center_frequency_hz" yaml:"center_frequency_hz"`
	PowerW            float64 `json:"power_w" yaml:"power_w"`
	EffectiveRadiusM  float64 `json:"effective_radius_m" yaml:"effective_radius_m"`
}

func (RadarParams) Kind() Type   { return TypeRadar }
func (OpticalParams) Kind() Type { return TypeOptical }
func (RadioParams) Kind() Type   { return TypeRadio }
func (JammerParams) Kind() Type  { return TypeJammer }

func (RadarParams) sealed()   {}
func (OpticalParams) sealed() {}
func (RadioParams) sealed()   {}
func (JammerParams) sealed()  {}

func (p RadarParams) Validate() error {
	switch {
	case p.FrequencyHz <= 0:
		return simerr.Validation("radar frequency %v Hz must be positive", p.FrequencyHz)
	case p.PeakPowerW <= 0:
		return simerr.Validation("radar peak power %v W must be positive", p.PeakPowerW)
	case p.BandwidthHz <= 0:
		return simerr.Validation("radar bandwidth %v Hz must be positive", p.BandwidthHz)
	case p.BeamwidthDeg <= 0 || p.BeamwidthDeg > 360:
		return simerr.Validation("radar beamwidth %v deg outside (0,360]", p.BeamwidthDeg)
	case p.MinRangeM < 0 || p.MaxRangeM <= p.MinRangeM:
		return simerr.Validation("radar range [%v,%v] m is empty", p.MinRangeM, p.MaxRangeM)
	case p.AtmosLossDBPerKm < 0:
		return simerr.Validation("radar atmospheric loss %v dB/km is negative", p.AtmosLossDBPerKm)
	}
	return nil
}

func (p OpticalParams) Validate() error {
	switch {
	case p.ResolutionWidth <= 0 || p.ResolutionHeight <= 0:
		return simerr.Validation("optical resolution %dx%d must be positive", p.ResolutionWidth, p.ResolutionHeight)
	case p.FocalLengthMM <= 0 || p.SensorWidthMM <= 0:
		return simerr.Validation("optical focal length %v mm and sensor width %v mm must be positive", p.FocalLengthMM, p.SensorWidthMM)
	case p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1:
		return simerr.Validation("optical confidence threshold %v outside [0,1]", p.ConfidenceThreshold)
	case p.MinTargetSizePx < 0 || p.MaxTargetSizePx < p.MinTargetSizePx:
		return simerr.Validation("optical target size bounds [%v,%v] px invalid", p.MinTargetSizePx, p.MaxTargetSizePx)
	case p.MinPixelFootprint < 0:
		return simerr.Validation("optical min pixel footprint %v is negative", p.MinPixelFootprint)
	}
	return nil
}

func (p RadioParams) Validate() error {
	switch {
	case p.MinFrequencyHz <= 0 || p.MaxFrequencyHz < p.MinFrequencyHz:
		return simerr.Validation("radio band [%v,%v] Hz invalid", p.MinFrequencyHz, p.MaxFrequencyHz)
	case p.DirectionAccuracyDeg <= 0:
		return simerr.Validation("radio direction accuracy %v deg must be positive", p.DirectionAccuracyDeg)
	}
	return nil
}

func (p JammerParams) Validate() error {
	switch {
	case p.CenterFrequencyHz <= 0:
		return simerr.Validation("jammer frequency %v Hz must be positive", p.CenterFrequencyHz)
	case p.PowerW < 0:
		return simerr.Validation("jammer power %v W is negative", p.PowerW)
	case p.EffectiveRadiusM <= 0:
		return simerr.Validation("jammer radius %v m must be positive", p.EffectiveRadiusM)
	}
	return nil
}

// DefaultRadarParams is an X-band short range surveillance radar.
func DefaultRadarParams() RadarParams {
	return RadarParams{
		FrequencyHz:      10e9,
		PeakPowerW:       1000,
		AntennaGainDBi:   30,
		NoiseFigureDB:    3,
		BeamwidthDeg:     10,
		BandwidthHz:      1e6,
		MinRangeM:        100,
		MaxRangeM:        5000,
		SNRThresholdDB:   13,
		AtmosLossDBPerKm: 0.01,
	}
}

// DefaultOpticalParams is a 1080p camera with a 50 mm lens.
func DefaultOpticalParams() OpticalParams {
	return OpticalParams{
		ResolutionWidth:     1920,
		ResolutionHeight:    1080,
		FocalLengthMM:       50,
		SensorWidthMM:       7.2,
		ISO:                 400,
		ConfidenceThreshold: 0.7,
		MinTargetSizePx:     10,
		MaxTargetSizePx:     500,
		MinPixelFootprint:   100,
	}
}

// DefaultRadioParams covers the 2.4 GHz ISM band.
func DefaultRadioParams() RadioParams {
	return RadioParams{
		MinFrequencyHz:       2.0e9,
		MaxFrequencyHz:       2.5e9,
		SensitivityDBm:       -90,
		DirectionAccuracyDeg: 2,
	}
}

// DefaultJammerParams targets GPS L1.
func DefaultJammerParams() JammerParams {
	return JammerParams{CenterFrequencyHz: 1.57542e9, PowerW: 10, EffectiveRadiusM: 1000}
}

// DefaultParams returns the default variant for t.
func DefaultParams(t Type) (Params, error) {
	switch t {
	case TypeRadar:
		return DefaultRadarParams(), nil
	case TypeOptical:
		return DefaultOpticalParams(), nil
	case TypeRadio:
		return DefaultRadioParams(), nil
	case TypeJammer:
		return DefaultJammerParams(), nil
	}
	return nil, simerr.Validation("unknown device type %q", t)
}
