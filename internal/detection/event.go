// Package detection turns (device, target, environment) triples into
// detection events using per-sensor physics models.
package detection

import (
	"time"

	"github.com/google/uuid"

	"skywatch-sim/internal/device"
	"skywatch-sim/internal/geo"
)

// RadarPayload is the provenance of a radar detection.
type RadarPayload struct {
	SNRdB          float64 `json:"snr_db"`
	RCS            float64 `json:"rcs_m2"`
	Classification string  `json:"classification"`
	Quality        float64 `json:"quality"`
}

// BBox is a pixel bounding box.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns the pixel footprint.
func (b BBox) Area() float64 { return b.W * b.H }

// OpticalPayload is the provenance of a camera detection.
type OpticalPayload struct {
	BBox            BBox    `json:"bbox"`
	VisibilityScore float64 `json:"visibility_score"`
	Trackable       bool    `json:"trackable"`
}

// RadioPayload is the provenance of a radio direction-finding detection.
type RadioPayload struct {
	Azimuth              float64 `json:"azimuth_deg"`
	Elevation            float64 `json:"elevation_deg"`
	SignalStrengthDBm    float64 `json:"signal_strength_dbm"`
	DirectionAccuracyDeg float64 `json:"direction_accuracy_deg"`
	FrequencyHz          float64 `json:"frequency_hz"`
	SignalQuality        float64 `json:"signal_quality"`
}

// Result is the raw output of a model for one target. Exactly one payload is set.
type Result struct {
	TargetID    string
	Probability float64
	Position    geo.Position
	DistanceM   float64
	Radar       *RadarPayload
	Optical     *OpticalPayload
	Radio       *RadioPayload
}

// Event is an immutable detection record.
type Event struct {
	ID           uuid.UUID       `json:"id"`
	TickID       uint64          `json:"tick_id"`
	Timestamp    time.Time       `json:"ts"`
	SimTime      time.Duration   `json:"sim_time_ns"`
	DetectorID   string          `json:"detector_id"`
	DetectorType device.Type     `json:"detector_type"`
	TargetID     string          `json:"target_id"`
	Position     geo.Position    `json:"position"`
	Confidence   float64         `json:"confidence"`
	DistanceM    float64         `json:"distance_m"`
	Radar        *RadarPayload   `json:"radar,omitempty"`
	Optical      *OpticalPayload `json:"optical,omitempty"`
	Radio        *RadioPayload   `json:"radio,omitempty"`
}

// Stamp identifies the tick an event was produced in.
type Stamp struct {
	TickID  uint64
	SimTime time.Duration
	Wall    time.Time
}

// NewEvent converts a model result into an event.
func NewEvent(s Stamp, dev device.Spec, r Result) Event {
	return Event{
		ID:           uuid.New(),
		TickID:       s.TickID,
		Timestamp:    s.Wall,
		SimTime:      s.SimTime,
		DetectorID:   dev.ID,
		DetectorType: dev.Type,
		TargetID:     r.TargetID,
		Position:     r.Position,
		Confidence:   clamp01(r.Probability),
		DistanceM:    r.DistanceM,
		Radar:        r.Radar,
		Optical:      r.Optical,
		Radio:        r.Radio,
	}
}
