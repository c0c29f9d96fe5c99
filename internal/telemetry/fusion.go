package telemetry

import (
	"time"

	"skywatch-sim/internal/geo"
)

// FusionRow is a position estimate fused from several radio bearings.
type FusionRow struct {
	AirspaceID string       `json:"airspace_id"`
	TickID     uint64       `json:"tick_id"`
	TargetID   string       `json:"target_id"`
	Estimate   geo.Position `json:"estimate"`
	ErrorM     float64      `json:"error_m"`
	Detectors  []string     `json:"detectors"`
	Timestamp  time.Time    `json:"ts"`
}
