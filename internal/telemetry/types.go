// Target snapshots and rows written to the sinks.
package telemetry

import (
	"os"
	"time"

	"skywatch-sim/internal/geo"
)

// Status is the reported flight state of a target.
type Status string

// Target status constants.
const (
	StatusHovering       Status = "hovering"
	StatusMoving         Status = "moving"
	StatusDetecting      Status = "detecting"
	StatusStandby        Status = "standby"
	StatusReturning      Status = "returning"
	StatusMalfunction    Status = "malfunction"
	StatusDetected       Status = "detected"
	StatusDamaged        Status = "damaged"
	StatusLostConnection Status = "lost_connection"
	StatusLowBattery     Status = "low_battery"
	StatusLanding        Status = "landing"
	StatusLanded         Status = "landed"
	StatusTakingOff      Status = "taking_off"
	StatusOffline        Status = "offline"
)

var knownStatuses = map[Status]struct{}{
	StatusHovering: {}, StatusMoving: {}, StatusDetecting: {}, StatusStandby: {},
	StatusReturning: {}, StatusMalfunction: {}, StatusDetected: {}, StatusDamaged: {},
	StatusLostConnection: {}, StatusLowBattery: {}, StatusLanding: {}, StatusLanded: {},
	StatusTakingOff: {}, StatusOffline: {},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// Signature holds the physical quantities the sensor models read.
type Signature struct {
	EmissionPowerDBm float64 `json:"emission_power_dbm" yaml:"emission_power_dbm"`
	RCS              float64 `json:"rcs_m2" yaml:"rcs_m2"`
	SizeM            float64 `json:"size_m" yaml:"size_m"`
}

// Target is the per-tick snapshot of one drone.
type Target struct {
	ID          string          `json:"id"`
	Model       string          `json:"model"`
	Position    geo.Position    `json:"position"`
	Velocity    geo.Velocity    `json:"velocity"`
	Orientation geo.Orientation `json:"-"`
	Status      Status          `json:"status"`
	Frequency   float64         `json:"frequency_hz"`
	Signature   Signature       `json:"signature"`
	Battery     float64         `json:"battery"`
	Timestamp   time.Time       `json:"ts"`
}

// DetectionTableName holds the table name used when writing detections to GreptimeDB.
// It defaults to "drone_detections" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var DetectionTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "drone_detections"
}()

// Table names for performance rows and radio fixes.
const (
	PerformanceTableName = "detection_performance"
	FusionTableName      = "radio_fixes"
)
