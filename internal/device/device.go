// Package device holds detection device identity, parameters and lifecycle.
package device

import (
	"math"
	"strings"
	"sync"

	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/simerr"
)

// Type identifies the sensor kind of a device.
type Type string

// Device types.
const (
	TypeRadar   Type = "RADAR"
	TypeOptical Type = "OPTICAL_CAMERA"
	TypeRadio   Type = "RADIO_DETECTOR"
	TypeJammer  Type = "GPS_JAMMER"
)

// Status is the operational status of a device.
type Status string

// Device statuses.
const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusError    Status = "ERROR"
)

// Spec fixes a device's identity and pointing.
type Spec struct {
	ID          string       `json:"id"`
	Type        Type         `json:"type"`
	Position    geo.Position `json:"position"`
	Azimuth     float64      `json:"azimuth_deg"`
	Elevation   float64      `json:"elevation_deg"`
	RangeM      float64      `json:"range_m"`
	FieldOfView float64      `json:"field_of_view_deg"`
	Params      Params       `json:"params"`
}

// Validate checks identity, geometry and that Params matches Type.
func (s Spec) Validate() error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return simerr.Validation("blank device id")
	case s.Azimuth < 0 || s.Azimuth >= 360 || math.IsNaN(s.Azimuth):
		return simerr.Validation("device %s azimuth %v outside [0,360)", s.ID, s.Azimuth)
	case s.Elevation < -90 || s.Elevation > 90 || math.IsNaN(s.Elevation):
		return simerr.Validation("device %s elevation %v outside [-90,90]", s.ID, s.Elevation)
	case !(s.RangeM > 0):
		return simerr.Validation("device %s range %v must be positive", s.ID, s.RangeM)
	case !(s.FieldOfView > 0) || s.FieldOfView > 360:
		return simerr.Validation("device %s field of view %v outside (0,360]", s.ID, s.FieldOfView)
	case s.Params == nil:
		return simerr.Validation("device %s has no parameters", s.ID)
	case s.Params.Kind() != s.Type:
		return simerr.Validation("device %s of type %s given %s parameters", s.ID, s.Type, s.Params.Kind())
	}
	return s.Params.Validate()
}

// Snapshot is a read-only copy of a device's state.
type Snapshot struct {
	Spec
	Status      Status `json:"status"`
	Enabled     bool   `json:"enabled"`
	Initialized bool   `json:"initialized"`
}

// Device is a detection device with a fixed identity and adjustable parameters.
type Device struct {
	mu          sync.RWMutex
	spec        Spec
	status      Status
	enabled     bool
	initialized bool
}

// New returns an uninitialized device.
func New() *Device {
	return &Device{status: StatusInactive}
}

// Initialize fixes the device identity. It may be called once.
func (d *Device) Initialize(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return simerr.State("device %s already initialized", d.spec.ID)
	}
	d.spec = spec
	d.initialized = true
	d.enabled = true
	d.status = StatusActive
	return nil
}

func (d *Device) requireInit() error {
	if !d.initialized {
		return simerr.State("device not initialized")
	}
	return nil
}

// ID returns the device id, empty before Initialize.
func (d *Device) ID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spec.ID
}

// Spec returns the current spec.
func (d *Device) Spec() Spec {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spec
}

// Enable lets an initialized device produce detections.
func (d *Device) Enable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireInit(); err != nil {
		return err
	}
	d.enabled = true
	return nil
}

// Disable stops the device from producing detections.
func (d *Device) Disable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireInit(); err != nil {
		return err
	}
	d.enabled = false
	return nil
}

// Reset returns the device to ACTIVE.
func (d *Device) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireInit(); err != nil {
		return err
	}
	d.status = StatusActive
	return nil
}

// SetStatus changes the operational status.
func (d *Device) SetStatus(s Status) error {
	switch s {
	case StatusActive, StatusInactive, StatusError:
	default:
		return simerr.Validation("unknown device status %q", s)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireInit(); err != nil {
		return err
	}
	d.status = s
	return nil
}

// AdjustParameters swaps in new parameters of the same kind.
func (d *Device) AdjustParameters(p Params) error {
	if p == nil {
		return simerr.Validation("nil parameters")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requireInit(); err != nil {
		return err
	}
	if p.Kind() != d.spec.Type {
		return simerr.State("device %s of type %s cannot take %s parameters", d.spec.ID, d.spec.Type, p.Kind())
	}
	if err := p.Validate(); err != nil {
		return err
	}
	d.spec.Params = p
	return nil
}

// Status returns the operational status.
func (d *Device) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Ready reports whether the device may produce detections.
func (d *Device) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.initialized && d.enabled && d.status == StatusActive
}

// Snapshot returns a copy of the device state.
func (d *Device) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{Spec: d.spec, Status: d.status, Enabled: d.enabled, Initialized: d.initialized}
}
