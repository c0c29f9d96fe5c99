package detection

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"skywatch-sim/internal/device"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/simerr"
	"skywatch-sim/internal/telemetry"
)

func TestEventLogEvictsOldest(t *testing.T) {
	log, err := NewEventLog(3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		log.Append(Event{TargetID: fmt.Sprintf("t%d", i)})
	}
	if log.Len() != 3 || log.Cap() != 3 {
		t.Fatalf("len=%d cap=%d", log.Len(), log.Cap())
	}
	var ids []string
	for _, ev := range log.Events() {
		ids = append(ids, ev.TargetID)
	}
	if fmt.Sprint(ids) != "[t2 t3 t4]" {
		t.Fatalf("unexpected order %v", ids)
	}
	if recent := log.Recent(1); len(recent) != 1 || recent[0].TargetID != "t4" {
		t.Fatalf("Recent(1) = %+v", recent)
	}
	log.Clear()
	if log.Len() != 0 || len(log.Events()) != 0 {
		t.Fatalf("clear left events behind")
	}
}

func TestEventLogRejectsZeroCapacity(t *testing.T) {
	if _, err := NewEventLog(0); !errors.Is(err, simerr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func newRadarSensor(t *testing.T) *Sensor {
	t.Helper()
	s, err := NewSensor(10)
	if err != nil {
		t.Fatal(err)
	}
	spec, _ := radarDevice()
	if err := s.Initialize(spec); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSensorPerformDetection(t *testing.T) {
	s := newRadarSensor(t)
	targets := []telemetry.Target{
		drone("b", geo.Position{North: 2000, Down: -10}),
		drone("a", geo.Position{North: 1000, Down: -10}),
		drone("off", geo.Position{North: 1000, East: 1000, Down: -10}),
	}
	res, err := s.PerformDetection(context.Background(), targets, environment.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res[0].TargetID != "a" || res[1].TargetID != "b" {
		t.Fatalf("unexpected results %+v", res)
	}
}

func TestSensorNotReady(t *testing.T) {
	s, _ := NewSensor(1)
	if _, err := s.PerformDetection(context.Background(), nil, environment.Default()); !errors.Is(err, simerr.ErrState) {
		t.Fatalf("expected state error for uninitialized sensor, got %v", err)
	}
	s = newRadarSensor(t)
	_ = s.Disable()
	if _, err := s.PerformDetection(context.Background(), nil, environment.Default()); !errors.Is(err, simerr.ErrState) {
		t.Fatalf("expected state error for disabled sensor, got %v", err)
	}
}

func TestSensorHonoursCancellation(t *testing.T) {
	s := newRadarSensor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.PerformDetection(ctx, []telemetry.Target{drone("a", geo.Position{North: 1000})}, environment.Default())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestSensorResetClearsLog(t *testing.T) {
	s := newRadarSensor(t)
	s.Log().Append(Event{TargetID: "x"})
	_ = s.Device.SetStatus(device.StatusError)
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if s.Log().Len() != 0 || s.Status() != device.StatusActive {
		t.Fatalf("reset incomplete: len=%d status=%s", s.Log().Len(), s.Status())
	}
}

func TestNewEventCopiesResult(t *testing.T) {
	spec, _ := radarDevice()
	stamp := Stamp{TickID: 7, SimTime: 700 * time.Millisecond, Wall: time.Unix(10, 0)}
	ev := NewEvent(stamp, spec, Result{TargetID: "t", Probability: 1.3, DistanceM: 5, Radar: &RadarPayload{SNRdB: 20}})
	if ev.TickID != 7 || ev.DetectorID != "radar-1" || ev.DetectorType != device.TypeRadar {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Confidence != 1 {
		t.Fatalf("confidence not clamped: %v", ev.Confidence)
	}
	if ev.Radar == nil || ev.Optical != nil || ev.Radio != nil {
		t.Fatalf("payload variant mismatch")
	}
}
