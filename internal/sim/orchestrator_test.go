package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"skywatch-sim/internal/clock"
	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/device"
	"skywatch-sim/internal/environment"
	"skywatch-sim/internal/gateway"
	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/simerr"
	"skywatch-sim/internal/telemetry"
)

type fakeGateway struct {
	positions map[string]geo.Position
	fail      map[string]bool
}

func (g *fakeGateway) Kinematics(_ context.Context, id string) (gateway.KinematicsState, error) {
	if g.fail[id] {
		return gateway.KinematicsState{}, simerr.TransientIO("kinematics", errors.New("unreachable"))
	}
	p, ok := g.positions[id]
	if !ok {
		return gateway.KinematicsState{}, simerr.NotFound("vehicle %s", id)
	}
	return gateway.KinematicsState{
		Position:    gateway.Vector3r{X: p.North, Y: p.East, Z: p.Down},
		Orientation: gateway.Quaternionr{W: 1},
	}, nil
}

func (g *fakeGateway) DistanceSensor(context.Context, string, string) (gateway.DistanceSensorData, error) {
	return gateway.DistanceSensorData{}, nil
}
func (g *fakeGateway) IMU(context.Context, string, string) (gateway.ImuData, error) {
	return gateway.ImuData{}, nil
}
func (g *fakeGateway) Lidar(context.Context, string, string) (gateway.LidarData, error) {
	return gateway.LidarData{}, nil
}
func (g *fakeGateway) Close() error { return nil }

type recordingWriter struct {
	events []detection.Event
	states []telemetry.PerformanceRow
	fixes  []telemetry.FusionRow
}

func (w *recordingWriter) WriteEvent(ev detection.Event) error {
	w.events = append(w.events, ev)
	return nil
}
func (w *recordingWriter) WriteState(r telemetry.PerformanceRow) error {
	w.states = append(w.states, r)
	return nil
}
func (w *recordingWriter) WriteFusion(r telemetry.FusionRow) error {
	w.fixes = append(w.fixes, r)
	return nil
}

type recordingPublisher struct{ n int }

func (p *recordingPublisher) Publish(detection.Event) error {
	p.n++
	return nil
}

type slowSensor struct{ *detection.Sensor }

func (s slowSensor) PerformDetection(ctx context.Context, _ []telemetry.Target, _ environment.Snapshot) ([]detection.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type panicSensor struct{ *detection.Sensor }

func (panicSensor) PerformDetection(context.Context, []telemetry.Target, environment.Snapshot) ([]detection.Result, error) {
	panic("model exploded")
}

// doubleSensor reports every candidate twice in the same tick.
type doubleSensor struct{ *detection.Sensor }

func (doubleSensor) PerformDetection(_ context.Context, targets []telemetry.Target, _ environment.Snapshot) ([]detection.Result, error) {
	var out []detection.Result
	for _, tgt := range targets {
		r := detection.Result{TargetID: tgt.ID, Probability: 0.9, Position: tgt.Position}
		out = append(out, r, r)
	}
	return out, nil
}

type countingEnv struct {
	environment.Static
	observed []int
}

func (c *countingEnv) Observe(n int) { c.observed = append(c.observed, n) }

func newSensor(t *testing.T, spec device.Spec) *detection.Sensor {
	t.Helper()
	s, err := detection.NewSensor(16)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize(spec); err != nil {
		t.Fatal(err)
	}
	return s
}

func radarSpec() device.Spec {
	return device.Spec{
		ID:          "radar-1",
		Type:        device.TypeRadar,
		Position:    geo.Position{Down: -10},
		RangeM:      5000,
		FieldOfView: 10,
		Params:      device.DefaultRadarParams(),
	}
}

func radioSpec(id string, pos geo.Position) device.Spec {
	return device.Spec{
		ID:          id,
		Type:        device.TypeRadio,
		Position:    pos,
		RangeM:      5000,
		FieldOfView: 360,
		Params:      device.DefaultRadioParams(),
	}
}

func testTargets() []telemetry.Target {
	return []telemetry.Target{
		{ID: "d1", Model: "medium-uav", Frequency: 2.4e9, Signature: telemetry.Signature{EmissionPowerDBm: -20, RCS: 0.1, SizeM: 0.5}},
		{ID: "d2", Model: "small-fpv", Frequency: 5.8e9, Signature: telemetry.Signature{EmissionPowerDBm: -20, RCS: 0.01, SizeM: 0.2}},
	}
}

func testGateway() *fakeGateway {
	return &fakeGateway{positions: map[string]geo.Position{
		"d1": {North: 1000, Down: -10},
		"d2": {North: 20000, Down: -10},
	}}
}

func newTestOrchestrator(t *testing.T, gw gateway.Gateway, w EventWriter, extra ...detection.Detector) *Orchestrator {
	t.Helper()
	reg := device.NewRegistry[detection.Detector]()
	for _, d := range []detection.Detector{
		newSensor(t, radarSpec()),
		newSensor(t, radioSpec("radio-a", geo.Position{})),
		newSensor(t, radioSpec("radio-b", geo.Position{East: 3000})),
	} {
		if err := reg.Add(d); err != nil {
			t.Fatal(err)
		}
	}
	for _, d := range extra {
		if err := reg.Add(d); err != nil {
			t.Fatal(err)
		}
	}
	o, err := NewOrchestrator(Options{AirspaceID: "a1", Parallelism: 4, DetectionThreshold: 0.5}, gw, nil, reg, testTargets(), w)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	t.Cleanup(o.Close)
	return o
}

func tick(id uint64) clock.Tick {
	return clock.Tick{ID: id, SimTime: time.Duration(id) * 100 * time.Millisecond, Delta: 100 * time.Millisecond, Wall: time.Unix(1000, 0).UTC()}
}

func TestOrchestratorTickEmitsEvents(t *testing.T) {
	w := &recordingWriter{}
	o := newTestOrchestrator(t, testGateway(), w)
	pub := &recordingPublisher{}
	o.SetPublisher(pub)

	if err := o.OnTick(context.Background(), tick(1)); err != nil {
		t.Fatalf("OnTick: %v", err)
	}

	var got []string
	for _, ev := range w.events {
		got = append(got, ev.DetectorID+"/"+ev.TargetID)
	}
	want := []string{"radar-1/d1", "radio-a/d1", "radio-b/d1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
	if pub.n != len(w.events) {
		t.Fatalf("published %d, want %d", pub.n, len(w.events))
	}
	for _, ev := range w.events {
		if ev.TickID != 1 || ev.Confidence < 0.5 || ev.Confidence > 1 {
			t.Fatalf("bad event %+v", ev)
		}
	}
	s, err := o.Sensors().Get("radar-1")
	if err != nil {
		t.Fatal(err)
	}
	if s.Log().Len() != 1 {
		t.Fatalf("radar log has %d events, want 1", s.Log().Len())
	}

	if len(w.fixes) != 1 {
		t.Fatalf("expected one radio fix, got %d", len(w.fixes))
	}
	fix := w.fixes[0]
	if fix.TargetID != "d1" || len(fix.Detectors) != 2 {
		t.Fatalf("unexpected fix %+v", fix)
	}
	if fix.ErrorM > 1 {
		t.Fatalf("fix error %.2f m, want < 1 m", fix.ErrorM)
	}

	snap := o.Snapshot()
	if len(snap) != 2 || snap[0].ID != "d1" || snap[0].Status != telemetry.StatusHovering {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !o.Index().Contains("d2") {
		t.Fatalf("spatial index not refreshed")
	}
}

func TestOrchestratorTickIsRepeatable(t *testing.T) {
	w := &recordingWriter{}
	o := newTestOrchestrator(t, testGateway(), w)

	_ = o.OnTick(context.Background(), tick(1))
	first := append([]detection.Event(nil), w.events...)
	w.events = nil
	_ = o.OnTick(context.Background(), tick(2))

	opts := cmpopts.IgnoreFields(detection.Event{}, "ID", "TickID", "SimTime")
	if diff := cmp.Diff(first, w.events, opts); diff != "" {
		t.Fatalf("identical inputs gave different events (-first +second):\n%s", diff)
	}
	if first[0].ID == w.events[0].ID {
		t.Fatalf("event ids must be unique per tick")
	}
}

func TestOrchestratorSkipsDisabledDevices(t *testing.T) {
	w := &recordingWriter{}
	o := newTestOrchestrator(t, testGateway(), w)
	s, _ := o.Sensors().Get("radar-1")
	if err := s.Disable(); err != nil {
		t.Fatal(err)
	}

	_ = o.OnTick(context.Background(), tick(1))
	for _, ev := range w.events {
		if ev.DetectorID == "radar-1" {
			t.Fatalf("disabled radar produced %+v", ev)
		}
	}
	if len(w.events) != 2 {
		t.Fatalf("expected 2 radio events, got %d", len(w.events))
	}
}

func TestOrchestratorDeadlineAbandonsSlowDevices(t *testing.T) {
	w := &recordingWriter{}
	slow := slowSensor{newSensor(t, radioSpec("radio-slow", geo.Position{North: 10}))}
	o := newTestOrchestrator(t, testGateway(), w, slow)

	done := make(chan struct{})
	go func() {
		_ = o.OnTick(context.Background(), tick(1))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("tick did not finish after its deadline")
	}

	perf := o.Performance()
	if perf.Timeouts != 1 {
		t.Fatalf("timeouts = %d, want 1", perf.Timeouts)
	}
	if len(w.events) != 3 {
		t.Fatalf("fast devices should still report, got %d events", len(w.events))
	}
}

func TestOrchestratorRecoversTaskPanic(t *testing.T) {
	w := &recordingWriter{}
	bad := panicSensor{newSensor(t, radioSpec("radio-bad", geo.Position{North: 10}))}
	o := newTestOrchestrator(t, testGateway(), w, bad)

	if err := o.OnTick(context.Background(), tick(1)); err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if perf := o.Performance(); perf.Errors != 1 {
		t.Fatalf("errors = %d, want 1", perf.Errors)
	}
	if len(w.events) != 3 {
		t.Fatalf("healthy devices should still report, got %d events", len(w.events))
	}
}

func TestOrchestratorDropsFailedTargets(t *testing.T) {
	gw := testGateway()
	gw.fail = map[string]bool{"d1": true}
	w := &recordingWriter{}
	o := newTestOrchestrator(t, gw, w)

	_ = o.OnTick(context.Background(), tick(1))
	snap := o.Snapshot()
	if len(snap) != 1 || snap[0].ID != "d2" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(w.events) != 0 {
		t.Fatalf("unexpected events %+v", w.events)
	}
}

func TestOrchestratorReportsPerformance(t *testing.T) {
	w := &recordingWriter{}
	reg := device.NewRegistry[detection.Detector]()
	_ = reg.Add(newSensor(t, radarSpec()))
	env := &countingEnv{Static: environment.Static(environment.Default())}
	o, err := NewOrchestrator(Options{AirspaceID: "a1", Parallelism: 1, ReportInterval: time.Second}, testGateway(), env, reg, testTargets(), w)
	if err != nil {
		t.Fatal(err)
	}
	defer o.Close()
	now := time.Unix(0, 0)
	o.now = func() time.Time { return now }
	o.lastReport = now

	_ = o.OnTick(context.Background(), tick(1))
	if len(w.states) != 0 {
		t.Fatalf("reported before the interval elapsed")
	}
	now = now.Add(time.Second)
	_ = o.OnTick(context.Background(), tick(2))
	if len(w.states) != 1 {
		t.Fatalf("expected one performance row, got %d", len(w.states))
	}
	row := w.states[0]
	if row.Ticks != 2 || row.Attempts != 2 || row.Detections != 2 || row.FPS != 2 {
		t.Fatalf("unexpected row %+v", row)
	}
	if got := o.Performance(); got.Ticks != 0 {
		t.Fatalf("counters not reset: %+v", got)
	}
	if diff := cmp.Diff([]int{1, 1}, env.observed); diff != "" {
		t.Fatalf("environment observer mismatch:\n%s", diff)
	}
}

func TestNewOrchestratorValidation(t *testing.T) {
	cases := []struct {
		name    string
		opts    Options
		targets []telemetry.Target
	}{
		{"bad fraction", Options{DeadlineFraction: 1.5}, nil},
		{"bad threshold", Options{DetectionThreshold: -0.1}, nil},
		{"duplicate target", Options{}, []telemetry.Target{{ID: "x"}, {ID: "x"}}},
		{"blank target", Options{}, []telemetry.Target{{}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrchestrator(tc.opts, testGateway(), nil, nil, tc.targets, nil)
			if !errors.Is(err, simerr.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestOrchestratorKeepsOneEventPerDeviceAndTarget(t *testing.T) {
	w := &recordingWriter{}
	dbl := doubleSensor{newSensor(t, radioSpec("radio-dbl", geo.Position{North: 10}))}
	o := newTestOrchestrator(t, testGateway(), w, dbl)

	if err := o.OnTick(context.Background(), tick(1)); err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	n := 0
	for _, ev := range w.events {
		if ev.DetectorID == "radio-dbl" {
			n++
			if ev.TargetID != "d1" {
				t.Fatalf("unexpected event %+v", ev)
			}
		}
	}
	if n != 1 {
		t.Fatalf("writer got %d events for (radio-dbl,d1), want 1", n)
	}
	if got := dbl.Log().Len(); got != 1 {
		t.Fatalf("device log has %d events, want 1", got)
	}
}

func TestOrchestratorRejectsTicksAfterClose(t *testing.T) {
	w := &recordingWriter{}
	o := newTestOrchestrator(t, testGateway(), w)
	o.Close()

	err := o.OnTick(context.Background(), tick(1))
	if !errors.Is(err, simerr.ErrState) {
		t.Fatalf("expected state error, got %v", err)
	}
	if len(w.events) != 0 {
		t.Fatalf("closed orchestrator wrote %d events", len(w.events))
	}
	o.Close()
}

func TestOrchestratorCloseDuringTicks(t *testing.T) {
	o := newTestOrchestrator(t, testGateway(), &recordingWriter{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(1); i <= 50; i++ {
			// a tick racing Close must neither panic nor hang
			_ = o.OnTick(context.Background(), tick(i))
		}
	}()
	o.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("ticks did not finish after Close")
	}
}
