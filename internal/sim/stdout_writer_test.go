package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/device"
	"skywatch-sim/internal/telemetry"
)

func TestJSONStdoutWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &JSONStdoutWriter{out: buf}
	ev := detection.Event{DetectorID: "r1", TargetID: "d1", Timestamp: time.Unix(0, 0)}
	if err := w.WriteEvent(ev); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var got detection.Event
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if got.TargetID != "d1" {
		t.Fatalf("target = %s, want d1", got.TargetID)
	}
}

func TestColorStdoutWriter(t *testing.T) {
	devices := []device.Spec{{ID: "radar-1", Type: device.TypeRadar, RangeM: 5000}}
	buf := &bytes.Buffer{}
	w := newColorWriter(buf, devices, true)
	ev := detection.Event{
		DetectorID:   "radar-1",
		DetectorType: device.TypeRadar,
		TargetID:     "d1",
		Confidence:   0.95,
		Timestamp:    time.Unix(0, 0),
		Radar:        &detection.RadarPayload{SNRdB: 37.5, Classification: "small-drone"},
	}
	if err := w.WriteEvent(ev); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Detection Devices:") {
		t.Fatalf("overview not printed: %q", output)
	}
	if !strings.Contains(output, "\x1b[") {
		t.Fatalf("expected color codes in output: %q", output)
	}
	if !strings.Contains(output, "class=small-drone") {
		t.Fatalf("radar payload missing: %q", output)
	}

	buf.Reset()
	if err := w.WriteEvent(ev); err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if strings.Contains(buf.String(), "Detection Devices:") {
		t.Fatalf("overview printed more than once")
	}

	buf.Reset()
	_ = w.WriteState(telemetry.PerformanceRow{Ticks: 3})
	if !strings.Contains(buf.String(), "ticks=3") {
		t.Fatalf("state row missing: %q", buf.String())
	}
}
