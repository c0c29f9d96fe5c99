package sim

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/device"
	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/telemetry"
)

func TestFileWriter(t *testing.T) {
	dir := t.TempDir()
	ts := time.Unix(0, 0).UTC()
	ev := detection.Event{
		TickID:       7,
		Timestamp:    ts,
		DetectorID:   "radio-1",
		DetectorType: device.TypeRadio,
		TargetID:     "d1",
		Confidence:   0.8,
		Radio:        &detection.RadioPayload{Azimuth: 53.13, SignalStrengthDBm: -66},
	}
	perf := telemetry.PerformanceRow{AirspaceID: "a1", Ticks: 10, Attempts: 4, Detections: 2, Timestamp: ts}
	fix := telemetry.FusionRow{AirspaceID: "a1", TargetID: "d1", Estimate: geo.Position{North: 5}, Detectors: []string{"r1", "r2"}, Timestamp: ts}

	cases := []struct {
		name   string
		path   string
		write  func(*FileWriter) error
		decode func([]byte)
	}{
		{
			name:  "events",
			path:  filepath.Join(dir, "events.jsonl"),
			write: func(fw *FileWriter) error { return fw.WriteEvents([]detection.Event{ev}) },
			decode: func(b []byte) {
				var got detection.Event
				if err := json.Unmarshal(b, &got); err != nil {
					t.Fatalf("decode event: %v", err)
				}
				if got.TargetID != ev.TargetID || got.Radio == nil || got.Radio.Azimuth != ev.Radio.Azimuth {
					t.Fatalf("unexpected event: %#v", got)
				}
			},
		},
		{
			name:  "state",
			path:  filepath.Join(dir, "state.jsonl"),
			write: func(fw *FileWriter) error { return fw.WriteState(perf) },
			decode: func(b []byte) {
				var got telemetry.PerformanceRow
				if err := json.Unmarshal(b, &got); err != nil {
					t.Fatalf("decode state: %v", err)
				}
				if got.Ticks != perf.Ticks || got.Detections != perf.Detections {
					t.Fatalf("unexpected state: %#v", got)
				}
			},
		},
		{
			name:  "fusion",
			path:  filepath.Join(dir, "fusion.jsonl"),
			write: func(fw *FileWriter) error { return fw.WriteFusion(fix) },
			decode: func(b []byte) {
				var got telemetry.FusionRow
				if err := json.Unmarshal(b, &got); err != nil {
					t.Fatalf("decode fusion: %v", err)
				}
				if got.Estimate != fix.Estimate || len(got.Detectors) != 2 {
					t.Fatalf("unexpected fusion: %#v", got)
				}
			},
		},
	}

	fw, err := NewFileWriter(cases[0].path, cases[1].path, cases[2].path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	for _, tc := range cases {
		if err := tc.write(fw); err != nil {
			t.Fatalf("%s write: %v", tc.name, err)
		}
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := os.ReadFile(tc.path)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			tc.decode(b)
		})
	}
}

func TestFileWriterOptionalLogs(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWriter(filepath.Join(dir, "events.jsonl"), "", "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	defer fw.Close()
	if err := fw.WriteState(telemetry.PerformanceRow{}); err != nil {
		t.Fatalf("WriteState without file: %v", err)
	}
	if err := fw.WriteFusion(telemetry.FusionRow{}); err != nil {
		t.Fatalf("WriteFusion without file: %v", err)
	}
}
