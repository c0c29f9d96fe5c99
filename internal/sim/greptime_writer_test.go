package sim

import (
	"context"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/device"
	"skywatch-sim/internal/geo"
	"skywatch-sim/internal/telemetry"
)

type mockGreptimeClient struct {
	table *table.Table
	calls int
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.calls++
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeWriterEvents(t *testing.T) {
	ts := time.Unix(0, 0).UTC()
	events := []detection.Event{
		{
			TickID:       3,
			Timestamp:    ts,
			DetectorID:   "radar-1",
			DetectorType: device.TypeRadar,
			TargetID:     "d1",
			Position:     geo.Position{North: 1000, Down: -100},
			Confidence:   0.99,
			Radar:        &detection.RadarPayload{SNRdB: 37.5, RCS: 0.1, Classification: "small-drone"},
		},
		{TickID: 3, Timestamp: ts, DetectorID: "radio-1", DetectorType: device.TypeRadio, TargetID: "d1"},
	}

	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, airspaceID: "a1", eventTable: "drone_detections"}

	if err := w.WriteEvents(events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if m.calls != 1 {
		t.Fatalf("expected one batched write, got %d", m.calls)
	}
	rows := m.table.GetRows().Rows
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if got := rows[0].Values[0].GetStringValue(); got != "a1" {
		t.Fatalf("airspace_id = %s, want a1", got)
	}
	if got := rows[0].Values[1].GetStringValue(); got != "radar-1" {
		t.Fatalf("detector_id = %s, want radar-1", got)
	}
	if got := rows[0].Values[12].GetStringValue(); got == "{}" {
		t.Fatalf("radar payload not encoded")
	}
	if got := rows[1].Values[12].GetStringValue(); got != "{}" {
		t.Fatalf("payload = %s, want {}", got)
	}
}

func TestGreptimeWriterEmptyBatch(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, eventTable: "drone_detections"}
	if err := w.WriteEvents(nil); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if m.calls != 0 {
		t.Fatalf("empty batch should not hit the database")
	}
}

func TestGreptimeWriterFusion(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, fusionTable: "radio_fixes"}
	row := telemetry.FusionRow{AirspaceID: "a1", TargetID: "d1", Detectors: []string{"r1", "r2"}, Timestamp: time.Unix(0, 0)}

	if err := w.WriteFusion(row); err != nil {
		t.Fatalf("WriteFusion: %v", err)
	}
	if got := m.table.GetRows().Rows[0].Values[1].GetStringValue(); got != "d1" {
		t.Fatalf("target_id = %s, want d1", got)
	}
	if got := m.table.GetRows().Rows[0].Values[7].GetStringValue(); got != "r1,r2" {
		t.Fatalf("detectors = %s, want r1,r2", got)
	}
}
