package sim

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/telemetry"
)

const writeTimeout = 5 * time.Second

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes events and rows to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client      greptimeClient
	airspaceID  string
	eventTable  string
	perfTable   string
	fusionTable string
}

// NewGreptimeDBWriter connects to GreptimeDB at host:port.
func NewGreptimeDBWriter(host string, port int, database, airspaceID string) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client:      client,
		airspaceID:  airspaceID,
		eventTable:  telemetry.DetectionTableName,
		perfTable:   telemetry.PerformanceTableName,
		fusionTable: telemetry.FusionTableName,
	}, nil
}

// WriteEvent inserts a single event.
func (w *GreptimeDBWriter) WriteEvent(ev detection.Event) error {
	return w.WriteEvents([]detection.Event{ev})
}

// WriteEvents inserts multiple events.
func (w *GreptimeDBWriter) WriteEvents(events []detection.Event) error {
	if len(events) == 0 {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("airspace_id", types.STRING)
	tbl.AddTagColumn("detector_id", types.STRING)
	tbl.AddTagColumn("target_id", types.STRING)
	tbl.AddFieldColumn("event_id", types.STRING)
	tbl.AddFieldColumn("detector_type", types.STRING)
	tbl.AddFieldColumn("tick_id", types.UINT64)
	tbl.AddFieldColumn("sim_time_ms", types.INT64)
	tbl.AddFieldColumn("north", types.FLOAT64)
	tbl.AddFieldColumn("east", types.FLOAT64)
	tbl.AddFieldColumn("down", types.FLOAT64)
	tbl.AddFieldColumn("confidence", types.FLOAT64)
	tbl.AddFieldColumn("distance_m", types.FLOAT64)
	tbl.AddFieldColumn("payload", types.STRING)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, ev := range events {
		err := tbl.AddRow(
			w.airspaceID, ev.DetectorID, ev.TargetID,
			ev.ID.String(), string(ev.DetectorType), ev.TickID, ev.SimTime.Milliseconds(),
			ev.Position.North, ev.Position.East, ev.Position.Down,
			ev.Confidence, ev.DistanceM, payloadJSON(ev),
			ev.Timestamp,
		)
		if err != nil {
			return err
		}
	}
	return w.write(tbl)
}

func payloadJSON(ev detection.Event) string {
	var v any
	switch {
	case ev.Radar != nil:
		v = ev.Radar
	case ev.Optical != nil:
		v = ev.Optical
	case ev.Radio != nil:
		v = ev.Radio
	default:
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// WriteState inserts a performance row.
func (w *GreptimeDBWriter) WriteState(row telemetry.PerformanceRow) error {
	tbl, err := table.New(w.perfTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("airspace_id", types.STRING)
	tbl.AddFieldColumn("ticks", types.INT64)
	tbl.AddFieldColumn("attempts", types.INT64)
	tbl.AddFieldColumn("detections", types.INT64)
	tbl.AddFieldColumn("timeouts", types.INT64)
	tbl.AddFieldColumn("errors", types.INT64)
	tbl.AddFieldColumn("success_rate", types.FLOAT64)
	tbl.AddFieldColumn("avg_tick_latency_ms", types.FLOAT64)
	tbl.AddFieldColumn("fps", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	err = tbl.AddRow(
		row.AirspaceID,
		int64(row.Ticks), int64(row.Attempts), int64(row.Detections), int64(row.Timeouts), int64(row.Errors),
		row.SuccessRate(), float64(row.AvgTickLatency)/float64(time.Millisecond), row.FPS,
		row.Timestamp,
	)
	if err != nil {
		return err
	}
	return w.write(tbl)
}

// WriteFusion inserts a fused radio estimate.
func (w *GreptimeDBWriter) WriteFusion(row telemetry.FusionRow) error {
	tbl, err := table.New(w.fusionTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("airspace_id", types.STRING)
	tbl.AddTagColumn("target_id", types.STRING)
	tbl.AddFieldColumn("tick_id", types.UINT64)
	tbl.AddFieldColumn("north", types.FLOAT64)
	tbl.AddFieldColumn("east", types.FLOAT64)
	tbl.AddFieldColumn("down", types.FLOAT64)
	tbl.AddFieldColumn("error_m", types.FLOAT64)
	tbl.AddFieldColumn("detectors", types.STRING)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	err = tbl.AddRow(
		row.AirspaceID, row.TargetID, row.TickID,
		row.Estimate.North, row.Estimate.East, row.Estimate.Down, row.ErrorM,
		strings.Join(row.Detectors, ","),
		row.Timestamp,
	)
	if err != nil {
		return err
	}
	return w.write(tbl)
}

func (w *GreptimeDBWriter) write(tbl *table.Table) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err := w.client.Write(ctx, tbl)
	return err
}
