package telemetry

import "time"

// PerformanceRow captures orchestrator counters for one report interval.
type PerformanceRow struct {
	AirspaceID     string        `json:"airspace_id"`
	Ticks          int           `json:"ticks"`
	Attempts       int           `json:"attempts"`
	Detections     int           `json:"detections"`
	Timeouts       int           `json:"timeouts"`
	Errors         int           `json:"errors"`
	AvgTickLatency time.Duration `json:"avg_tick_latency_ns"`
	FPS            float64       `json:"fps"`
	Timestamp      time.Time     `json:"ts"`
}

// SuccessRate is detections per attempt, 0 when nothing was attempted.
func (r PerformanceRow) SuccessRate() float64 {
	if r.Attempts == 0 {
		return 0
	}
	return float64(r.Detections) / float64(r.Attempts)
}
