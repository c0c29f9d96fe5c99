package sim

import (
	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/telemetry"
)

// EventWriter is an interface to support different event sinks.
type EventWriter interface {
	WriteEvent(detection.Event) error
}

// Optional: event writers may support batch mode
type batchEventWriter interface {
	WriteEvents([]detection.Event) error
}

// StateWriter persists orchestrator performance rows.
type StateWriter interface {
	WriteState(telemetry.PerformanceRow) error
}

// FusionWriter persists fused radio position estimates.
type FusionWriter interface {
	WriteFusion(telemetry.FusionRow) error
}

// AdminStatusWriter allows writers to receive control surface status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}

// Publisher pushes events to live subscribers. Delivery is best-effort.
type Publisher interface {
	Publish(detection.Event) error
}

// writeEvents hands events to w, using batch mode when w supports it.
func writeEvents(w EventWriter, events []detection.Event) error {
	if len(events) == 0 {
		return nil
	}
	if bw, ok := w.(batchEventWriter); ok {
		return bw.WriteEvents(events)
	}
	for _, ev := range events {
		if err := w.WriteEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// DiscardWriter drops every event.
type DiscardWriter struct{}

// WriteEvent implements EventWriter.
func (DiscardWriter) WriteEvent(detection.Event) error { return nil }
