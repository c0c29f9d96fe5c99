package sim

import (
	"errors"
	"testing"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/telemetry"
)

type eventOnlyWriter struct{ events []detection.Event }

func (w *eventOnlyWriter) WriteEvent(ev detection.Event) error {
	w.events = append(w.events, ev)
	return nil
}

type fullWriter struct {
	batches int
	states  []telemetry.PerformanceRow
	fixes   []telemetry.FusionRow
	closed  bool
	err     error
}

func (w *fullWriter) WriteEvent(detection.Event) error { return w.err }
func (w *fullWriter) WriteEvents([]detection.Event) error {
	w.batches++
	return w.err
}
func (w *fullWriter) WriteState(r telemetry.PerformanceRow) error {
	w.states = append(w.states, r)
	return nil
}
func (w *fullWriter) WriteFusion(r telemetry.FusionRow) error {
	w.fixes = append(w.fixes, r)
	return nil
}
func (w *fullWriter) Close() error {
	w.closed = true
	return nil
}

func TestMultiWriterBatchFallback(t *testing.T) {
	plain := &eventOnlyWriter{}
	batch := &fullWriter{}
	mw := NewMultiWriter(plain, batch)

	events := []detection.Event{{TargetID: "a"}, {TargetID: "b"}}
	if err := mw.WriteEvents(events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if len(plain.events) != 2 {
		t.Fatalf("plain writer got %d events, want 2", len(plain.events))
	}
	if batch.batches != 1 {
		t.Fatalf("batch writer got %d batches, want 1", batch.batches)
	}
}

func TestMultiWriterForwardsRows(t *testing.T) {
	plain := &eventOnlyWriter{}
	full := &fullWriter{}
	mw := NewMultiWriter(plain, full)

	if err := mw.WriteState(telemetry.PerformanceRow{Ticks: 1}); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if err := mw.WriteFusion(telemetry.FusionRow{TargetID: "d1"}); err != nil {
		t.Fatalf("WriteFusion: %v", err)
	}
	if len(full.states) != 1 || len(full.fixes) != 1 {
		t.Fatalf("rows not forwarded: %+v", full)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !full.closed {
		t.Fatalf("closer not closed")
	}
}

func TestMultiWriterJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	plain := &eventOnlyWriter{}
	mw := NewMultiWriter(&fullWriter{err: boom}, plain)

	err := mw.WriteEvent(detection.Event{TargetID: "a"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if len(plain.events) != 1 {
		t.Fatalf("a failing writer must not block the others")
	}
}
