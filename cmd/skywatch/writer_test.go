package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/sim"
	"skywatch-sim/internal/telemetry"
)

func notTerminal(t *testing.T) {
	t.Helper()
	prev := isTerminal
	isTerminal = func() bool { return false }
	t.Cleanup(func() { isTerminal = prev })
}

func TestNewWritersPrintOnly(t *testing.T) {
	w, cleanup, err := newWriters("a1", nil, sinkOptions{Sink: sinkJSON})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.JSONStdoutWriter); !ok {
		t.Fatalf("expected *sim.JSONStdoutWriter, got %T", w)
	}
}

func TestNewWritersColor(t *testing.T) {
	w, cleanup, err := newWriters("a1", nil, sinkOptions{Sink: sinkColor})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*sim.ColorStdoutWriter); !ok {
		t.Fatalf("expected *sim.ColorStdoutWriter, got %T", w)
	}
}

func TestResolveSinkAuto(t *testing.T) {
	notTerminal(t)
	if got := resolveSink(sinkOptions{Sink: sinkAuto}); got != sinkJSON {
		t.Fatalf("expected stdout fallback, got %q", got)
	}
	if got := resolveSink(sinkOptions{GreptimeHost: "db"}); got != sinkGreptime {
		t.Fatalf("expected greptime with a host, got %q", got)
	}
	isTerminal = func() bool { return true }
	if got := resolveSink(sinkOptions{}); got != sinkTUI {
		t.Fatalf("expected tui on a terminal, got %q", got)
	}
}

func TestNewWritersErrors(t *testing.T) {
	if _, _, err := newWriters("a1", nil, sinkOptions{Sink: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown sink")
	}
	if _, _, err := newWriters("a1", nil, sinkOptions{Sink: sinkGreptime}); err == nil {
		t.Fatalf("expected error for greptime without host")
	}
}

func TestNewWritersLogFile(t *testing.T) {
	notTerminal(t)
	path := filepath.Join(t.TempDir(), "events.jsonl")
	w, cleanup, err := newWriters("a1", nil, sinkOptions{LogFile: path})
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	if _, ok := w.(*sim.MultiWriter); !ok {
		t.Fatalf("expected *sim.MultiWriter, got %T", w)
	}
	ev := detection.Event{DetectorID: "r1", TargetID: "d1", Timestamp: time.Now()}
	if err := w.WriteEvent(ev); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	sw, ok := w.(sim.StateWriter)
	if !ok {
		t.Fatalf("writer does not implement StateWriter")
	}
	if err := sw.WriteState(telemetry.PerformanceRow{AirspaceID: "a1", Ticks: 3, Timestamp: time.Now()}); err != nil {
		t.Fatalf("write state failed: %v", err)
	}
	for _, p := range []string{path, path + ".perf"} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if info.Size() == 0 {
			t.Fatalf("expected %s to be non-empty", p)
		}
	}
}
