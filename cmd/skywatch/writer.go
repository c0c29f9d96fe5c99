package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"skywatch-sim/internal/device"
	"skywatch-sim/internal/sim"
)

// Sink names accepted by --sink.
const (
	sinkAuto     = "auto"
	sinkJSON     = "stdout"
	sinkColor    = "color"
	sinkTUI      = "tui"
	sinkGreptime = "greptime"
)

// sinkOptions selects where events, performance rows and fixes go.
type sinkOptions struct {
	Sink         string
	LogFile      string // JSONL export; .perf and .fixes files sit next to it
	GreptimeHost string
	GreptimePort int
	GreptimeDB   string
}

var isTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

// resolveSink turns "auto" into a concrete sink: GreptimeDB when a host is
// configured, the TUI on a terminal and JSON lines otherwise.
func resolveSink(opts sinkOptions) string {
	if opts.Sink != "" && opts.Sink != sinkAuto {
		return opts.Sink
	}
	switch {
	case opts.GreptimeHost != "":
		return sinkGreptime
	case isTerminal():
		return sinkTUI
	default:
		return sinkJSON
	}
}

// newWriters sets up the event writer for one airspace. It returns the
// writer and a cleanup function to close any resources.
func newWriters(airspaceID string, devices []device.Spec, opts sinkOptions) (sim.EventWriter, func(), error) {
	base, err := baseWriter(airspaceID, devices, opts)
	if err != nil {
		return nil, nil, err
	}
	if opts.LogFile == "" {
		return base, closer(base), nil
	}
	fw, err := sim.NewFileWriter(opts.LogFile, opts.LogFile+".perf", opts.LogFile+".fixes")
	if err != nil {
		closer(base)()
		return nil, nil, err
	}
	mw := sim.NewMultiWriter(base, fw)
	return mw, func() { mw.Close() }, nil
}

// baseWriter chooses the primary sink.
func baseWriter(airspaceID string, devices []device.Spec, opts sinkOptions) (sim.EventWriter, error) {
	switch resolveSink(opts) {
	case sinkJSON:
		return sim.NewJSONStdoutWriter(), nil
	case sinkColor:
		return sim.NewColorStdoutWriter(devices), nil
	case sinkTUI:
		return sim.NewTUIWriter(airspaceID, devices), nil
	case sinkGreptime:
		if opts.GreptimeHost == "" {
			return nil, fmt.Errorf("greptime sink needs --greptime-host")
		}
		return sim.NewGreptimeDBWriter(opts.GreptimeHost, opts.GreptimePort, opts.GreptimeDB, airspaceID)
	default:
		return nil, fmt.Errorf("unknown sink %q", opts.Sink)
	}
}

func closer(w sim.EventWriter) func() {
	return func() {
		if c, ok := w.(io.Closer); ok {
			c.Close()
		}
	}
}
