// ColorStdoutWriter prints human-friendly, colorized events to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/device"
	"skywatch-sim/internal/telemetry"
)

// ColorStdoutWriter prints events using ANSI colors, one color per detector
// type.
type ColorStdoutWriter struct {
	mu      sync.Mutex
	devices []device.Spec
	out     io.Writer
	once    sync.Once

	gray, red, green, yellow, blue, magenta, cyan *color.Color
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout. The
// device list is printed once before the first event.
func NewColorStdoutWriter(devices []device.Spec) *ColorStdoutWriter {
	return newColorWriter(os.Stdout, devices, false)
}

func newColorWriter(out io.Writer, devices []device.Spec, force bool) *ColorStdoutWriter {
	w := &ColorStdoutWriter{
		devices: devices,
		out:     out,
		gray:    color.New(color.FgHiBlack),
		red:     color.New(color.FgRed, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow),
		blue:    color.New(color.FgBlue),
		magenta: color.New(color.FgMagenta),
		cyan:    color.New(color.FgCyan),
	}
	if force {
		for _, c := range []*color.Color{w.gray, w.red, w.green, w.yellow, w.blue, w.magenta, w.cyan} {
			c.EnableColor()
		}
	}
	return w
}

func (w *ColorStdoutWriter) typeColor(t device.Type) *color.Color {
	switch t {
	case device.TypeRadar:
		return w.green
	case device.TypeOptical:
		return w.yellow
	case device.TypeRadio:
		return w.magenta
	default:
		return w.blue
	}
}

func (w *ColorStdoutWriter) printOverview() {
	if len(w.devices) == 0 {
		return
	}
	fmt.Fprintln(w.out, "Detection Devices:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tType\tPosition (N,E,D)\tAzimuth\tRange (m)\n")
	for _, d := range w.devices {
		fmt.Fprintf(tw, "%s\t%s\t(%.0f,%.0f,%.0f)\t%.1f\t%.0f\n",
			w.typeColor(d.Type).Sprint(d.ID), d.Type,
			d.Position.North, d.Position.East, d.Position.Down, d.Azimuth, d.RangeM)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// WriteEvent outputs a single detection event in colorized format.
func (w *ColorStdoutWriter) WriteEvent(ev detection.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.once.Do(w.printOverview)

	confColor := w.green
	switch {
	case ev.Confidence < 0.5:
		confColor = w.red
	case ev.Confidence < 0.8:
		confColor = w.yellow
	}

	fmt.Fprint(w.out, w.gray.Sprintf("[%s] ", ev.Timestamp.Format(time.RFC3339)))
	fmt.Fprint(w.out, w.blue.Sprintf("tick=%d ", ev.TickID))
	fmt.Fprint(w.out, w.typeColor(ev.DetectorType).Sprintf("detector=%s ", ev.DetectorID))
	fmt.Fprintf(w.out, "target=%s ", ev.TargetID)
	fmt.Fprint(w.out, w.cyan.Sprintf("pos=(%.1f,%.1f,%.1f) ", ev.Position.North, ev.Position.East, ev.Position.Down))
	fmt.Fprint(w.out, w.cyan.Sprintf("dist=%.1f ", ev.DistanceM))
	fmt.Fprint(w.out, confColor.Sprintf("conf=%.2f", ev.Confidence))
	switch {
	case ev.Radar != nil:
		fmt.Fprint(w.out, w.gray.Sprintf(" snr=%.1fdB class=%s", ev.Radar.SNRdB, ev.Radar.Classification))
	case ev.Optical != nil:
		fmt.Fprint(w.out, w.gray.Sprintf(" bbox=%.0fx%.0f trackable=%t", ev.Optical.BBox.W, ev.Optical.BBox.H, ev.Optical.Trackable))
	case ev.Radio != nil:
		fmt.Fprint(w.out, w.gray.Sprintf(" az=%.1f el=%.1f rx=%.1fdBm", ev.Radio.Azimuth, ev.Radio.Elevation, ev.Radio.SignalStrengthDBm))
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteEvents outputs multiple events.
func (w *ColorStdoutWriter) WriteEvents(events []detection.Event) error {
	for _, ev := range events {
		_ = w.WriteEvent(ev)
	}
	return nil
}

// WriteState prints orchestrator performance to STDOUT.
func (w *ColorStdoutWriter) WriteState(row telemetry.PerformanceRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s %s ticks=%d attempts=%d detections=%d timeouts=%d errors=%d fps=%.1f latency=%s\n",
		w.gray.Sprintf("[%s]", row.Timestamp.Format(time.RFC3339)),
		w.blue.Sprint("PERF"),
		row.Ticks, row.Attempts, row.Detections, row.Timeouts, row.Errors, row.FPS, row.AvgTickLatency)
	return nil
}

// WriteFusion prints a fused radio estimate to STDOUT.
func (w *ColorStdoutWriter) WriteFusion(row telemetry.FusionRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s %s target=%s est=(%.1f,%.1f,%.1f) err=%.1fm receivers=%v\n",
		w.gray.Sprintf("[%s]", row.Timestamp.Format(time.RFC3339)),
		w.magenta.Sprint("FIX"),
		row.TargetID, row.Estimate.North, row.Estimate.East, row.Estimate.Down, row.ErrorM, row.Detectors)
	return nil
}
