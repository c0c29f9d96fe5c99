package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/telemetry"
)

// JSONStdoutWriter prints events and rows as JSON to STDOUT.
type JSONStdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) print(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteEvent outputs a detection event in JSON format.
func (w *JSONStdoutWriter) WriteEvent(ev detection.Event) error { return w.print(ev) }

// WriteState outputs a performance row in JSON format.
func (w *JSONStdoutWriter) WriteState(row telemetry.PerformanceRow) error { return w.print(row) }

// WriteFusion outputs a fused radio estimate in JSON format.
func (w *JSONStdoutWriter) WriteFusion(row telemetry.FusionRow) error { return w.print(row) }
