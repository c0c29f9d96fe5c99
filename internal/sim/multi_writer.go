package sim

import (
	"errors"
	"io"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/telemetry"
)

// MultiWriter fans out events, performance rows and fusion rows to several
// writers. Rows go only to writers that support them.
type MultiWriter struct {
	writers []EventWriter
}

// NewMultiWriter creates a MultiWriter from writers.
func NewMultiWriter(writers ...EventWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteEvent sends the event to all writers.
func (m *MultiWriter) WriteEvent(ev detection.Event) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.WriteEvent(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteEvents sends a batch to all writers, using batch mode where supported.
func (m *MultiWriter) WriteEvents(events []detection.Event) error {
	var errs []error
	for _, w := range m.writers {
		if err := writeEvents(w, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteState forwards the row to writers implementing StateWriter.
func (m *MultiWriter) WriteState(row telemetry.PerformanceRow) error {
	var errs []error
	for _, w := range m.writers {
		if sw, ok := w.(StateWriter); ok {
			if err := sw.WriteState(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteFusion forwards the row to writers implementing FusionWriter.
func (m *MultiWriter) WriteFusion(row telemetry.FusionRow) error {
	var errs []error
	for _, w := range m.writers {
		if fw, ok := w.(FusionWriter); ok {
			if err := fw.WriteFusion(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards the control surface status to interested writers.
func (m *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range m.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}

// Close closes every writer that holds resources.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, w := range m.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
