package sim

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/telemetry"
)

// FileWriter writes events, performance rows and fusion rows to JSONL files.
type FileWriter struct {
	mu         sync.Mutex
	eventFile  *os.File
	stateFile  *os.File
	fusionFile *os.File
	eventEnc   *json.Encoder
	stateEnc   *json.Encoder
	fusionEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. statePath or fusionPath may be empty to
// skip those logs.
func NewFileWriter(eventPath, statePath, fusionPath string) (*FileWriter, error) {
	ef, err := os.Create(eventPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{eventFile: ef, eventEnc: json.NewEncoder(ef)}
	if statePath != "" {
		sf, err := os.Create(statePath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.stateFile = sf
		fw.stateEnc = json.NewEncoder(sf)
	}
	if fusionPath != "" {
		ff, err := os.Create(fusionPath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.fusionFile = ff
		fw.fusionEnc = json.NewEncoder(ff)
	}
	return fw, nil
}

// WriteEvent logs a single detection event.
func (f *FileWriter) WriteEvent(ev detection.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eventEnc.Encode(ev)
}

// WriteEvents logs multiple detection events.
func (f *FileWriter) WriteEvents(events []detection.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range events {
		if err := f.eventEnc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

// WriteState logs a performance row, if enabled.
func (f *FileWriter) WriteState(row telemetry.PerformanceRow) error {
	if f.stateEnc == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateEnc.Encode(row)
}

// WriteFusion logs a fused radio estimate, if enabled.
func (f *FileWriter) WriteFusion(row telemetry.FusionRow) error {
	if f.fusionEnc == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fusionEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var errs []error
	for _, file := range []*os.File{f.eventFile, f.stateFile, f.fusionFile} {
		if file != nil {
			errs = append(errs, file.Close())
		}
	}
	return errors.Join(errs...)
}
