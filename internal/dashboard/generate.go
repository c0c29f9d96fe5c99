// Package dashboard renders Grafana dashboards over the GreptimeDB tables
// the simulator writes.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"skywatch-sim/internal/telemetry"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Tables names the GreptimeDB tables a dashboard queries.
type Tables struct {
	Events      string
	Performance string
	Fixes       string
}

// DefaultTables returns the table names used by the GreptimeDB writer.
func DefaultTables() Tables {
	return Tables{
		Events:      telemetry.DetectionTableName,
		Performance: telemetry.PerformanceTableName,
		Fixes:       telemetry.FusionTableName,
	}
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
// It returns the written paths.
func Render(outDir string) ([]string, error) {
	return RenderTables(outDir, DefaultTables())
}

// RenderTables is Render with explicit table names.
func RenderTables(outDir string, tables Tables) ([]string, error) {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, entry := range names {
		name := entry.Name()
		t, err := template.New(name).Funcs(funcMap).ParseFS(templates, "templates/"+name)
		if err != nil {
			return nil, err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return nil, err
		}
		if err := t.Execute(f, tables); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
