package dashboard

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	if _, err := Render(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")

	files, err := RenderTables(t.TempDir(), Tables{Events: "ev_t", Performance: "perf_t", Fixes: "fix_t"})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(files) != 1 || !strings.HasSuffix(files[0], "skywatch-dashboard.json") {
		t.Fatalf("unexpected files %v", files)
	}

	b, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !json.Valid(b) {
		t.Fatalf("rendered dashboard is not valid JSON")
	}
	for _, want := range []string{"uid1", "FROM ev_t", "FROM perf_t", "FROM fix_t"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("dashboard missing %q", want)
		}
	}
}
