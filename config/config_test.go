package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	params, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	res := params.For("beta")
	if res.Time != "24" || res.Procs != "4" || res.MemDim != "gb" {
		t.Fatalf("unexpected beta resources: %+v", res)
	}
}

func TestForFallsBackToDefault(t *testing.T) {
	params, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	res := params.For("no_such_analysis")
	if res != defaults["default"] {
		t.Fatalf("want:%+v have:%+v", defaults["default"], res)
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_params.yml")
	content := "alpha:\n  time: \"48\"\n  mem: \"16\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	params, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	res := params.For("alpha")
	if res.Time != "48" || res.Mem != "16" {
		t.Fatalf("override not applied: %+v", res)
	}
	// untouched keys keep their defaults
	if res.Procs != "1" || res.MemDim != "gb" {
		t.Fatalf("defaults lost under override: %+v", res)
	}
	// other sections untouched
	if beta := params.For("beta"); beta.Time != "24" {
		t.Fatalf("unrelated section changed: %+v", beta)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_params.yml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error")
	}
}

func TestEveryStageHasResources(t *testing.T) {
	params, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	for stage := range defaults {
		res := params.For(stage)
		if res.Time == "" || res.Nodes == "" || res.Procs == "" || res.Mem == "" || res.MemDim == "" {
			t.Errorf("%s: incomplete resources %+v", stage, res)
		}
	}
}
