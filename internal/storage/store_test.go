package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/bdfsim/internal/bdf"
	"github.com/san-kum/bdfsim/internal/config"
	"github.com/san-kum/bdfsim/internal/experiment"
	"github.com/san-kum/bdfsim/internal/ode"
)

func testResult() *experiment.Result {
	return &experiment.Result{
		Problem: "robertson",
		Times:   []float64{0, 0.5, 1},
		States: [][]float64{
			{1, 0, 0},
			{0.98, 3.4e-5, 0.019966},
			{0.966, 3.07e-5, 0.034},
		},
		Steps: []ode.StepInfo{
			{Step: 1, Time: 1e-4, Dt: 1e-4, Order: 1, ErrorEst: 0.3},
			{Step: 2, Time: 3e-4, Dt: 2e-4, Order: 2, ErrorEst: 0.8, ErrTestFails: 1},
		},
		Stats:   bdf.Stats{Steps: 2, ErrTestFailures: 1, RHSEvals: 9},
		Elapsed: 3 * time.Millisecond,
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.DefaultConfig()
	runID, err := st.Save(cfg, testResult(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Problem != "robertson" || meta.Dim != 3 || meta.TEnd != 1 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Stats.Steps != 2 || meta.Stats.ErrTestFailures != 1 {
		t.Errorf("stats not stored: %+v", meta.Stats)
	}
	if meta.RelTol != cfg.RelTol || meta.Config == nil || meta.Config.Solver.QMax != 5 {
		t.Errorf("config not stored: %+v", meta.Config)
	}
	if meta.Error != "" {
		t.Errorf("unexpected error %q", meta.Error)
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	if len(states) != 3 || len(times) != 3 {
		t.Fatalf("expected 3 samples, got %d states, %d times", len(states), len(times))
	}
	if states[1][1] != 3.4e-5 || states[2][2] != 0.034 {
		t.Errorf("states lost precision: %v", states)
	}

	steps, err := st.LoadSteps(runID)
	if err != nil {
		t.Fatalf("load steps failed: %v", err)
	}
	if len(steps) != 2 || steps[1].Order != 2 || steps[1].ErrTestFails != 1 || steps[1].Dt != 2e-4 {
		t.Errorf("unexpected steps %+v", steps)
	}
}

func TestStoreRecordsFailure(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(config.DefaultConfig(), testResult(), errors.New("step budget exhausted"))
	if err != nil {
		t.Fatal(err)
	}
	meta, err := st.Load(runID)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Error != "step budget exhausted" {
		t.Errorf("error = %q", meta.Error)
	}
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected empty list, got %v, %v", runs, err)
	}

	first, _ := st.Save(config.DefaultConfig(), testResult(), nil)
	second, _ := st.Save(config.DefaultConfig(), testResult(), nil)
	if err := os.MkdirAll(filepath.Join(dir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != first || runs[1].ID != second {
		t.Errorf("runs not in save order: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestStoreFileStructure(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	runID, err := st.Save(config.DefaultConfig(), testResult(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"metadata.json", "states.csv", "steps.csv"} {
		if _, err := os.Stat(filepath.Join(dir, runID, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestLoadMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, _, err := st.LoadStates("nope"); err == nil {
		t.Error("expected error for missing states")
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(config.DefaultConfig(), testResult(), nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.Export(&buf, runID); err != nil {
		t.Fatal(err)
	}
	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("export is not valid json: %v", err)
	}
	if data.Run.ID != runID || len(data.Times) != 3 || len(data.Steps) != 2 {
		t.Errorf("unexpected export %+v", data)
	}
}
