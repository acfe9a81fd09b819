package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/bdfsim/internal/bdf"
	"github.com/san-kum/bdfsim/internal/config"
	"github.com/san-kum/bdfsim/internal/experiment"
	"github.com/san-kum/bdfsim/internal/ode"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
	stepsFile    = "steps.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string         `json:"id"`
	Problem   string         `json:"problem"`
	Timestamp time.Time      `json:"timestamp"`
	Dim       int            `json:"dim"`
	TEnd      float64        `json:"t_end"`
	RelTol    float64        `json:"rel_tol"`
	AbsTol    float64        `json:"abs_tol"`
	Linear    string         `json:"linear"`
	Backend   string         `json:"backend"`
	Elapsed   time.Duration  `json:"elapsed_ns"`
	Stats     bdf.Stats      `json:"stats"`
	Config    *config.Config `json:"config"`
	// Error is set when the integration stopped before t_end.
	Error string `json:"error,omitempty"`
}

// Save writes a run directory holding the metadata, the sampled states and
// the accepted step history. runErr, if non-nil, is recorded as the reason
// the trajectory is partial.
func (s *Store) Save(cfg *config.Config, result *experiment.Result, runErr error) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", result.Problem, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	dim := 0
	if len(result.States) > 0 {
		dim = len(result.States[0])
	}
	tend := 0.0
	if len(result.Times) > 0 {
		tend = result.Times[len(result.Times)-1]
	}
	meta := RunMetadata{
		ID:        runID,
		Problem:   result.Problem,
		Timestamp: now,
		Dim:       dim,
		TEnd:      tend,
		RelTol:    cfg.RelTol,
		AbsTol:    cfg.AbsTol,
		Linear:    cfg.Nonlinear.Linear,
		Backend:   cfg.Backend,
		Elapsed:   result.Elapsed,
		Stats:     result.Stats,
		Config:    cfg,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), result.Times, result.States); err != nil {
		return "", err
	}
	if err := writeSteps(filepath.Join(runDir, stepsFile), result.Steps); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeStates(path string, times []float64, states [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if len(states) > 0 {
		header := []string{"time"}
		for i := range states[0] {
			header = append(header, fmt.Sprintf("y%d", i))
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for i, state := range states {
		row := make([]string, 0, len(state)+1)
		row = append(row, formatFloat(times[i]))
		for _, v := range state {
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeSteps(path string, steps []ode.StepInfo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"step", "time", "dt", "order", "error_est", "err_test_fails", "conv_fails"}); err != nil {
		return err
	}
	for _, st := range steps {
		row := []string{
			strconv.Itoa(st.Step),
			formatFloat(st.Time),
			formatFloat(st.Dt),
			strconv.Itoa(st.Order),
			formatFloat(st.ErrorEst),
			strconv.Itoa(st.ErrTestFails),
			strconv.Itoa(st.ConvFails),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, oldest first. Directories without
// readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func parseRow(record []string) ([]float64, error) {
	vals := make([]float64, len(record))
	for j, field := range record {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		vals[j] = v
	}
	return vals, nil
}

func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		vals, err := parseRow(record)
		if err != nil {
			return nil, nil, fmt.Errorf("%s line %d: %w", statesFile, i+2, err)
		}
		times = append(times, vals[0])
		states = append(states, vals[1:])
	}
	return states, times, nil
}

func (s *Store) LoadSteps(runID string) ([]ode.StepInfo, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, stepsFile))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []ode.StepInfo{}, nil
	}

	steps := make([]ode.StepInfo, 0, len(records)-1)
	for i, record := range records[1:] {
		vals, err := parseRow(record)
		if err != nil || len(vals) != 7 {
			return nil, fmt.Errorf("%s line %d: malformed record", stepsFile, i+2)
		}
		steps = append(steps, ode.StepInfo{
			Step:         int(vals[0]),
			Time:         vals[1],
			Dt:           vals[2],
			Order:        int(vals[3]),
			ErrorEst:     vals[4],
			ErrTestFails: int(vals[5]),
			ConvFails:    int(vals[6]),
		})
	}
	return steps, nil
}
