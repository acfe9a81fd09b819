package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/bdfsim/internal/ode"
)

type ExportData struct {
	Run    RunMetadata    `json:"run"`
	Times  []float64      `json:"times"`
	States [][]float64    `json:"states"`
	Steps  []ode.StepInfo `json:"steps"`
}

// Export writes the full contents of a stored run as one JSON document.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return err
	}
	steps, err := s.LoadSteps(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Times: times, States: states, Steps: steps})
}
