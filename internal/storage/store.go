// Package storage persists closed-loop runs: one directory per run
// with json metadata, a csv trace and the switch audit log.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avolkov/hybridsmc/internal/hybrid"
	"github.com/avolkov/hybridsmc/internal/sim"
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
	ID        string             `json:"id"`
	Mode      string             `json:"mode"`
	Criterion string             `json:"criterion"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Switches  int                `json:"switches"`
	SafeSteps int                `json:"safe_steps"`
	Metrics   map[string]float64 `json:"metrics"`
}

func (s *Store) Save(mode, criterion string, dt, duration float64, seed int64, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s_%d", mode, criterion, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Mode:      mode,
		Criterion: criterion,
		Timestamp: time.Now(),
		Seed:      seed,
		Dt:        dt,
		Duration:  duration,
		Switches:  len(result.Switches),
		SafeSteps: result.SafeSteps,
		Metrics:   result.Metrics,
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "switches.json"), result.Switches); err != nil {
		return "", err
	}
	if err := s.writeTrace(filepath.Join(runDir, "trace.csv"), result); err != nil {
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

func (s *Store) writeTrace(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if len(result.States) == 0 {
		return nil
	}

	header := []string{"time"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	header = append(header, "u", "active")
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'f', 6, 64)}
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if i < len(result.Controls) {
			row = append(row, strconv.FormatFloat(result.Controls[i], 'f', 6, 64), result.Active[i])
		} else {
			row = append(row, "0", "")
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

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

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadSwitches(runID string) ([]hybrid.SwitchRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "switches.json"))
	if err != nil {
		return nil, err
	}

	var records []hybrid.SwitchRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// LoadTrace reads the csv trace back: times, state rows, controls and
// the active-strategy column.
func (s *Store) LoadTrace(runID string) ([]float64, [][]float64, []float64, []string, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "trace.csv"))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, [][]float64{}, []float64{}, []string{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)
	controls := make([]float64, 0, len(records)-1)
	active := make([]string, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) < 3 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}

		state := make([]float64, 0, len(record)-3)
		for _, field := range record[1 : len(record)-2] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			state = append(state, val)
		}

		u, err := strconv.ParseFloat(record[len(record)-2], 64)
		if err != nil {
			continue
		}

		times = append(times, t)
		states = append(states, state)
		controls = append(controls, u)
		active = append(active, record[len(record)-1])
	}

	return times, states, controls, active, nil
}
