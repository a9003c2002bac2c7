package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/reactorsim/internal/reactor"
	"github.com/san-kum/reactorsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "states.csv"
)

var csvHeader = []string{
	"time", "flux", "temperature", "rod", "coolant_in", "coolant_out", "power", "reactivity", "scram",
}

// ErrNotFound is returned when a run id has no stored metadata.
var ErrNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo describes how a run was configured.
type RunInfo struct {
	Name     string
	Operator string
	Dt       float64
	Duration float64
	// Err is the error the run ended with, if any. Partial results are
	// still stored.
	Err error
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Operator   string             `json:"operator"`
	StepsTaken int                `json:"steps_taken"`
	TripTime   float64            `json:"trip_time"`
	Tripped    bool               `json:"tripped"`
	Error      string             `json:"error,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	now := s.now()
	name := info.Name
	if name == "" {
		name = "run"
	}
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Name:       name,
		Timestamp:  now,
		Dt:         info.Dt,
		Duration:   info.Duration,
		Operator:   info.Operator,
		StepsTaken: result.StepsTaken,
		TripTime:   result.TripTime,
		Tripped:    result.Tripped(),
		Metrics:    result.Metrics,
	}
	if info.Err != nil {
		meta.Error = info.Err.Error()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSamples(filepath.Join(runDir, samplesFile), result.Samples); err != nil {
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

func writeSamples(path string, samples []sim.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, smp := range samples {
		st := smp.State
		row := []string{
			formatFloat(smp.Time),
			formatFloat(st.NeutronFlux),
			formatFloat(st.Temperature),
			formatFloat(st.ControlRodInsertion),
			formatFloat(st.CoolantInletTemperature),
			formatFloat(st.CoolantOutletTemperature),
			formatFloat(st.PowerLevel),
			formatFloat(st.Reactivity),
			strconv.FormatBool(st.ScramTripped),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns stored runs, oldest first. Directories without readable
// metadata are skipped.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]sim.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(csvHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read samples %s: %w", runID, err)
	}
	if len(records) < 2 {
		return []sim.Sample{}, nil
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		smp, err := parseSample(record)
		if err != nil {
			return nil, fmt.Errorf("samples %s row %d: %w", runID, i+1, err)
		}
		samples = append(samples, smp)
	}
	return samples, nil
}

func parseSample(record []string) (sim.Sample, error) {
	vals := make([]float64, len(record)-1)
	for i := range vals {
		v, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return sim.Sample{}, err
		}
		vals[i] = v
	}
	scram, err := strconv.ParseBool(record[len(record)-1])
	if err != nil {
		return sim.Sample{}, err
	}

	return sim.Sample{
		Time: vals[0],
		State: reactor.State{
			NeutronFlux:              vals[1],
			Temperature:              vals[2],
			ControlRodInsertion:      vals[3],
			CoolantInletTemperature:  vals[4],
			CoolantOutletTemperature: vals[5],
			PowerLevel:               vals[6],
			Reactivity:               vals[7],
			ScramTripped:             scram,
		},
	}, nil
}

// ExportData is the full JSON form of a stored run.
type ExportData struct {
	Metadata RunMetadata  `json:"metadata"`
	Samples  []sim.Sample `json:"samples"`
}

func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Metadata: *meta, Samples: samples})
}
