package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/mcsim/internal/analysis"
	"github.com/san-kum/mcsim/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.bin"
	summaryFile  = "summary.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes a stored run. Steps and Trials are the shape the
// binary dump must be read back with.
type RunMetadata struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Strategy   string        `json:"strategy"`
	Workers    int           `json:"workers"`
	Seed       uint64        `json:"seed"`
	Steps      int           `json:"steps"`
	Trials     int           `json:"trials"`
	InitState  []float64     `json:"init_state"`
	Input      []float64     `json:"input,omitempty"`
	Gain       []float64     `json:"gain,omitempty"`
	Transition []float64     `json:"transition,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	HasStates  bool          `json:"has_states"`
}

// Save writes the summary, the binary dump when buf is not nil, and
// finally the metadata. A run directory that fails part way is removed, so
// List only ever sees complete runs. It returns the new run ID.
func (s *Store) Save(meta RunMetadata, buf *dynamo.Buffer, sum analysis.Summary) (_ string, err error) {
	if buf != nil && len(sum) != buf.Steps() {
		return "", fmt.Errorf("%w: summary has %d steps, buffer %d", dynamo.ErrShapeMismatch, len(sum), buf.Steps())
	}

	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Strategy, now.UnixNano())
	meta.Timestamp = now
	meta.HasStates = buf != nil
	if buf != nil {
		meta.Steps, meta.Trials = buf.Steps(), buf.Trials()
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(runDir)
		}
	}()

	if err := SaveSummary(filepath.Join(runDir, summaryFile), sum); err != nil {
		return "", err
	}
	if buf != nil {
		if err := SaveBinary(filepath.Join(runDir, statesFile), buf); err != nil {
			return "", err
		}
	}
	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns the metadata of every readable run, oldest first.
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
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadBuffer reads a run's binary dump using the shape from its metadata.
func (s *Store) LoadBuffer(runID string) (*dynamo.Buffer, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	if !meta.HasStates {
		return nil, fmt.Errorf("storage: run %s was saved without states", runID)
	}
	return LoadBinary(filepath.Join(s.baseDir, runID, statesFile), meta.Steps, meta.Trials)
}

func (s *Store) LoadSummary(runID string) (analysis.Summary, error) {
	return LoadSummary(filepath.Join(s.baseDir, runID, summaryFile))
}
