package config

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mcsim/internal/control"
	"github.com/san-kum/mcsim/internal/dynamo"
)

const (
	DefaultSteps    = 100
	DefaultTrials   = 1000
	DefaultSeed     = 42
	DefaultStrategy = dynamo.StrategyShared
)

type Config struct {
	Strategy  string       `yaml:"strategy"`
	Steps     int          `yaml:"steps"`
	Trials    int          `yaml:"trials"`
	Workers   int          `yaml:"workers"`
	Seed      uint64       `yaml:"seed"`
	InitState []float64    `yaml:"init_state"`
	System    SystemConfig `yaml:"system"`
}

// SystemConfig holds the plant and gain matrices as row lists.
type SystemConfig struct {
	A [][]float64 `yaml:"a"`
	B [][]float64 `yaml:"b"`
	K [][]float64 `yaml:"k"`
}

// DefaultConfig uses the tutorial plant. Workers 0 means one per CPU.
func DefaultConfig() *Config {
	sys := control.NewTutorialSystem()
	return &Config{
		Strategy:  DefaultStrategy,
		Steps:     DefaultSteps,
		Trials:    DefaultTrials,
		Seed:      DefaultSeed,
		InitState: []float64{1, 0},
		System: SystemConfig{
			A: rows(sys.A),
			B: rows(sys.B),
			K: rows(sys.K),
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto reads the YAML file at path on top of cfg. Keys missing from the
// file keep the values already in cfg.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Resolve starts from the defaults, or from the named preset when preset is
// not empty, and reads the config file at path on top when path is not
// empty.
func Resolve(preset, path string) (*Config, error) {
	cfg := DefaultConfig()
	if preset != "" {
		cfg = GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("config: unknown preset %q", preset)
		}
	}
	if path != "" {
		if err := LoadInto(path, cfg); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	out.InitState = append([]float64(nil), c.InitState...)
	out.System = SystemConfig{
		A: cloneRows(c.System.A),
		B: cloneRows(c.System.B),
		K: cloneRows(c.System.K),
	}
	return &out
}

func (c *Config) Validate() error {
	switch c.Strategy {
	case dynamo.StrategySerial, dynamo.StrategyParallel, dynamo.StrategyShared:
	default:
		return fmt.Errorf("config: unknown strategy %q", c.Strategy)
	}
	if c.Steps < 0 {
		return fmt.Errorf("config: steps must not be negative, got %d", c.Steps)
	}
	if c.Trials < 0 {
		return fmt.Errorf("config: trials must not be negative, got %d", c.Trials)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	if c.InitState != nil && len(c.InitState) != dynamo.StateDim {
		return fmt.Errorf("config: init_state has %d components, want %d", len(c.InitState), dynamo.StateDim)
	}
	if !dynamo.State(c.InitState).Finite() {
		return fmt.Errorf("config: init_state %v: %w", c.InitState, dynamo.ErrNonFinite)
	}
	if _, err := c.BuildSystem(); err != nil {
		return err
	}
	return nil
}

func (c *Config) GetInitState() dynamo.State {
	if c.InitState == nil {
		return nil
	}
	return dynamo.State(c.InitState).Clone()
}

// BuildSystem converts the matrix rows into a control.System.
func (c *Config) BuildSystem() (*control.System, error) {
	a, err := dense("a", c.System.A)
	if err != nil {
		return nil, err
	}
	b, err := dense("b", c.System.B)
	if err != nil {
		return nil, err
	}
	k, err := dense("k", c.System.K)
	if err != nil {
		return nil, err
	}
	return control.NewSystem(a, b, k)
}

// SetGain replaces the feedback gain with a single row.
func (c *Config) SetGain(k ...float64) {
	c.System.K = [][]float64{append([]float64(nil), k...)}
}

func dense(name string, r [][]float64) (*mat.Dense, error) {
	if len(r) == 0 || len(r[0]) == 0 {
		return nil, fmt.Errorf("config: matrix %s is empty", name)
	}
	cols := len(r[0])
	data := make([]float64, 0, len(r)*cols)
	for i, row := range r {
		if len(row) != cols {
			return nil, fmt.Errorf("config: matrix %s row %d has %d entries, want %d", name, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(r), cols, data), nil
}

func rows(m mat.Matrix) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func cloneRows(r [][]float64) [][]float64 {
	if r == nil {
		return nil
	}
	out := make([][]float64, len(r))
	for i := range r {
		out[i] = append([]float64(nil), r[i]...)
	}
	return out
}
