package config

import (
	"sort"

	"github.com/san-kum/mcsim/internal/dynamo"
)

var Presets = map[string]*Config{
	"tutorial": withOverrides(func(c *Config) {}),
	"small": withOverrides(func(c *Config) {
		c.Steps, c.Trials = 20, 100
	}),
	"large": withOverrides(func(c *Config) {
		c.Steps, c.Trials = 1000, 10000
	}),
	"serial": withOverrides(func(c *Config) {
		c.Strategy = dynamo.StrategySerial
	}),
	"aggressive": withOverrides(func(c *Config) {
		c.SetGain(5.0, 4.0)
	}),
	"sluggish": withOverrides(func(c *Config) {
		c.SetGain(0.2, 0.5)
	}),
	"open_loop": withOverrides(func(c *Config) {
		c.SetGain(0, 0)
		c.Steps = 50
	}),
}

func withOverrides(f func(*Config)) *Config {
	c := DefaultConfig()
	f(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
