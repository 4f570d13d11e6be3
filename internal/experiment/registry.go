package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/mcsim/internal/compute"
	"github.com/san-kum/mcsim/internal/dynamo"
)

// DriverFactory builds a driver for one run.
type DriverFactory func(k *dynamo.Kernel, noise dynamo.NoiseFactory, pool *compute.Pool) dynamo.Driver

type Registry struct {
	drivers map[string]DriverFactory
}

func NewRegistry() *Registry {
	r := &Registry{drivers: make(map[string]DriverFactory)}

	r.drivers[dynamo.StrategySerial] = func(k *dynamo.Kernel, noise dynamo.NoiseFactory, _ *compute.Pool) dynamo.Driver {
		return dynamo.NewSerial(k, noise)
	}
	r.drivers[dynamo.StrategyParallel] = func(k *dynamo.Kernel, noise dynamo.NoiseFactory, pool *compute.Pool) dynamo.Driver {
		return dynamo.NewParallel(k, noise, pool)
	}
	r.drivers[dynamo.StrategyShared] = func(k *dynamo.Kernel, noise dynamo.NoiseFactory, pool *compute.Pool) dynamo.Driver {
		return dynamo.NewShared(k, noise, pool)
	}

	return r
}

func (r *Registry) Register(name string, f DriverFactory) {
	r.drivers[name] = f
}

func (r *Registry) Driver(name string, k *dynamo.Kernel, noise dynamo.NoiseFactory, pool *compute.Pool) (dynamo.Driver, error) {
	f, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
	return f(k, noise, pool), nil
}

func (r *Registry) Strategies() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
