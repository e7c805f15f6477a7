// Package scenes holds runnable colony setups. Each scene registers itself
// with core.Register so every front end can launch it by name.
package scenes

import (
	"fmt"
	"sort"

	"bactosim/internal/sim"
	"bactosim/pkg/core"
)

// Scene describes how to configure and seed one colony.
type Scene struct {
	Name        string
	Description string
	// Configure adjusts the defaults before the simulator is built.
	Configure func(cfg *sim.Config)
	// Options returns simulator options such as the regulator. seed is the
	// run seed so stochastic policies stay reproducible.
	Options func(seed int64) []sim.Option
	// Setup adds statics and founder cells.
	Setup func(s *sim.Simulator, rng *core.RNG) error
}

var registry = map[string]Scene{}

func register(sc Scene) {
	if sc.Name == "" || sc.Setup == nil {
		return
	}
	registry[sc.Name] = sc
	registerSim(sc)
}

// Lookup returns a registered scene.
func Lookup(name string) (Scene, error) {
	sc, ok := registry[name]
	if !ok {
		return Scene{}, fmt.Errorf("unknown scene %q", name)
	}
	return sc, nil
}

// Names lists the registered scenes alphabetically.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs a simulator for the scene and runs its setup.
func (sc Scene) Build(cfg sim.Config, extra ...sim.Option) (*sim.Simulator, error) {
	return sc.build(sc.configure(cfg), extra...)
}

func (sc Scene) configure(cfg sim.Config) sim.Config {
	if sc.Configure != nil {
		sc.Configure(&cfg)
	}
	return cfg
}

// build is Build for a config the scene has already adjusted.
func (sc Scene) build(cfg sim.Config, extra ...sim.Option) (*sim.Simulator, error) {
	var opts []sim.Option
	if sc.Options != nil {
		opts = append(opts, sc.Options(cfg.Seed)...)
	}
	opts = append(opts, extra...)
	s := sim.New(cfg, opts...)
	if err := sc.Setup(s, core.NewRNG(cfg.Seed)); err != nil {
		return nil, fmt.Errorf("scene %s: %w", sc.Name, err)
	}
	return s, nil
}
