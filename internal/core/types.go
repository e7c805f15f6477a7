package core

import "sort"

// Size describes the dimensions of a raster in pixels.
type Size struct {
	W int
	H int
}

// Sim is the contract every front end drives: one Step is one simulation
// step and Cells is a W*H raster of palette indices describing the state.
type Sim interface {
	Name() string
	Size() Size
	Reset(seed int64)
	Step()
	Cells() []uint8
}

// Factory constructs a Sim from flag-style key/value pairs. It returns nil
// when the configuration cannot be built.
type Factory func(cfg map[string]string) Sim

var sims = map[string]Factory{}

// Register adds a simulation factory under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	sims[name] = f
}

// Sims exposes the registry of available simulation factories.
func Sims() map[string]Factory {
	return sims
}

// Names lists the registered factories alphabetically.
func Names() []string {
	out := make([]string, 0, len(sims))
	for name := range sims {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
