package sim

import (
	"strconv"

	"bactosim/internal/physics"
)

// Config holds the simulator-level settings around the physics engine.
type Config struct {
	// Dt is the biophysical step passed to the engine on every Step.
	Dt            float64
	Seed          int64
	SnapshotEvery int

	Physics physics.Config
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		Dt:      0.025,
		Seed:    1,
		Physics: physics.DefaultConfig(),
	}
}

// FromMap reads simulator keys and forwards the map to physics.FromMap.
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	c.Physics = physics.FromMap(cfg)
	if cfg == nil {
		return c
	}
	if v, ok := cfg["dt"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			c.Dt = parsed
		}
	}
	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}
	if v, ok := cfg["snapshot_every"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.SnapshotEvery = parsed
		}
	}
	c.Physics.Seed = c.Seed
	return c
}
