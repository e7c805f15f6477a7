package physics

import (
	"runtime"
	"strconv"
)

// Config holds buffer capacities and solver tunables for the capsule engine.
type Config struct {
	MaxCells    int
	MaxContacts int
	MaxPlanes   int
	MaxSpheres  int
	MaxSquares  int

	GridSpacing float64

	// Mobility (muA) scales the drag of a cell against its surroundings.
	Mobility float64
	// RegularizationStiffness (gamma) trades translation/rotation drag against
	// resistance to length change.
	RegularizationStiffness float64

	CGSTolerance float64
	MaxSubsteps  int

	// Dt is the internal tick length. Zero runs one tick per Step call.
	Dt float64

	ContactMargin    float64
	OverlapTolerance float64

	JitterZ            bool
	DivisionJitter     float64
	AlternateDivisions bool

	// VelocityRetention is the fraction of a tick's displacement carried into
	// the next tick's prediction. Zero is fully overdamped.
	VelocityRetention float64
	Propulsion        float64

	ComputeNeighbours bool

	Workers int
	Seed    int64
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		MaxCells:                10000,
		MaxContacts:             24,
		MaxPlanes:               4,
		MaxSpheres:              2,
		MaxSquares:              192 * 192,
		GridSpacing:             7.0,
		Mobility:                1.0,
		RegularizationStiffness: 10.0,
		CGSTolerance:            5e-3,
		MaxSubsteps:             8,
		ContactMargin:           0.1,
		OverlapTolerance:        0.01,
		JitterZ:                 true,
		DivisionJitter:          0.001,
		Workers:                 runtime.GOMAXPROCS(0),
		Seed:                    1,
	}
}

// FromMap populates the config from a string map (flag-style key/value pairs).
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	setInt := func(key string, dst *int, min int) {
		if v, ok := cfg[key]; ok {
			if parsed, err := strconv.Atoi(v); err == nil && parsed >= min {
				*dst = parsed
			}
		}
	}
	setFloat := func(key string, dst *float64, min float64) {
		if v, ok := cfg[key]; ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= min {
				*dst = parsed
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := cfg[key]; ok {
			if parsed, err := strconv.ParseBool(v); err == nil {
				*dst = parsed
			}
		}
	}

	setInt("max_cells", &c.MaxCells, 1)
	setInt("max_contacts", &c.MaxContacts, 1)
	setInt("max_planes", &c.MaxPlanes, 0)
	setInt("max_spheres", &c.MaxSpheres, 0)
	setInt("max_squares", &c.MaxSquares, 1)
	setFloat("grid_spacing", &c.GridSpacing, 1e-6)
	setFloat("mobility", &c.Mobility, 1e-9)
	setFloat("regularization_stiffness", &c.RegularizationStiffness, 1e-9)
	setFloat("cgs_tol", &c.CGSTolerance, 0)
	setInt("max_substeps", &c.MaxSubsteps, 1)
	setFloat("physics_dt", &c.Dt, 0)
	setFloat("contact_margin", &c.ContactMargin, 0)
	setFloat("overlap_tolerance", &c.OverlapTolerance, 0)
	setBool("jitter_z", &c.JitterZ)
	setFloat("division_jitter", &c.DivisionJitter, 0)
	setBool("alternate_divisions", &c.AlternateDivisions)
	setFloat("velocity_retention", &c.VelocityRetention, 0)
	setFloat("propulsion", &c.Propulsion, -1e9)
	setBool("compute_neighbours", &c.ComputeNeighbours)
	setInt("workers", &c.Workers, 1)
	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		}
	}
	if c.VelocityRetention > 1 {
		c.VelocityRetention = 1
	}
	return c
}

func (c Config) sanitized() Config {
	d := DefaultConfig()
	if c.MaxCells <= 0 {
		c.MaxCells = d.MaxCells
	}
	if c.MaxContacts <= 0 {
		c.MaxContacts = d.MaxContacts
	}
	if c.MaxPlanes < 0 {
		c.MaxPlanes = 0
	}
	if c.MaxSpheres < 0 {
		c.MaxSpheres = 0
	}
	if c.MaxSquares <= 0 {
		c.MaxSquares = d.MaxSquares
	}
	if c.GridSpacing <= 0 {
		c.GridSpacing = d.GridSpacing
	}
	if c.Mobility <= 0 {
		c.Mobility = d.Mobility
	}
	if c.RegularizationStiffness <= 0 {
		c.RegularizationStiffness = d.RegularizationStiffness
	}
	if c.MaxSubsteps <= 0 {
		c.MaxSubsteps = d.MaxSubsteps
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.VelocityRetention < 0 {
		c.VelocityRetention = 0
	}
	if c.VelocityRetention > 1 {
		c.VelocityRetention = 1
	}
	return c
}
