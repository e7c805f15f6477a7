package physics

import (
	"bactosim/internal/core"
)

// Parameters reports the engine configuration grouped for display.
func (e *Engine) Parameters() core.ParameterSnapshot {
	c := e.cfg
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{
			Name: "Capacity",
			Params: []core.Parameter{
				core.IntParam("max_cells", "Max cells", c.MaxCells),
				core.IntParam("max_contacts", "Max contacts per cell", c.MaxContacts),
				core.IntParam("max_planes", "Max planes", c.MaxPlanes),
				core.IntParam("max_spheres", "Max spheres", c.MaxSpheres),
				core.IntParam("max_squares", "Max grid squares", c.MaxSquares),
				core.FloatParam("grid_spacing", "Grid spacing", c.GridSpacing),
			},
		},
		{
			Name: "Solver",
			Params: []core.Parameter{
				core.FloatParam("mobility", "Mobility", c.Mobility),
				core.FloatParam("regularization_stiffness", "Regularization stiffness", c.RegularizationStiffness),
				core.FloatParam("cgs_tol", "CG tolerance", c.CGSTolerance),
				core.IntParam("max_substeps", "Max substeps", c.MaxSubsteps),
				core.FloatParam("physics_dt", "Internal dt", c.Dt),
				core.FloatParam("contact_margin", "Contact margin", c.ContactMargin),
				core.FloatParam("overlap_tolerance", "Overlap tolerance", c.OverlapTolerance),
				core.FloatParam("velocity_retention", "Velocity retention", c.VelocityRetention),
				core.FloatParam("propulsion", "Propulsion", c.Propulsion),
			},
		},
		{
			Name: "Division",
			Params: []core.Parameter{
				core.BoolParam("jitter_z", "Jitter z", c.JitterZ),
				core.FloatParam("division_jitter", "Division jitter", c.DivisionJitter),
				core.BoolParam("alternate_divisions", "Alternate divisions", c.AlternateDivisions),
				core.Int64Param("seed", "Seed", c.Seed),
			},
		},
	}}
}

// SetFloatParameter updates a runtime-tunable float. Capacity keys cannot be
// changed after construction.
func (e *Engine) SetFloatParameter(key string, value float64) bool {
	c := &e.cfg
	switch key {
	case "mobility":
		if value <= 0 {
			return false
		}
		c.Mobility = value
	case "regularization_stiffness":
		if value <= 0 {
			return false
		}
		c.RegularizationStiffness = value
	case "cgs_tol":
		if value < 0 {
			return false
		}
		c.CGSTolerance = value
	case "physics_dt":
		if value < 0 {
			return false
		}
		c.Dt = value
	case "contact_margin":
		if value < 0 {
			return false
		}
		c.ContactMargin = value
	case "overlap_tolerance":
		if value < 0 {
			return false
		}
		c.OverlapTolerance = value
	case "velocity_retention":
		c.VelocityRetention = clamp(value, 0, 1)
	case "propulsion":
		c.Propulsion = value
	case "division_jitter":
		if value < 0 {
			return false
		}
		c.DivisionJitter = value
	default:
		return false
	}
	return true
}

// SetIntParameter updates a runtime-tunable integer.
func (e *Engine) SetIntParameter(key string, value int) bool {
	switch key {
	case "max_substeps":
		if value < 1 {
			return false
		}
		e.cfg.MaxSubsteps = value
	case "workers":
		if value < 1 {
			return false
		}
		e.cfg.Workers = value
	default:
		return false
	}
	return true
}
