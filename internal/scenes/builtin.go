package scenes

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"bactosim/internal/regulation"
	"bactosim/internal/sim"
	"bactosim/pkg/core"
)

func rod(x, y, theta float64) sim.CellSpec {
	return sim.CellSpec{
		Pos:    mgl64.Vec3{x, y, 0},
		Dir:    mgl64.Vec3{math.Cos(theta), math.Sin(theta), 0},
		Length: 2,
		Radius: 0.5,
	}
}

func flat(cfg *sim.Config) { cfg.Physics.JitterZ = false }

func init() {
	register(Scene{
		Name:        "growth",
		Description: "single founder growing into a flat colony with a reporter species",
		Configure:   flat,
		Options: func(seed int64) []sim.Option {
			expr := &regulation.Expression{
				Production:  map[int][]float64{0: {1}},
				Degradation: []float64{0.1},
			}
			return []sim.Option{
				sim.WithRegulator(regulation.NewTargetLength(seed)),
				sim.WithIntegrator(regulation.NewEuler(expr)),
			}
		},
		Setup: func(s *sim.Simulator, _ *core.RNG) error {
			_, err := s.AddCell(rod(0, 0, 0))
			return err
		},
	})

	register(Scene{
		Name:        "planes",
		Description: "colony growing in a slab between two planes",
		Configure: func(cfg *sim.Config) {
			cfg.Physics.JitterZ = true
			cfg.Physics.DivisionJitter = 0.05
		},
		Options: func(seed int64) []sim.Option {
			return []sim.Option{sim.WithRegulator(regulation.NewTargetLength(seed))}
		},
		Setup: func(s *sim.Simulator, _ *core.RNG) error {
			e := s.Engine()
			if err := e.AddPlane(mgl64.Vec3{0, 0, -0.5}, mgl64.Vec3{0, 0, 1}, 1); err != nil {
				return err
			}
			if err := e.AddPlane(mgl64.Vec3{0, 0, 1.5}, mgl64.Vec3{0, 0, -1}, 1); err != nil {
				return err
			}
			_, err := s.AddCell(rod(0, 0, 0))
			return err
		},
	})

	register(Scene{
		Name:        "sphere",
		Description: "colony confined inside a sphere",
		Configure:   flat,
		Options: func(seed int64) []sim.Option {
			return []sim.Option{sim.WithRegulator(regulation.NewTargetLength(seed))}
		},
		Setup: func(s *sim.Simulator, _ *core.RNG) error {
			if err := s.Engine().AddSphere(mgl64.Vec3{}, 12, 1, -1); err != nil {
				return err
			}
			_, err := s.AddCell(rod(0, 0, 0))
			return err
		},
	})

	register(Scene{
		Name:        "adhesion",
		Description: "two sticky lineages and one non-sticky lineage",
		Configure:   flat,
		Options: func(seed int64) []sim.Option {
			return []sim.Option{sim.WithRegulator(&adhesive{
				TargetLength: regulation.NewTargetLength(seed),
				strength:     map[int]float64{0: 0.2, 1: 0.2, 2: 0},
			})}
		},
		Setup: func(s *sim.Simulator, _ *core.RNG) error {
			for i, x := range []float64{-8, 0, 8} {
				spec := rod(x, 0, math.Pi/2)
				spec.CellType = i
				if _, err := s.AddCell(spec); err != nil {
					return err
				}
			}
			return nil
		},
	})

	register(Scene{
		Name:        "spp",
		Description: "non-growing self-propelled rods",
		Configure: func(cfg *sim.Config) {
			flat(cfg)
			cfg.Physics.Propulsion = 1
			cfg.Physics.ComputeNeighbours = true
		},
		Setup: func(s *sim.Simulator, rng *core.RNG) error {
			for i := 0; i < 120; i++ {
				spec := rod(rng.Uniform(-20, 20), rng.Uniform(-20, 20), rng.Uniform(0, 2*math.Pi))
				spec.Length = 3
				spec.CellType = i % 2
				if _, err := s.AddCell(spec); err != nil {
					return err
				}
			}
			return nil
		},
	})

	register(Scene{
		Name:        "conjugation",
		Description: "donors spreading a plasmid into recipients by contact",
		Configure: func(cfg *sim.Config) {
			flat(cfg)
			cfg.Physics.ComputeNeighbours = true
		},
		Options: func(seed int64) []sim.Option {
			return []sim.Option{sim.WithRegulator(regulation.NewConjugation(seed))}
		},
		Setup: func(s *sim.Simulator, rng *core.RNG) error {
			for i := 0; i < 10; i++ {
				spec := rod(rng.Uniform(-6, 6), rng.Uniform(-6, 6), rng.Uniform(0, math.Pi))
				if i < 2 {
					spec.CellType = 1
				}
				if _, err := s.AddCell(spec); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

// adhesive sets a per-type adhesion strength on top of size-triggered division.
type adhesive struct {
	*regulation.TargetLength
	strength map[int]float64
}

func (a *adhesive) Init(c *sim.CellState) {
	a.TargetLength.Init(c)
	c.Adhesion = a.strength[c.CellType]
}
