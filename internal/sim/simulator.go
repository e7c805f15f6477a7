package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"bactosim/internal/physics"
)

// ErrUnknownCell reports an id that is not alive.
var ErrUnknownCell = errors.New("sim: unknown cell id")

// Report summarises one Step.
type Report struct {
	Step             int
	Cells            int
	Divisions        int
	RefusedDivisions int
	Physics          physics.StepStats
}

// Simulator owns the engine, the id and index maps and the per-cell records.
// Ids are never reused; indices are dense and recycled on division.
type Simulator struct {
	cfg    Config
	engine *physics.Engine

	cells   map[int]*CellState
	idToIdx map[int]int
	idxToID []int
	lineage map[int]int
	nextID  int
	stepNum int

	reg     Regulator
	signals SignalSolver
	integ   Integrator
	sink    SnapshotSink

	engineOpts []physics.Option
	base       *slog.Logger
	logger     *slog.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRegulator installs the growth and division policy.
func WithRegulator(r Regulator) Option {
	return func(s *Simulator) {
		if r != nil {
			s.reg = r
		}
	}
}

// WithSignalSolver installs a signal transport solver.
func WithSignalSolver(ss SignalSolver) Option {
	return func(s *Simulator) { s.signals = ss }
}

// WithIntegrator installs an intracellular species integrator.
func WithIntegrator(in Integrator) Option {
	return func(s *Simulator) { s.integ = in }
}

// WithSnapshotSink receives a snapshot every Config.SnapshotEvery steps.
func WithSnapshotSink(sink SnapshotSink) Option {
	return func(s *Simulator) { s.sink = sink }
}

// WithEngineOptions forwards options to physics.New.
func WithEngineOptions(opts ...physics.Option) Option {
	return func(s *Simulator) { s.engineOpts = append(s.engineOpts, opts...) }
}

// WithLogger sets the logger both the simulator and its engine derive from.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.base = l
		}
	}
}

// New constructs a simulator with an empty population.
func New(cfg Config, opts ...Option) *Simulator {
	if cfg.Dt <= 0 {
		cfg.Dt = DefaultConfig().Dt
	}
	cfg.Physics.Seed = cfg.Seed
	s := &Simulator{
		cfg:  cfg,
		reg:  nopRegulator{},
		base: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.base.With(slog.String("component", "sim"))
	engineOpts := append([]physics.Option{
		physics.WithLogger(s.base.With(slog.String("component", "physics"))),
	}, s.engineOpts...)
	s.engine = physics.New(cfg.Physics, engineOpts...)
	s.Reset()
	return s
}

// Config returns the simulator configuration.
func (s *Simulator) Config() Config { return s.cfg }

// Engine exposes the physics engine for static scene setup and inspection.
func (s *Simulator) Engine() *physics.Engine { return s.engine }

// StepNum returns the number of completed steps.
func (s *Simulator) StepNum() int { return s.stepNum }

// Len returns the number of live cells.
func (s *Simulator) Len() int { return len(s.cells) }

// Reset clears the population, counters and maps. Static geometry is kept.
func (s *Simulator) Reset() {
	planes, spheres := s.engine.Planes(), s.engine.Spheres()
	s.engine.Reset()
	for _, p := range planes {
		_ = s.engine.AddPlane(p.Point, p.Normal, p.Stiffness)
	}
	for _, sp := range spheres {
		_ = s.engine.AddSphere(sp.Center, sp.Radius, sp.Stiffness, sp.NormalSign)
	}
	s.cells = make(map[int]*CellState)
	s.idToIdx = make(map[int]int)
	s.idxToID = s.idxToID[:0]
	s.lineage = make(map[int]int)
	s.nextID = 0
	s.stepNum = 0
}

// AddCell creates a cell and returns its id. When the engine is full the
// call does nothing and returns an error wrapping physics.ErrCapacity.
func (s *Simulator) AddCell(spec CellSpec) (int, error) {
	idx, err := s.engine.AddCell(physics.Pose{
		Center:     spec.Pos,
		Dir:        spec.Dir,
		Length:     spec.Length,
		Radius:     spec.Radius,
		GrowthRate: spec.GrowthRate,
		Adhesion:   spec.Adhesion,
	})
	if err != nil {
		return -1, err
	}
	id := s.nextID
	s.nextID++
	c := &CellState{
		ID:         id,
		Index:      idx,
		CellType:   spec.CellType,
		GrowthRate: spec.GrowthRate,
		Adhesion:   spec.Adhesion,
	}
	s.bind(id, idx, c)
	s.refresh(c)
	c.OldVolume = c.Volume
	s.reg.Init(c)
	s.push(c)
	return id, nil
}

func (s *Simulator) bind(id, idx int, c *CellState) {
	s.cells[id] = c
	s.idToIdx[id] = idx
	if idx == len(s.idxToID) {
		s.idxToID = append(s.idxToID, id)
	} else {
		s.idxToID[idx] = id
	}
	c.Index = idx
}

// Cell returns the record of a live cell.
func (s *Simulator) Cell(id int) (*CellState, bool) {
	c, ok := s.cells[id]
	return c, ok
}

// Cells returns the live records ordered by index.
func (s *Simulator) Cells() []*CellState {
	out := make([]*CellState, 0, len(s.idxToID))
	for _, id := range s.idxToID {
		out = append(out, s.cells[id])
	}
	return out
}

// IDAt returns the id stored at a dense index.
func (s *Simulator) IDAt(idx int) (int, bool) {
	if idx < 0 || idx >= len(s.idxToID) {
		return -1, false
	}
	return s.idxToID[idx], true
}

// IndexOf returns the dense index of a live id.
func (s *Simulator) IndexOf(id int) (int, bool) {
	idx, ok := s.idToIdx[id]
	return idx, ok
}

// Lineage returns a copy of the daughter to parent id map.
func (s *Simulator) Lineage() map[int]int {
	out := make(map[int]int, len(s.lineage))
	for k, v := range s.lineage {
		out[k] = v
	}
	return out
}

// MoveCell translates a live cell.
func (s *Simulator) MoveCell(id int, delta mgl64.Vec3) error {
	c, ok := s.cells[id]
	if !ok {
		return fmt.Errorf("move %d: %w", id, ErrUnknownCell)
	}
	p, err := s.engine.Pose(c.Index)
	if err != nil {
		return err
	}
	p.Center = p.Center.Add(delta)
	if err := s.engine.SetPose(c.Index, p); err != nil {
		return err
	}
	s.refresh(c)
	return nil
}

// Divide splits a live cell and returns the daughter ids. The first daughter
// takes over the parent's index.
func (s *Simulator) Divide(id int) (int, int, error) {
	parent, ok := s.cells[id]
	if !ok {
		return -1, -1, fmt.Errorf("divide %d: %w", id, ErrUnknownCell)
	}
	f := parent.DivisionFractions
	i1, i2, err := s.engine.Divide(parent.Index, f[0], f[1])
	if err != nil {
		return -1, -1, err
	}
	d1 := parent.clone()
	d2 := parent.clone()
	d1.ID, d2.ID = s.nextID, s.nextID+1
	s.nextID += 2
	for _, d := range []*CellState{d1, d2} {
		d.Age = 0
		d.DivideFlag = false
		d.Vel = parent.Vel
		d.StrainRate = 0
	}
	delete(s.cells, id)
	delete(s.idToIdx, id)
	s.bind(d1.ID, i1, d1)
	s.bind(d2.ID, i2, d2)
	s.refresh(d1)
	s.refresh(d2)
	s.lineage[d1.ID] = id
	s.lineage[d2.ID] = id
	s.reg.Divide(parent, d1, d2)
	s.push(d1)
	s.push(d2)
	return d1.ID, d2.ID, nil
}

// Step runs regulation, signalling, species integration, mechanics and the
// flagged divisions, in that order. Step t+1 always sees the index space left
// by step t's divisions.
func (s *Simulator) Step() (Report, error) {
	cells := s.Cells()
	s.reg.Update(cells)
	if s.signals != nil {
		if err := s.signals.Step(s.cfg.Dt, cells); err != nil {
			return Report{}, fmt.Errorf("signals: %w", err)
		}
	}
	if s.integ != nil {
		s.integ.Step(s.cfg.Dt, cells)
	}
	for _, c := range cells {
		s.push(c)
	}

	before := make([]mgl64.Vec3, len(cells))
	lens := make([]float64, len(cells))
	for k, c := range cells {
		before[k] = c.Pos
		lens[k] = c.Length
	}
	stats := s.engine.Step(s.cfg.Dt)
	for k, c := range cells {
		s.refresh(c)
		c.Vel = c.Pos.Sub(before[k])
		if lens[k] > 0 {
			c.StrainRate = (c.Length - lens[k]) / lens[k]
		}
		// Mean length gained per step over the cell's lifetime.
		age := float64(c.Age)
		c.EffGrowth = (c.EffGrowth*age + c.StrainRate*lens[k]) / (age + 1)
		c.Age++
		c.Neighbours = s.neighbourIDs(c.Index)
	}

	rep := Report{Physics: stats}
	var flagged []int
	for _, c := range cells {
		if c.DivideFlag {
			flagged = append(flagged, c.ID)
		}
	}
	slices.Sort(flagged)
	for _, id := range flagged {
		if _, _, err := s.Divide(id); err != nil {
			if errors.Is(err, physics.ErrCapacity) {
				rep.RefusedDivisions++
				continue
			}
			return rep, err
		}
		rep.Divisions++
	}
	if rep.RefusedDivisions > 0 {
		s.logger.Warn("divisions refused",
			slog.Int("step", s.stepNum),
			slog.Int("refused", rep.RefusedDivisions),
			slog.Int("cells", len(s.cells)))
	}

	s.stepNum++
	rep.Step = s.stepNum
	rep.Cells = len(s.cells)
	if s.sink != nil && s.cfg.SnapshotEvery > 0 && s.stepNum%s.cfg.SnapshotEvery == 0 {
		snap := s.Snapshot()
		if err := s.sink.WriteSnapshot(s.stepNum, &snap); err != nil {
			return rep, fmt.Errorf("snapshot step %d: %w", s.stepNum, err)
		}
		s.logger.Debug("snapshot written", slog.Int("step", s.stepNum), slog.Int("cells", rep.Cells))
	}
	return rep, nil
}

// push writes the regulator-controlled fields into the engine.
func (s *Simulator) push(c *CellState) {
	_ = s.engine.SetGrowthRate(c.Index, c.GrowthRate)
	_ = s.engine.SetAdhesion(c.Index, c.Adhesion)
}

// refresh copies engine geometry into the record.
func (s *Simulator) refresh(c *CellState) {
	g, err := s.engine.Geometry(c.Index)
	if err != nil {
		return
	}
	c.Pos = g.Center
	c.Dir = g.Dir
	c.Length = g.Length
	c.Radius = g.Radius
	c.Ends = g.Ends
	c.Area = g.Area
	c.Volume = g.Volume
	c.OldVolume = g.OldVolume
	c.AvgNeighbourDir = g.AvgNeighbourDir
}

func (s *Simulator) neighbourIDs(idx int) []int {
	if !s.cfg.Physics.ComputeNeighbours {
		return nil
	}
	var ids []int
	for _, j := range s.engine.Neighbours(idx) {
		if j < len(s.idxToID) {
			ids = append(ids, s.idxToID[j])
		}
	}
	slices.Sort(ids)
	return ids
}
