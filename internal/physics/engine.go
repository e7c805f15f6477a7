package physics

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"bactosim/pkg/core"
)

// Events counts soft-degradation points. Every counter only grows until Reset.
type Events struct {
	DroppedCells        int
	DroppedContacts     int
	DroppedPlanes       int
	DroppedSpheres      int
	DroppedBackContacts int
	UnconvergedSolves   int
	NonFiniteSolves     int
	GridWidenings       int
	GridUndersized      int
}

// StepStats summarises one Step call.
type StepStats struct {
	Ticks         int
	SubIterations int
	Solves        int
	CGIterations  int
	Residual      float64
	Contacts      int
	MaxOverlap    float64
	Elapsed       time.Duration
}

// CellGeom is the read-only derived geometry of one cell.
type CellGeom struct {
	Center          mgl64.Vec3
	Dir             mgl64.Vec3
	Length          float64
	Radius          float64
	Ends            [2]mgl64.Vec3
	Area            float64
	Volume          float64
	OldVolume       float64
	AvgNeighbourDir mgl64.Vec3
}

// Engine is the capsule mechanics engine: a cell store, broad and narrow
// phase contact detection and a regularized contact solve driven by a
// predictor/corrector controller.
type Engine struct {
	cfg Config

	store  *CellStore
	grid   *Grid
	cts    *contactList
	solver *solver
	ctrl   *Controller

	planes  []Plane
	spheres []Sphere

	adhesion AdhesionBlend
	logger   *slog.Logger
	rng      *core.RNG

	events Events
	warned map[string]bool
	frame  int
	last   StepStats
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for capacity warnings and progress lines.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithAdhesionBlend replaces the default MinAdhesion rule.
func WithAdhesionBlend(fn AdhesionBlend) Option {
	return func(e *Engine) {
		if fn != nil {
			e.adhesion = fn
		}
	}
}

// New allocates an engine with every buffer sized from cfg.
func New(cfg Config, opts ...Option) *Engine {
	cfg = cfg.sanitized()
	e := &Engine{
		cfg:      cfg,
		store:    NewCellStore(cfg.MaxCells),
		grid:     NewGrid(cfg.MaxCells, cfg.GridSpacing),
		cts:      newContactList(cfg.MaxCells, cfg.MaxContacts),
		solver:   newSolver(cfg.MaxCells),
		adhesion: MinAdhesion,
		logger:   slog.Default().With(slog.String("component", "physics")),
		rng:      core.NewRNG(cfg.Seed),
		warned:   make(map[string]bool),
	}
	e.ctrl = newController(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the sanitized configuration in use.
func (e *Engine) Config() Config { return e.cfg }

// Len returns the number of live cells.
func (e *Engine) Len() int { return e.store.Len() }

// Capacity returns MaxCells.
func (e *Engine) Capacity() int { return e.store.Capacity() }

// Events returns a copy of the event counters.
func (e *Engine) Events() Events { return e.events }

// LastStep returns the statistics of the most recent Step.
func (e *Engine) LastStep() StepStats { return e.last }

// Frame returns the number of completed Step calls.
func (e *Engine) Frame() int { return e.frame }

// Reset drops every cell and static primitive and clears all counters.
func (e *Engine) Reset() {
	e.store.reset()
	e.planes = e.planes[:0]
	e.spheres = e.spheres[:0]
	e.events = Events{}
	e.frame = 0
	e.last = StepStats{}
	e.rng.Reseed(e.cfg.Seed)
	e.ctrl.reset()
	clear(e.warned)
}

// AddCell appends a cell and returns its index. When the store is full the
// call is a no-op returning ErrCapacity.
func (e *Engine) AddCell(p Pose) (int, error) {
	i, err := e.store.Add(p)
	if err != nil {
		e.events.DroppedCells++
		e.warnCapacity("cell", e.store.Capacity())
		return -1, fmt.Errorf("add cell: %w", err)
	}
	return i, nil
}

// Pose returns the stored pose of cell i.
func (e *Engine) Pose(i int) (Pose, error) { return e.store.Get(i) }

// SetPose overwrites the pose of cell i.
func (e *Engine) SetPose(i int, p Pose) error { return e.store.Set(i, p) }

// SetGrowthRate sets the relative length growth rate of cell i.
func (e *Engine) SetGrowthRate(i int, rate float64) error {
	if i < 0 || i >= e.store.Len() {
		return fmt.Errorf("set growth rate %d: %w", i, ErrBadIndex)
	}
	e.store.growthRates[i] = rate
	return nil
}

// SetAdhesion sets the adhesion strength of cell i.
func (e *Engine) SetAdhesion(i int, a float64) error {
	if i < 0 || i >= e.store.Len() {
		return fmt.Errorf("set adhesion %d: %w", i, ErrBadIndex)
	}
	e.store.adhesion[i] = a
	return nil
}

// Motion returns the last tick's displacement and rotation vector of cell i.
func (e *Engine) Motion(i int) (mgl64.Vec3, mgl64.Vec3, error) {
	if i < 0 || i >= e.store.Len() {
		return mgl64.Vec3{}, mgl64.Vec3{}, fmt.Errorf("motion %d: %w", i, ErrBadIndex)
	}
	return e.store.dcenters[i], e.store.dangs[i], nil
}

// SetMotion overwrites the velocity accumulators of cell i.
func (e *Engine) SetMotion(i int, dcenter, dang mgl64.Vec3) error {
	if i < 0 || i >= e.store.Len() {
		return fmt.Errorf("set motion %d: %w", i, ErrBadIndex)
	}
	e.store.dcenters[i] = dcenter
	e.store.dangs[i] = dang
	return nil
}

// Geometry returns the derived geometry of cell i.
func (e *Engine) Geometry(i int) (CellGeom, error) {
	s := e.store
	if i < 0 || i >= s.Len() {
		return CellGeom{}, fmt.Errorf("geometry %d: %w", i, ErrBadIndex)
	}
	a, b := capsuleEnds(s.centers[i], s.dirs[i], s.lens[i])
	return CellGeom{
		Center:          s.centers[i],
		Dir:             s.dirs[i],
		Length:          s.lens[i],
		Radius:          s.rads[i],
		Ends:            [2]mgl64.Vec3{a, b},
		Area:            s.areas[i],
		Volume:          s.vols[i],
		OldVolume:       s.oldVols[i],
		AvgNeighbourDir: s.avgNeighbourDirs[i],
	}, nil
}

// Contacts returns a copy of the contacts owned by cell i from the last
// sub-iteration.
func (e *Engine) Contacts(i int) []Contact {
	if i < 0 || i >= e.store.Len() {
		return nil
	}
	return append([]Contact(nil), e.cts.of(i)...)
}

// ContactCount is the number of stored contacts over all cells.
func (e *Engine) ContactCount() int { return e.cts.total(e.store.Len()) }

// Neighbours returns the indices of cells touching cell i (within the
// contact margin) in the last sub-iteration.
func (e *Engine) Neighbours(i int) []int {
	if i < 0 || i >= e.store.Len() {
		return nil
	}
	var out []int
	for _, ct := range e.cts.of(i) {
		if ct.To >= 0 && ct.Dist < e.cfg.ContactMargin {
			out = append(out, ct.To)
		}
	}
	base := i * e.cts.backMax
	for k := 0; k < e.cts.nTos[i]; k++ {
		ct := e.cts.slots[e.cts.tos[base+k]]
		if ct.Dist < e.cfg.ContactMargin {
			out = append(out, ct.From)
		}
	}
	return out
}

// Step advances the engine by dt, running one or more internal ticks. Each
// tick runs to its convergence or iteration-cap decision.
func (e *Engine) Step(dt float64) StepStats {
	start := time.Now()
	clear(e.warned)
	e.ctrl.Begin(dt)
	for e.ctrl.Advance() {
	}
	st := e.ctrl.stats
	st.Contacts = e.ContactCount()
	st.Elapsed = time.Since(start)
	e.last = st
	e.frame++
	if e.frame%10 == 0 {
		e.logger.Info("step",
			slog.Int("frame", e.frame),
			slog.Int("cells", e.store.Len()),
			slog.Int("contacts", st.Contacts),
			slog.Int("cg_iterations", st.CGIterations),
			slog.Float64("residual", st.Residual),
			slog.Duration("elapsed", st.Elapsed))
	}
	return st
}

func (e *Engine) warnCapacity(kind string, n int) {
	if e.warned[kind] {
		return
	}
	e.warned[kind] = true
	e.logger.Warn("capacity exhausted",
		slog.String("kind", kind),
		slog.Int("capacity", n),
		slog.Int("frame", e.frame))
}
