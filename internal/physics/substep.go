package physics

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Phase is a state of the sub-step controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePredictInit
	PhasePredict
	PhaseFindContacts
	PhaseCollectBackContacts
	PhaseBuildMatrix
	PhaseSolve
	PhaseApplyImpulse
	PhaseFinalize
)

var phaseNames = [...]string{
	"idle", "predict-init", "predict", "find-contacts", "collect-back-contacts",
	"build-matrix", "solve", "apply-impulse", "finalize",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Controller schedules the predictor/corrector loop. One Begin call covers
// ceil(dt/cfg.Dt) ticks; Advance runs a single phase and reports whether any
// work remains.
type Controller struct {
	e *Engine

	phase     Phase
	tickDt    float64
	ticksLeft int
	iter      int
	solves    int
	newPairs  int
	overlap   float64

	stats StepStats
}

func newController(e *Engine) *Controller {
	return &Controller{e: e}
}

// Controller exposes the engine's scheduler for callers that want to drive
// phases one at a time.
func (e *Engine) Controller() *Controller { return e.ctrl }

// Phase returns the phase Advance will run next.
func (c *Controller) Phase() Phase { return c.phase }

// Done reports whether every tick of the last Begin has been consumed.
func (c *Controller) Done() bool { return c.phase == PhaseIdle }

// Stats returns the counters gathered since the last Begin.
func (c *Controller) Stats() StepStats { return c.stats }

func (c *Controller) reset() {
	c.phase = PhaseIdle
	c.ticksLeft = 0
	c.stats = StepStats{}
}

// Begin schedules dt worth of ticks.
func (c *Controller) Begin(dt float64) {
	c.stats = StepStats{}
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	n := 1
	if sub := c.e.cfg.Dt; sub > 0 && dt > sub {
		n = int(math.Ceil(dt/sub - 1e-9))
	}
	c.tickDt = dt / float64(n)
	c.ticksLeft = n
	c.phase = PhasePredictInit
}

// Advance runs the current phase and moves to the next one.
func (c *Controller) Advance() bool {
	e := c.e
	switch c.phase {
	case PhaseIdle:
		return false
	case PhasePredictInit:
		c.predictInit()
		c.phase = PhasePredict
	case PhasePredict:
		e.predict()
		c.stats.SubIterations++
		c.phase = PhaseFindContacts
	case PhaseFindContacts:
		c.newPairs = e.findContacts()
		c.phase = PhaseCollectBackContacts
	case PhaseCollectBackContacts:
		e.collectTos()
		c.overlap = e.maxWeightedOverlap()
		c.stats.MaxOverlap = c.overlap
		if c.keepIterating() {
			c.phase = PhaseBuildMatrix
		} else {
			c.phase = PhaseFinalize
		}
		c.iter++
	case PhaseBuildMatrix:
		e.buildMatrix()
		push := 0.0
		if c.solves == 0 {
			push = e.cfg.Propulsion * c.tickDt
		}
		e.buildRHS(push)
		c.phase = PhaseSolve
	case PhaseSolve:
		st := e.solve()
		c.solves++
		c.stats.Solves++
		c.stats.CGIterations += st.Iterations
		c.stats.Residual = st.Residual
		if !st.Converged {
			e.events.UnconvergedSolves++
			e.logger.Debug("cg not converged",
				slog.Int("iterations", st.Iterations),
				slog.Float64("residual", st.Residual),
				slog.Int("cells", e.store.Len()))
		}
		c.phase = PhaseApplyImpulse
	case PhaseApplyImpulse:
		e.applyImpulse()
		c.phase = PhasePredict
	case PhaseFinalize:
		e.finalize()
		c.stats.Ticks++
		c.ticksLeft--
		if c.ticksLeft > 0 {
			c.phase = PhasePredictInit
		} else {
			c.phase = PhaseIdle
		}
	}
	return c.phase != PhaseIdle
}

// keepIterating decides, after contacts were regenerated, whether another
// solve is needed.
func (c *Controller) keepIterating() bool {
	if c.solves >= c.e.cfg.MaxSubsteps {
		return false
	}
	if c.e.store.Len() == 0 {
		return false
	}
	return c.iter == 0 || c.newPairs > 0 || c.overlap > c.e.cfg.OverlapTolerance
}

func (c *Controller) predictInit() {
	e := c.e
	c.iter = 0
	c.solves = 0
	e.initTick(c.tickDt)
}

// initTick seeds the accumulators for one tick, rebuilds the grid from the
// committed centers and forgets last tick's contacts.
func (e *Engine) initTick(dt float64) {
	s := e.store
	keep := e.cfg.VelocityRetention
	dispatch(e.cfg.Workers, s.Len(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s.targetDlens[i] = dt * s.growthRates[i] * s.lens[i]
			s.dlens[i] = s.targetDlens[i]
			s.dcenters[i] = s.dcenters[i].Mul(keep)
			s.dangs[i] = s.dangs[i].Mul(keep)
		}
	})
	extent := reduceMax(e.cfg.Workers, s.Len(), func(lo, hi int) float64 {
		best := 0.0
		for i := lo; i < hi; i++ {
			best = math.Max(best, s.lens[i]+s.dlens[i]+2*s.rads[i])
		}
		return best
	})
	w := e.grid.Rebuild(s.centers[:s.Len()], e.cfg.GridSpacing, e.cfg.MaxSquares, e.cfg.Workers)
	e.events.GridWidenings += w
	if extent > e.grid.Spacing {
		e.events.GridUndersized++
	}
	e.cts.clear(s.Len())
}

// predict extrapolates each pose by its accumulated displacement.
func (e *Engine) predict() {
	s := e.store
	dispatch(e.cfg.Workers, s.Len(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			s.predCenters[i] = s.centers[i].Add(s.dcenters[i])
			s.predDirs[i] = rotateDir(s.dirs[i], s.dangs[i])
			s.predLens[i] = math.Max(0, s.lens[i]+s.dlens[i])
		}
	})
}

// finalize commits the accumulated displacement into the stored pose and
// re-derives area and volume.
func (e *Engine) finalize() {
	s := e.store
	dispatch(e.cfg.Workers, s.Len(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if !finite3(s.dcenters[i]) || !finite3(s.dangs[i]) || math.IsNaN(s.dlens[i]) {
				s.dcenters[i] = mgl64.Vec3{}
				s.dangs[i] = mgl64.Vec3{}
				s.dlens[i] = 0
			}
			s.centers[i] = s.centers[i].Add(s.dcenters[i])
			s.dirs[i] = rotateDir(s.dirs[i], s.dangs[i])
			s.lens[i] = math.Max(0, s.lens[i]+s.dlens[i])
			s.oldVols[i] = s.vols[i]
			s.calcGeom(i)
		}
	})
	if e.cfg.ComputeNeighbours {
		e.updateNeighbourDirs()
	}
}
