package sim

// Regulator decides growth and division. Update runs at the start of every
// step, before mechanics, and may set GrowthRate, Adhesion and DivideFlag.
type Regulator interface {
	Init(c *CellState)
	Update(cells []*CellState)
	Divide(parent, d1, d2 *CellState)
}

// SignalSolver transports diffusible signals. It fills CellState.Signals.
type SignalSolver interface {
	Step(dt float64, cells []*CellState) error
}

// Integrator advances intracellular species.
type Integrator interface {
	Step(dt float64, cells []*CellState)
}

// SnapshotSink receives periodic snapshots.
type SnapshotSink interface {
	WriteSnapshot(step int, snap *Snapshot) error
}

type nopRegulator struct{}

func (nopRegulator) Init(*CellState)           {}
func (nopRegulator) Update([]*CellState)       {}
func (nopRegulator) Divide(_, _, _ *CellState) {}
