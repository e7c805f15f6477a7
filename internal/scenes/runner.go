package scenes

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"strconv"

	"bactosim/internal/core"
	"bactosim/internal/render"
	"bactosim/internal/sim"
)

// Runner drives a scene behind the core.Sim contract: Step advances one
// biophysical step and Cells returns a top-down raster of the colony.
type Runner struct {
	scene  Scene
	cfg    sim.Config
	opts   []sim.Option
	sim    *sim.Simulator
	raster *core.ByteGrid
	view   render.View
	// Zoom fixes the view scale in pixels per unit; zero refits every frame.
	Zoom float64

	dirty  bool
	capBuf []render.Capsule
	last   sim.Report
	err    error
	logger *slog.Logger
}

// NewRunner builds a runner with a w*h raster.
func NewRunner(sc Scene, cfg sim.Config, w, h int, opts ...sim.Option) (*Runner, error) {
	r := &Runner{
		scene:  sc,
		cfg:    sc.configure(cfg),
		opts:   opts,
		raster: core.NewByteGrid(w, h),
		logger: slog.Default().With(slog.String("component", "scene"), slog.String("scene", sc.Name)),
	}
	if err := r.rebuild(cfg.Seed); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) rebuild(seed int64) error {
	cfg := r.cfg
	cfg.Seed = seed
	s, err := r.scene.build(cfg, r.opts...)
	if err != nil {
		return err
	}
	r.sim = s
	r.last = sim.Report{}
	r.err = nil
	r.dirty = true
	return nil
}

// Name implements core.Sim.
func (r *Runner) Name() string { return r.scene.Name }

// Size implements core.Sim.
func (r *Runner) Size() core.Size { return core.Size{W: r.raster.W, H: r.raster.H} }

// Reset implements core.Sim. Tunables changed through the setters survive.
func (r *Runner) Reset(seed int64) {
	r.cfg = r.sim.Config()
	r.cfg.Physics = r.sim.Engine().Config()
	if err := r.rebuild(seed); err != nil {
		r.err = err
		r.logger.Error("reset failed", slog.Int64("seed", seed), slog.Any("err", err))
	}
}

// Step implements core.Sim. Errors stop the run and are reported by Err.
func (r *Runner) Step() {
	if r.err != nil {
		return
	}
	rep, err := r.sim.Step()
	r.last = rep
	r.dirty = true
	if err != nil {
		r.err = err
		r.logger.Error("step failed", slog.Int("step", rep.Step), slog.Any("err", err))
	}
}

// Cells implements core.Sim.
func (r *Runner) Cells() []uint8 {
	if r.dirty {
		r.paint()
	}
	return r.raster.Cells()
}

func (r *Runner) paint() {
	r.capBuf = r.capBuf[:0]
	for _, c := range r.sim.Cells() {
		r.capBuf = append(r.capBuf, render.Capsule{
			A:      c.Ends[0],
			B:      c.Ends[1],
			Radius: c.Radius,
			Value:  render.TypeValue(c.CellType),
		})
	}
	r.view = render.Fit(r.raster.W, r.raster.H, r.capBuf, 2)
	if r.Zoom > 0 {
		r.view.Scale = r.Zoom
	}
	render.Rasterize(r.raster, r.view, r.capBuf)
	r.dirty = false
}

// Raster returns the colony raster after refreshing it.
func (r *Runner) Raster() *core.ByteGrid {
	r.Cells()
	return r.raster
}

// Palette colours the raster values produced by Cells.
func (r *Runner) Palette() []color.RGBA { return render.DefaultPalette }

// Sim exposes the simulator being driven.
func (r *Runner) Sim() *sim.Simulator { return r.sim }

// LastReport returns the report of the most recent Step.
func (r *Runner) LastReport() sim.Report { return r.last }

// Err returns the error that stopped the run, if any.
func (r *Runner) Err() error { return r.err }

// Parameters reports colony counters followed by the engine tunables.
func (r *Runner) Parameters() core.ParameterSnapshot {
	ev := r.sim.Engine().Events()
	colony := core.ParameterGroup{
		Name: "Colony",
		Params: []core.Parameter{
			core.IntParam("step", "Step", r.sim.StepNum()),
			core.IntParam("cells", "Cells", r.sim.Len()),
			core.IntParam("contacts", "Contacts", r.last.Physics.Contacts),
			core.IntParam("solves", "Solves", r.last.Physics.Solves),
			core.IntParam("cg_iterations", "CG iterations", r.last.Physics.CGIterations),
			core.FloatParam("max_overlap", "Max overlap", r.last.Physics.MaxOverlap),
			core.IntParam("dropped_contacts", "Dropped contacts", ev.DroppedContacts),
			core.IntParam("refused_divisions", "Refused divisions", r.last.RefusedDivisions),
		},
	}
	snap := r.sim.Engine().Parameters()
	snap.Groups = append([]core.ParameterGroup{colony}, snap.Groups...)
	return snap
}

// ParameterControls lists the HUD-adjustable tunables.
func (r *Runner) ParameterControls() []core.ParameterControl {
	return []core.ParameterControl{
		{Key: "mobility", Label: "Mobility", Type: core.ParamTypeFloat, Step: 0.1, Min: 0.1, HasMin: true},
		{Key: "regularization_stiffness", Label: "Gamma", Type: core.ParamTypeFloat, Step: 1, Min: 1, HasMin: true},
		{Key: "cgs_tol", Label: "CG tol", Type: core.ParamTypeFloat, Step: 0.001, Min: 0, HasMin: true},
		{Key: "max_substeps", Label: "Max substeps", Type: core.ParamTypeInt, Step: 1, Min: 1, Max: 32, HasMin: true, HasMax: true},
		{Key: "propulsion", Label: "Propulsion", Type: core.ParamTypeFloat, Step: 0.1},
		{Key: "velocity_retention", Label: "Velocity retention", Type: core.ParamTypeFloat, Step: 0.05, Min: 0, Max: 1, HasMin: true, HasMax: true},
	}
}

// SetFloatParameter implements core.FloatParameterSetter.
func (r *Runner) SetFloatParameter(key string, value float64) bool {
	return r.sim.Engine().SetFloatParameter(key, value)
}

// SetIntParameter implements core.IntParameterSetter.
func (r *Runner) SetIntParameter(key string, value int) bool {
	return r.sim.Engine().SetIntParameter(key, value)
}

// FromMap builds the simulator config for a scene from flag-style keys; width
// and height set the raster size and zoom the fixed scale.
func FromMap(cfg map[string]string) (sim.Config, int, int, float64) {
	c := sim.FromMap(cfg)
	w, h, zoom := 256, 256, 0.0
	if v, err := strconv.Atoi(cfg["width"]); err == nil && v > 0 {
		w = v
	}
	if v, err := strconv.Atoi(cfg["height"]); err == nil && v > 0 {
		h = v
	}
	if v, err := strconv.ParseFloat(cfg["zoom"], 64); err == nil && v > 0 {
		zoom = v
	}
	return c, w, h, zoom
}

func registerSim(sc Scene) {
	core.Register(sc.Name, func(m map[string]string) core.Sim {
		cfg, w, h, zoom := FromMap(m)
		r, err := NewRunner(sc, cfg, w, h)
		if err != nil {
			slog.Default().Error("scene setup failed", slog.String("scene", sc.Name), slog.Any("err", err))
			return nil
		}
		r.Zoom = zoom
		return r
	})
}

// View returns the world to raster mapping used by the last paint.
func (r *Runner) View() render.View {
	r.Cells()
	return r.view
}

// Restore replaces the driven simulator with one rebuilt from a snapshot
// file, keeping the scene's simulator options.
func (r *Runner) Restore(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var opts []sim.Option
	if r.scene.Options != nil {
		opts = append(opts, r.scene.Options(r.cfg.Seed)...)
	}
	opts = append(opts, r.opts...)
	s, err := sim.Restore(f, opts...)
	if err != nil {
		return fmt.Errorf("restore %s: %w", path, err)
	}
	r.sim = s
	r.cfg = s.Config()
	r.last = sim.Report{}
	r.err = nil
	r.dirty = true
	return nil
}
