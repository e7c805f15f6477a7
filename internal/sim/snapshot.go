package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"bactosim/internal/physics"
)

// ErrBadSnapshot reports a snapshot that cannot be restored.
var ErrBadSnapshot = errors.New("sim: malformed snapshot")

const snapshotVersion = 1

// CellRecord is the persisted form of one cell.
type CellRecord struct {
	ID       int `json:"id"`
	Index    int `json:"index"`
	CellType int `json:"cell_type"`

	Pos        mgl64.Vec3 `json:"pos"`
	Dir        mgl64.Vec3 `json:"dir"`
	Length     float64    `json:"length"`
	Radius     float64    `json:"radius"`
	GrowthRate float64    `json:"growth_rate"`
	Adhesion   float64    `json:"adhesion"`
	OldVolume  float64    `json:"old_volume"`

	DCenter mgl64.Vec3 `json:"dcenter"`
	DAng    mgl64.Vec3 `json:"dang"`
	Vel     mgl64.Vec3 `json:"vel"`

	Age               int        `json:"age"`
	EffGrowth         float64    `json:"eff_growth"`
	DivideFlag        bool       `json:"divide_flag,omitempty"`
	DivisionFractions [2]float64 `json:"division_fractions"`
	TargetLength      float64    `json:"target_length,omitempty"`
	Species           []float64  `json:"species,omitempty"`
	Signals           []float64  `json:"signals,omitempty"`
}

// Snapshot is everything needed to rebuild a simulator. Contact and solver
// state are not part of it.
type Snapshot struct {
	Version int              `json:"version"`
	Step    int              `json:"step"`
	NextID  int              `json:"next_id"`
	Config  Config           `json:"config"`
	Cells   []CellRecord     `json:"cells"`
	Planes  []physics.Plane  `json:"planes"`
	Spheres []physics.Sphere `json:"spheres"`
	Lineage map[int]int      `json:"lineage"`
}

// Snapshot captures the current state.
func (s *Simulator) Snapshot() Snapshot {
	snap := Snapshot{
		Version: snapshotVersion,
		Step:    s.stepNum,
		NextID:  s.nextID,
		Config:  s.cfg,
		Planes:  s.engine.Planes(),
		Spheres: s.engine.Spheres(),
		Lineage: s.Lineage(),
	}
	for _, c := range s.Cells() {
		dc, dang, _ := s.engine.Motion(c.Index)
		snap.Cells = append(snap.Cells, CellRecord{
			ID:                c.ID,
			Index:             c.Index,
			CellType:          c.CellType,
			Pos:               c.Pos,
			Dir:               c.Dir,
			Length:            c.Length,
			Radius:            c.Radius,
			GrowthRate:        c.GrowthRate,
			Adhesion:          c.Adhesion,
			OldVolume:         c.OldVolume,
			DCenter:           dc,
			DAng:              dang,
			Vel:               c.Vel,
			Age:               c.Age,
			EffGrowth:         c.EffGrowth,
			DivideFlag:        c.DivideFlag,
			DivisionFractions: c.DivisionFractions,
			TargetLength:      c.TargetLength,
			Species:           append([]float64(nil), c.Species...),
			Signals:           append([]float64(nil), c.Signals...),
		})
	}
	return snap
}

// WriteSnapshot encodes the current state as JSON.
func (s *Simulator) WriteSnapshot(w io.Writer) error {
	snap := s.Snapshot()
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	if err := enc.Encode(&snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot without validating it.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", errors.Join(ErrBadSnapshot, err))
	}
	return &snap, nil
}

// Restore decodes a snapshot and rebuilds a simulator from it.
func Restore(r io.Reader, opts ...Option) (*Simulator, error) {
	snap, err := ReadSnapshot(r)
	if err != nil {
		return nil, err
	}
	return FromSnapshot(snap, opts...)
}

// FromSnapshot rebuilds a simulator. Cells are re-added in index order so the
// id to index mapping survives unchanged.
func FromSnapshot(snap *Snapshot, opts ...Option) (*Simulator, error) {
	if err := validate(snap); err != nil {
		return nil, err
	}
	s := New(snap.Config, opts...)
	for _, p := range snap.Planes {
		if err := s.engine.AddPlane(p.Point, p.Normal, p.Stiffness); err != nil {
			return nil, fmt.Errorf("restore plane: %w", err)
		}
	}
	for _, sp := range snap.Spheres {
		if err := s.engine.AddSphere(sp.Center, sp.Radius, sp.Stiffness, sp.NormalSign); err != nil {
			return nil, fmt.Errorf("restore sphere: %w", err)
		}
	}
	recs := slices.Clone(snap.Cells)
	slices.SortFunc(recs, func(a, b CellRecord) int { return a.Index - b.Index })
	for _, rec := range recs {
		idx, err := s.engine.AddCell(physics.Pose{
			Center:     rec.Pos,
			Dir:        rec.Dir,
			Length:     rec.Length,
			Radius:     rec.Radius,
			GrowthRate: rec.GrowthRate,
			Adhesion:   rec.Adhesion,
		})
		if err != nil {
			return nil, fmt.Errorf("restore cell %d: %w", rec.ID, err)
		}
		_ = s.engine.SetMotion(idx, rec.DCenter, rec.DAng)
		c := &CellState{
			ID:                rec.ID,
			CellType:          rec.CellType,
			GrowthRate:        rec.GrowthRate,
			Adhesion:          rec.Adhesion,
			Vel:               rec.Vel,
			Age:               rec.Age,
			EffGrowth:         rec.EffGrowth,
			DivideFlag:        rec.DivideFlag,
			DivisionFractions: rec.DivisionFractions,
			TargetLength:      rec.TargetLength,
			Species:           append([]float64(nil), rec.Species...),
			Signals:           append([]float64(nil), rec.Signals...),
		}
		s.bind(rec.ID, idx, c)
		s.refresh(c)
		c.OldVolume = rec.OldVolume
	}
	for k, v := range snap.Lineage {
		s.lineage[k] = v
	}
	s.nextID = snap.NextID
	s.stepNum = snap.Step
	return s, nil
}

func validate(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot: %w", ErrBadSnapshot)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("version %d: %w", snap.Version, ErrBadSnapshot)
	}
	n := len(snap.Cells)
	if limit := snap.Config.Physics.MaxCells; limit > 0 && n > limit {
		return fmt.Errorf("%d cells exceed capacity %d: %w", n, limit, ErrBadSnapshot)
	}
	seenIdx := make([]bool, n)
	seenID := make(map[int]bool, n)
	for _, rec := range snap.Cells {
		if rec.Index < 0 || rec.Index >= n || seenIdx[rec.Index] {
			return fmt.Errorf("cell %d index %d not dense: %w", rec.ID, rec.Index, ErrBadSnapshot)
		}
		if rec.ID < 0 || rec.ID >= snap.NextID || seenID[rec.ID] {
			return fmt.Errorf("cell id %d invalid: %w", rec.ID, ErrBadSnapshot)
		}
		seenIdx[rec.Index] = true
		seenID[rec.ID] = true
	}
	return nil
}

// DirSink writes every snapshot to Dir as step-NNNNNN.json.
type DirSink struct {
	Dir string
}

// NewDirSink creates dir if needed.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot dir: %w", err)
	}
	return &DirSink{Dir: dir}, nil
}

// Path returns the file a given step is written to.
func (d *DirSink) Path(step int) string {
	return filepath.Join(d.Dir, fmt.Sprintf("step-%06d.json", step))
}

// WriteSnapshot implements SnapshotSink.
func (d *DirSink) WriteSnapshot(step int, snap *Snapshot) error {
	f, err := os.Create(d.Path(step))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", " ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}
