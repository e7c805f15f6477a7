package physics

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrCapacity reports that a fixed-size buffer is full. The operation that
	// returned it was a no-op.
	ErrCapacity = errors.New("physics: capacity exhausted")
	// ErrBadIndex reports an index outside the live range.
	ErrBadIndex = errors.New("physics: index out of range")
)

// Pose is the externally settable geometry and growth state of one cell.
type Pose struct {
	Center     mgl64.Vec3
	Dir        mgl64.Vec3
	Length     float64
	Radius     float64
	GrowthRate float64
	Adhesion   float64
}

// CellStore holds every per-cell quantity in parallel fixed-capacity arrays
// addressed by a dense index in [0, Len()).
type CellStore struct {
	n   int
	cap int

	centers []mgl64.Vec3
	dirs    []mgl64.Vec3
	lens    []float64
	rads    []float64

	predCenters []mgl64.Vec3
	predDirs    []mgl64.Vec3
	predLens    []float64

	dcenters    []mgl64.Vec3
	dangs       []mgl64.Vec3
	dlens       []float64
	targetDlens []float64

	growthRates []float64
	adhesion    []float64

	areas   []float64
	vols    []float64
	oldVols []float64

	avgNeighbourDirs []mgl64.Vec3
}

// NewCellStore allocates buffers for capacity cells.
func NewCellStore(capacity int) *CellStore {
	if capacity < 1 {
		capacity = 1
	}
	return &CellStore{
		cap:              capacity,
		centers:          make([]mgl64.Vec3, capacity),
		dirs:             make([]mgl64.Vec3, capacity),
		lens:             make([]float64, capacity),
		rads:             make([]float64, capacity),
		predCenters:      make([]mgl64.Vec3, capacity),
		predDirs:         make([]mgl64.Vec3, capacity),
		predLens:         make([]float64, capacity),
		dcenters:         make([]mgl64.Vec3, capacity),
		dangs:            make([]mgl64.Vec3, capacity),
		dlens:            make([]float64, capacity),
		targetDlens:      make([]float64, capacity),
		growthRates:      make([]float64, capacity),
		adhesion:         make([]float64, capacity),
		areas:            make([]float64, capacity),
		vols:             make([]float64, capacity),
		oldVols:          make([]float64, capacity),
		avgNeighbourDirs: make([]mgl64.Vec3, capacity),
	}
}

// Len returns the number of live cells.
func (s *CellStore) Len() int { return s.n }

// Capacity returns the fixed buffer size.
func (s *CellStore) Capacity() int { return s.cap }

// Full reports whether another cell can be added.
func (s *CellStore) Full() bool { return s.n >= s.cap }

// Add appends a cell and returns its index, or ErrCapacity when full.
func (s *CellStore) Add(p Pose) (int, error) {
	if s.Full() {
		return -1, ErrCapacity
	}
	i := s.n
	s.n++
	s.write(i, p)
	s.dcenters[i] = mgl64.Vec3{}
	s.dangs[i] = mgl64.Vec3{}
	s.dlens[i] = 0
	s.avgNeighbourDirs[i] = mgl64.Vec3{}
	s.calcGeom(i)
	s.oldVols[i] = s.vols[i]
	return i, nil
}

// Get returns the stored pose at index i.
func (s *CellStore) Get(i int) (Pose, error) {
	if i < 0 || i >= s.n {
		return Pose{}, fmt.Errorf("get %d: %w", i, ErrBadIndex)
	}
	return Pose{
		Center:     s.centers[i],
		Dir:        s.dirs[i],
		Length:     s.lens[i],
		Radius:     s.rads[i],
		GrowthRate: s.growthRates[i],
		Adhesion:   s.adhesion[i],
	}, nil
}

// Set overwrites the pose at index i and re-derives its geometry.
func (s *CellStore) Set(i int, p Pose) error {
	if i < 0 || i >= s.n {
		return fmt.Errorf("set %d: %w", i, ErrBadIndex)
	}
	s.write(i, p)
	s.calcGeom(i)
	return nil
}

func (s *CellStore) write(i int, p Pose) {
	if p.Length < 0 {
		p.Length = 0
	}
	if p.Radius <= 0 {
		p.Radius = minLength
	}
	s.centers[i] = p.Center
	s.dirs[i] = safeNormalize(p.Dir, mgl64.Vec3{1, 0, 0})
	s.lens[i] = p.Length
	s.rads[i] = p.Radius
	s.growthRates[i] = p.GrowthRate
	s.adhesion[i] = p.Adhesion
}

func (s *CellStore) calcGeom(i int) {
	s.areas[i] = CapsuleArea(s.lens[i], s.rads[i])
	s.vols[i] = CapsuleVolume(s.lens[i], s.rads[i])
}

func (s *CellStore) reset() {
	s.n = 0
}
