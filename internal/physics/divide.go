package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Divide splits cell parent into two daughters. The first daughter reuses the
// parent's index and the second takes the next free index. The daughters
// share the parent's axis length minus one diameter in proportion f1:f2 and
// inherit its velocity accumulators unchanged; volume is split the same way.
// Non-positive fractions fall back to a symmetric split. When the store is
// full nothing changes and ErrCapacity is returned.
func (e *Engine) Divide(parent int, f1, f2 float64) (int, int, error) {
	s := e.store
	if parent < 0 || parent >= s.Len() {
		return -1, -1, fmt.Errorf("divide %d: %w", parent, ErrBadIndex)
	}
	if s.Full() {
		e.events.DroppedCells++
		e.warnCapacity("cell", s.Capacity())
		return -1, -1, fmt.Errorf("divide %d: %w", parent, ErrCapacity)
	}
	if !(f1 > 0 && f2 > 0) || math.IsInf(f1, 0) || math.IsInf(f2, 0) {
		f1, f2 = 1, 1
	}
	frac1 := f1 / (f1 + f2)
	frac2 := 1 - frac1

	c, d := s.centers[parent], s.dirs[parent]
	l, r := s.lens[parent], s.rads[parent]
	avail := math.Max(0, l-2*r)
	l1, l2 := avail*frac1, avail*frac2
	c1 := c.Add(d.Mul(-0.5*l + 0.5*l1))
	c2 := c.Add(d.Mul(0.5*l - 0.5*l2))

	dir1, dir2 := d, d
	if e.cfg.AlternateDivisions {
		alt := safeNormalize(mgl64.Vec3{-d.Y(), d.X(), d.Z()}, d)
		dir1, dir2 = alt, alt
	} else {
		dir1 = e.jitter(dir1)
		dir2 = e.jitter(dir2)
	}

	vol, oldVol := s.vols[parent], s.oldVols[parent]
	base := Pose{
		Radius:     r,
		GrowthRate: s.growthRates[parent],
		Adhesion:   s.adhesion[parent],
	}
	dc, dang := s.dcenters[parent], s.dangs[parent]
	avg := s.avgNeighbourDirs[parent]

	p1 := base
	p1.Center, p1.Dir, p1.Length = c1, dir1, l1
	p2 := base
	p2.Center, p2.Dir, p2.Length = c2, dir2, l2

	d1 := parent
	s.write(d1, p1)
	d2, err := s.Add(p2)
	if err != nil {
		return -1, -1, fmt.Errorf("divide %d: %w", parent, err)
	}
	for k, idx := range [2]int{d1, d2} {
		frac := frac1
		if k == 1 {
			frac = frac2
		}
		s.dcenters[idx] = dc
		s.dangs[idx] = dang
		s.dlens[idx] = 0
		s.avgNeighbourDirs[idx] = avg
		s.areas[idx] = CapsuleArea(s.lens[idx], r)
		s.vols[idx] = vol * frac
		s.oldVols[idx] = oldVol * frac
	}
	return d1, d2, nil
}

func (e *Engine) jitter(d mgl64.Vec3) mgl64.Vec3 {
	amp := e.cfg.DivisionJitter
	if amp <= 0 {
		return d
	}
	j := mgl64.Vec3{e.rng.Uniform(-amp, amp), e.rng.Uniform(-amp, amp), 0}
	if e.cfg.JitterZ {
		j[2] = e.rng.Uniform(-amp, amp)
	}
	return safeNormalize(d.Add(j), d)
}
