package physics

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

// Contact is one constraint row: a cell (From) against another cell with a
// higher index (To >= 0) or a static primitive (To < 0).
type Contact struct {
	From, To int
	Point    mgl64.Vec3
	// Normal points from the To side toward the From cell.
	Normal mgl64.Vec3
	// Dist is the signed surface gap; negative values are overlaps.
	Dist      float64
	Stiffness float64

	frAxis mgl64.Vec3
	toAxis mgl64.Vec3
	// disabled contacts could not be registered on the To cell and are left
	// out of the solve so the operator stays symmetric.
	disabled bool
}

// Overlap returns the penetration depth, positive when surfaces intersect.
func (c Contact) Overlap() float64 { return -c.Dist }

// IsStatic reports whether the contact is against a plane or sphere.
func (c Contact) IsStatic() bool { return c.To < 0 }

// AdhesionBlend combines the adhesion strengths of two touching cells into
// the stiffness of a contact whose surfaces are separated.
type AdhesionBlend func(a, b float64) float64

// MinAdhesion uses the weaker partner's adhesion.
func MinAdhesion(a, b float64) float64 { return math.Min(a, b) }

// contactList stores up to max contacts per cell in fixed slots, plus the
// back references ("tos") of contacts that point at each cell.
type contactList struct {
	max    int
	slots  []Contact
	counts []int

	backMax int
	tos     []int
	nTos    []int

	frEnts [][dofs]float64
	toEnts [][dofs]float64
	rel    []float64
	bx     []float64
}

func newContactList(cells, max int) *contactList {
	backMax := 2 * max
	return &contactList{
		max:     max,
		slots:   make([]Contact, cells*max),
		counts:  make([]int, cells),
		backMax: backMax,
		tos:     make([]int, cells*backMax),
		nTos:    make([]int, cells),
		frEnts:  make([][dofs]float64, cells*max),
		toEnts:  make([][dofs]float64, cells*max),
		rel:     make([]float64, cells*max),
		bx:      make([]float64, cells*max),
	}
}

func (l *contactList) clear(n int) {
	clear(l.counts[:n])
	clear(l.nTos[:n])
}

// of returns the live contacts owned by cell i.
func (l *contactList) of(i int) []Contact {
	return l.slots[i*l.max : i*l.max+l.counts[i]]
}

func (l *contactList) find(i, to int) int {
	base := i * l.max
	for k := 0; k < l.counts[i]; k++ {
		if l.slots[base+k].To == to {
			return base + k
		}
	}
	return -1
}

// total sums the per-cell counters over the first n cells.
func (l *contactList) total(n int) int {
	t := 0
	for _, c := range l.counts[:n] {
		t += c
	}
	return t
}

// findContacts re-evaluates every retained contact against the predicted
// pose and appends newly touching pairs. It returns the number of new pairs.
func (e *Engine) findContacts() int {
	n := e.store.Len()
	var added, dropped atomic.Int64
	dispatch(e.cfg.Workers, n, func(lo, hi int) {
		var localAdded, localDropped int64
		for i := lo; i < hi; i++ {
			e.refreshContacts(i)
			a, d := e.findStaticContacts(i)
			localAdded += a
			localDropped += d
			a, d = e.findCellContacts(i)
			localAdded += a
			localDropped += d
		}
		added.Add(localAdded)
		dropped.Add(localDropped)
	})
	if d := dropped.Load(); d > 0 {
		e.events.DroppedContacts += int(d)
		e.warnCapacity("contact", e.cts.max)
	}
	return int(added.Load())
}

func (e *Engine) refreshContacts(i int) {
	base := i * e.cts.max
	for k := 0; k < e.cts.counts[i]; k++ {
		ct := &e.cts.slots[base+k]
		switch {
		case ct.To >= 0:
			*ct = e.cellContact(i, ct.To)
		default:
			e.refreshStatic(ct)
		}
	}
}

func (e *Engine) refreshStatic(ct *Contact) {
	code := -1 - ct.To
	end := code % 2
	idx := code / 2
	if idx < e.cfg.MaxPlanes {
		*ct = e.planeContact(ct.From, idx, end)
		return
	}
	*ct = e.sphereContact(ct.From, idx-e.cfg.MaxPlanes, end)
}

func (e *Engine) appendContact(i int, ct Contact) (added, dropped int64) {
	if e.cts.counts[i] >= e.cts.max {
		return 0, 1
	}
	e.cts.slots[i*e.cts.max+e.cts.counts[i]] = ct
	e.cts.counts[i]++
	return 1, 0
}

func (e *Engine) findStaticContacts(i int) (added, dropped int64) {
	for p := range e.planes {
		for end := 0; end < 2; end++ {
			if e.cts.find(i, planeSentinel(p, end)) >= 0 {
				continue
			}
			ct := e.planeContact(i, p, end)
			if ct.Dist < e.cfg.ContactMargin {
				a, d := e.appendContact(i, ct)
				added += a
				dropped += d
			}
		}
	}
	for s := range e.spheres {
		ends := 2
		if e.spheres[s].NormalSign > 0 {
			ends = 1
		}
		for end := 0; end < ends; end++ {
			if e.cts.find(i, e.sphereSentinel(s, end)) >= 0 {
				continue
			}
			ct := e.sphereContact(i, s, end)
			if ct.Dist < e.cfg.ContactMargin {
				a, d := e.appendContact(i, ct)
				added += a
				dropped += d
			}
		}
	}
	return added, dropped
}

func (e *Engine) findCellContacts(i int) (added, dropped int64) {
	e.grid.forNeighbours(e.grid.CellBucket(i), func(j int) {
		if j <= i {
			return
		}
		if e.cts.find(i, j) >= 0 {
			return
		}
		ct := e.cellContact(i, j)
		if ct.Dist < e.cfg.ContactMargin {
			a, d := e.appendContact(i, ct)
			added += a
			dropped += d
		}
	})
	return added, dropped
}

func (e *Engine) predictedEnds(i int) (mgl64.Vec3, mgl64.Vec3) {
	s := e.store
	return capsuleEnds(s.predCenters[i], s.predDirs[i], s.predLens[i])
}

func (e *Engine) cellContact(i, j int) Contact {
	s := e.store
	a0, a1 := e.predictedEnds(i)
	b0, b1 := e.predictedEnds(j)
	_, _, pa, pb := closestSegmentPoints(a0, a1, b0, b1)
	delta := pa.Sub(pb)
	dist := delta.Len()
	var normal mgl64.Vec3
	if dist < geomEpsilon {
		normal = safeNormalize(s.predDirs[i].Cross(s.predDirs[j]), perpendicular(s.predDirs[i]))
	} else {
		normal = delta.Mul(1 / dist)
	}
	gap := dist - s.rads[i] - s.rads[j]
	stiff := 1.0
	if gap >= 0 {
		stiff = e.adhesion(s.adhesion[i], s.adhesion[j])
		if stiff < 0 || math.IsNaN(stiff) {
			stiff = 0
		}
	}
	return Contact{
		From:      i,
		To:        j,
		Point:     pa.Add(pb).Mul(0.5),
		Normal:    normal,
		Dist:      gap,
		Stiffness: stiff,
		frAxis:    pa,
		toAxis:    pb,
	}
}

func (e *Engine) planeContact(i, p, end int) Contact {
	pl := e.planes[p]
	r := e.store.rads[i]
	a0, a1 := e.predictedEnds(i)
	pt := a0
	if end == 1 {
		pt = a1
	}
	gap := pt.Sub(pl.Point).Dot(pl.Normal) - r
	stiff := 0.0
	if gap < 0 {
		stiff = pl.Stiffness
	}
	return Contact{
		From:      i,
		To:        planeSentinel(p, end),
		Point:     pt.Sub(pl.Normal.Mul(r + 0.5*gap)),
		Normal:    pl.Normal,
		Dist:      gap,
		Stiffness: stiff,
		frAxis:    pt,
	}
}

func (e *Engine) sphereContact(i, sp, end int) Contact {
	sph := e.spheres[sp]
	r := e.store.rads[i]
	a0, a1 := e.predictedEnds(i)
	pt := a0
	switch {
	case sph.NormalSign > 0:
		// An excluding sphere can touch the middle of the axis.
		_, pt = closestPointOnSegment(a0, a1, sph.Center)
	case end == 1:
		pt = a1
	}
	delta := pt.Sub(sph.Center)
	d := delta.Len()
	out := safeNormalize(delta, fallbackAxis)
	var gap float64
	var normal mgl64.Vec3
	if sph.NormalSign < 0 {
		gap = sph.Radius - d - r
		normal = out.Mul(-1)
	} else {
		gap = d - sph.Radius - r
		normal = out
	}
	stiff := 0.0
	if gap < 0 {
		stiff = sph.Stiffness
	}
	return Contact{
		From:      i,
		To:        e.sphereSentinel(sp, end),
		Point:     pt.Sub(normal.Mul(r + 0.5*gap)),
		Normal:    normal,
		Dist:      gap,
		Stiffness: stiff,
		frAxis:    pt,
	}
}

// collectTos registers, on every cell, the slots of contacts pointing at it.
// Contacts that do not fit are disabled rather than left one-sided.
func (e *Engine) collectTos() {
	n := e.store.Len()
	var dropped atomic.Int64
	dispatch(e.cfg.Workers, n, func(lo, hi int) {
		var local int64
		for j := lo; j < hi; j++ {
			e.cts.nTos[j] = 0
			base := j * e.cts.backMax
			e.grid.forNeighbours(e.grid.CellBucket(j), func(i int) {
				if i >= j {
					return
				}
				slot := e.cts.find(i, j)
				if slot < 0 {
					return
				}
				if e.cts.nTos[j] >= e.cts.backMax {
					e.cts.slots[slot].disabled = true
					local++
					return
				}
				e.cts.slots[slot].disabled = false
				e.cts.tos[base+e.cts.nTos[j]] = slot
				e.cts.nTos[j]++
			})
		}
		dropped.Add(local)
	})
	if d := dropped.Load(); d > 0 {
		e.events.DroppedBackContacts += int(d)
		e.warnCapacity("back-contact", e.cts.backMax)
	}
}

// maxWeightedOverlap is the deepest penetration among contacts that take
// part in the solve.
func (e *Engine) maxWeightedOverlap() float64 {
	return reduceMax(e.cfg.Workers, e.store.Len(), func(lo, hi int) float64 {
		best := 0.0
		for i := lo; i < hi; i++ {
			for _, ct := range e.cts.of(i) {
				if ct.disabled || ct.Stiffness <= 0 {
					continue
				}
				if ov := -ct.Dist; ov > best {
					best = ov
				}
			}
		}
		return best
	})
}

// updateNeighbourDirs stores, per cell, the sign-aligned mean direction of
// the cells it touches.
func (e *Engine) updateNeighbourDirs() {
	s := e.store
	dispatch(e.cfg.Workers, s.Len(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			var sum mgl64.Vec3
			own := s.dirs[i]
			accumulate := func(j int) {
				d := s.dirs[j]
				if d.Dot(own) < 0 {
					d = d.Mul(-1)
				}
				sum = sum.Add(d)
			}
			for _, ct := range e.cts.of(i) {
				if ct.To >= 0 && ct.Dist < e.cfg.ContactMargin {
					accumulate(ct.To)
				}
			}
			base := i * e.cts.backMax
			for k := 0; k < e.cts.nTos[i]; k++ {
				ct := e.cts.slots[e.cts.tos[base+k]]
				if ct.Dist < e.cfg.ContactMargin {
					accumulate(ct.From)
				}
			}
			s.avgNeighbourDirs[i] = safeNormalize(sum, mgl64.Vec3{})
		}
	})
}
