package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"
)

// dofs is the number of generalized coordinates per cell: translation (3),
// rotation vector (3), length change (1) and one padding slot.
const dofs = 8

// cgIterFactor bounds CG at cgIterFactor*n iterations for n cells.
const cgIterFactor = 7

// SolveStats describes one conjugate gradient solve.
type SolveStats struct {
	Iterations int
	Residual   float64
	Converged  bool
}

// solver owns the flat DOF vectors and the per-cell regularization terms.
type solver struct {
	x, b, r, p, ap []float64

	regT []float64
	regR []float64
	regL []float64
}

func newSolver(cells int) *solver {
	n := cells * dofs
	return &solver{
		x:    make([]float64, n),
		b:    make([]float64, n),
		r:    make([]float64, n),
		p:    make([]float64, n),
		ap:   make([]float64, n),
		regT: make([]float64, cells),
		regR: make([]float64, cells),
		regL: make([]float64, cells),
	}
}

func jacobianRow(n, axisPoint, center, dir mgl64.Vec3, length float64) [dofs]float64 {
	arm := axisPoint.Sub(center)
	torque := arm.Cross(n)
	if length < minLength {
		length = minLength
	}
	axial := arm.Dot(dir) / length
	stretch := n.Dot(dir) * axial
	return [dofs]float64{n[0], n[1], n[2], torque[0], torque[1], torque[2], stretch, 0}
}

// buildMatrix fills the Jacobian entries, the scaled gaps and the per-cell
// regularization from the current contact list and predicted poses.
func (e *Engine) buildMatrix() {
	s := e.store
	cts := e.cts
	sv := e.solver
	mu := e.cfg.Mobility
	gamma := e.cfg.RegularizationStiffness
	dispatch(e.cfg.Workers, s.Len(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			leff := s.predLens[i] + 2*s.rads[i]
			sv.regT[i] = mu * leff / gamma
			sv.regR[i] = mu * leff * leff * leff / (12 * gamma)
			sv.regL[i] = mu * leff

			base := i * cts.max
			for k := 0; k < cts.counts[i]; k++ {
				slot := base + k
				ct := cts.slots[slot]
				w := ct.Stiffness
				if ct.disabled || w <= 0 || math.IsNaN(w) {
					cts.frEnts[slot] = [dofs]float64{}
					cts.toEnts[slot] = [dofs]float64{}
					cts.rel[slot] = 0
					continue
				}
				sw := math.Sqrt(w)
				fr := jacobianRow(ct.Normal, ct.frAxis, s.predCenters[i], s.predDirs[i], s.predLens[i])
				for d := range fr {
					fr[d] *= sw
				}
				cts.frEnts[slot] = fr
				if ct.To >= 0 {
					j := ct.To
					to := jacobianRow(ct.Normal, ct.toAxis, s.predCenters[j], s.predDirs[j], s.predLens[j])
					for d := range to {
						to[d] *= -sw
					}
					cts.toEnts[slot] = to
				} else {
					cts.toEnts[slot] = [dofs]float64{}
				}
				cts.rel[slot] = sw * ct.Dist
			}
		}
	})
}

func rowDot(row *[dofs]float64, v []float64) float64 {
	sum := 0.0
	for d := 0; d < dofs; d++ {
		sum += row[d] * v[d]
	}
	return sum
}

func rowAddScaled(dst []float64, alpha float64, row *[dofs]float64) {
	for d := 0; d < dofs; d++ {
		dst[d] += alpha * row[d]
	}
}

// applyRegularization writes R_i v_i into dst_i.
func (e *Engine) applyRegularization(i int, v, dst []float64) {
	sv := e.solver
	d := e.store.predDirs[i]
	t := mgl64.Vec3{v[0], v[1], v[2]}
	t = t.Sub(d.Mul(0.5 * d.Dot(t))).Mul(sv.regT[i])
	dst[0], dst[1], dst[2] = t[0], t[1], t[2]
	dst[3] = sv.regR[i] * v[3]
	dst[4] = sv.regR[i] * v[4]
	dst[5] = sv.regR[i] * v[5]
	dst[6] = sv.regL[i] * v[6]
	dst[7] = v[7]
}

// transposeInto adds, for cell i, the sum over its own and back contacts of
// row_k * vals[k] scaled by alpha.
func (e *Engine) transposeInto(i int, vals []float64, alpha float64, dst []float64) {
	cts := e.cts
	base := i * cts.max
	for k := 0; k < cts.counts[i]; k++ {
		slot := base + k
		rowAddScaled(dst, alpha*vals[slot], &cts.frEnts[slot])
	}
	tb := i * cts.backMax
	for k := 0; k < cts.nTos[i]; k++ {
		slot := cts.tos[tb+k]
		rowAddScaled(dst, alpha*vals[slot], &cts.toEnts[slot])
	}
}

// applyA computes out = (BᵀB + R) v in two kernels separated by a barrier.
func (e *Engine) applyA(v, out []float64) {
	n := e.store.Len()
	cts := e.cts
	dispatch(e.cfg.Workers, n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			base := i * cts.max
			vi := v[i*dofs : (i+1)*dofs]
			for k := 0; k < cts.counts[i]; k++ {
				slot := base + k
				bx := rowDot(&cts.frEnts[slot], vi)
				if to := cts.slots[slot].To; to >= 0 {
					bx += rowDot(&cts.toEnts[slot], v[to*dofs:(to+1)*dofs])
				}
				cts.bx[slot] = bx
			}
		}
	})
	dispatch(e.cfg.Workers, n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst := out[i*dofs : (i+1)*dofs]
			e.applyRegularization(i, v[i*dofs:(i+1)*dofs], dst)
			e.transposeInto(i, cts.bx, 1, dst)
		}
	})
}

// buildRHS fills b = -Bᵀg plus, when requested, the propulsion force that
// moves an unobstructed cell by push along its axis.
func (e *Engine) buildRHS(push float64) {
	n := e.store.Len()
	sv := e.solver
	dispatch(e.cfg.Workers, n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dst := sv.b[i*dofs : (i+1)*dofs]
			clear(dst)
			e.transposeInto(i, e.cts.rel, -1, dst)
			if push != 0 {
				d := e.store.predDirs[i]
				f := d.Mul(0.5 * sv.regT[i] * push)
				dst[0] += f[0]
				dst[1] += f[1]
				dst[2] += f[2]
			}
		}
	})
}

// solve runs conjugate gradient on the assembled system, leaving the result
// in e.solver.x. Hitting the iteration cap is not an error.
func (e *Engine) solve() SolveStats {
	cells := e.store.Len()
	sv := e.solver
	m := cells * dofs
	x, b, r, p, ap := sv.x[:m], sv.b[:m], sv.r[:m], sv.p[:m], sv.ap[:m]
	clear(x)
	if cells == 0 {
		return SolveStats{Converged: true}
	}
	tol := e.cfg.CGSTolerance
	norm := float64(cells)
	copy(r, b)
	copy(p, r)
	rr := floats.Dot(r, r)
	res := math.Sqrt(rr / norm)
	if res < tol {
		return SolveStats{Residual: res, Converged: true}
	}
	maxIter := cgIterFactor * cells
	stats := SolveStats{Residual: res}
	for it := 1; it <= maxIter; it++ {
		e.applyA(p, ap)
		pAp := floats.Dot(p, ap)
		if pAp <= 0 || math.IsNaN(pAp) {
			break
		}
		alpha := rr / pAp
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)
		rrNew := floats.Dot(r, r)
		stats.Iterations = it
		stats.Residual = math.Sqrt(rrNew / norm)
		if stats.Residual < tol {
			stats.Converged = true
			break
		}
		floats.AddScaledTo(p, r, rrNew/rr, p)
		rr = rrNew
	}
	if !e.scrubNonFinite(x) {
		e.events.NonFiniteSolves++
		stats.Converged = false
	}
	return stats
}

// scrubNonFinite zeroes every cell block of x holding a NaN or Inf and
// reports whether x was clean.
func (e *Engine) scrubNonFinite(x []float64) bool {
	clean := true
	for i := 0; i+dofs <= len(x); i += dofs {
		blk := x[i : i+dofs]
		ok := true
		for _, v := range blk {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				ok = false
				break
			}
		}
		if !ok {
			clear(blk)
			clean = false
		}
	}
	return clean
}

// applyImpulse adds the solved displacement to each cell's accumulators.
func (e *Engine) applyImpulse() {
	s := e.store
	x := e.solver.x
	dispatch(e.cfg.Workers, s.Len(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			xi := x[i*dofs : (i+1)*dofs]
			s.dcenters[i] = s.dcenters[i].Add(mgl64.Vec3{xi[0], xi[1], xi[2]})
			s.dangs[i] = s.dangs[i].Add(mgl64.Vec3{xi[3], xi[4], xi[5]})
			s.dlens[i] += xi[6]
			if s.lens[i]+s.dlens[i] < 0 {
				s.dlens[i] = -s.lens[i]
			}
		}
	})
}
