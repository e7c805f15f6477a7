package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	geomEpsilon = 1e-9
	minLength   = 1e-6
)

var fallbackAxis = mgl64.Vec3{0, 0, 1}

// safeNormalize returns v/|v|, or fallback when v is too short to normalize.
func safeNormalize(v, fallback mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l < geomEpsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return fallback
	}
	return v.Mul(1 / l)
}

// perpendicular returns some unit vector orthogonal to v.
func perpendicular(v mgl64.Vec3) mgl64.Vec3 {
	axis := mgl64.Vec3{1, 0, 0}
	if math.Abs(v.X()) > 0.9 {
		axis = mgl64.Vec3{0, 1, 0}
	}
	return safeNormalize(v.Cross(axis), fallbackAxis)
}

// capsuleEnds returns the two endpoints of a capsule axis.
func capsuleEnds(center, dir mgl64.Vec3, length float64) (mgl64.Vec3, mgl64.Vec3) {
	half := dir.Mul(0.5 * length)
	return center.Sub(half), center.Add(half)
}

// CapsuleArea is the surface area of a capsule with axis length l and radius r.
func CapsuleArea(l, r float64) float64 {
	return 2 * math.Pi * r * (l + 2*r)
}

// CapsuleVolume is the volume of a capsule with axis length l and radius r.
func CapsuleVolume(l, r float64) float64 {
	return math.Pi*r*r*l + 4.0/3.0*math.Pi*r*r*r
}

// rotateDir applies the rotation vector w to the unit direction d.
func rotateDir(d, w mgl64.Vec3) mgl64.Vec3 {
	angle := w.Len()
	if angle < geomEpsilon || math.IsNaN(angle) {
		return d
	}
	q := mgl64.QuatRotate(angle, w.Mul(1/angle))
	return safeNormalize(q.Rotate(d), d)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// closestSegmentPoints finds the parameters s, t in [0,1] of the closest
// points p1+s(q1-p1) and p2+t(q2-p2) between two segments.
func closestSegmentPoints(p1, q1, p2, q2 mgl64.Vec3) (float64, float64, mgl64.Vec3, mgl64.Vec3) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a <= geomEpsilon && e <= geomEpsilon:
		return 0, 0, p1, p2
	case a <= geomEpsilon:
		s = 0
		t = clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= geomEpsilon {
			t = 0
			s = clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > geomEpsilon*a*e {
				s = clamp((b*f-c*e)/denom, 0, 1)
			} else {
				// Parallel axes: pick the middle of the overlapping span.
				s = parallelParam(p1, d1, p2, d2, a)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = clamp((b-c)/a, 0, 1)
			}
		}
	}
	return s, t, p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}

func parallelParam(p1, d1, p2, d2 mgl64.Vec3, a float64) float64 {
	s0 := p2.Sub(p1).Dot(d1) / a
	s1 := p2.Add(d2).Sub(p1).Dot(d1) / a
	if s0 > s1 {
		s0, s1 = s1, s0
	}
	lo := math.Max(0, s0)
	hi := math.Min(1, s1)
	if lo > hi {
		if s1 < 0 {
			return 0
		}
		return 1
	}
	return 0.5 * (lo + hi)
}

// closestPointOnSegment returns the parameter and point on p+u(q-p) nearest x.
func closestPointOnSegment(p, q, x mgl64.Vec3) (float64, mgl64.Vec3) {
	d := q.Sub(p)
	a := d.Dot(d)
	if a <= geomEpsilon {
		return 0, p
	}
	u := clamp(x.Sub(p).Dot(d)/a, 0, 1)
	return u, p.Add(d.Mul(u))
}

func finite3(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
