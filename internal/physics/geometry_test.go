package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func nearVec(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func TestClosestSegmentPointsCrossing(t *testing.T) {
	_, _, pa, pb := closestSegmentPoints(
		mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{1, 0, 0},
		mgl64.Vec3{0, -1, 1}, mgl64.Vec3{0, 1, 1},
	)
	if !nearVec(pa, mgl64.Vec3{0, 0, 0}, 1e-12) || !nearVec(pb, mgl64.Vec3{0, 0, 1}, 1e-12) {
		t.Fatalf("unexpected closest points %v %v", pa, pb)
	}
}

func TestClosestSegmentPointsParallelUsesOverlapMidpoint(t *testing.T) {
	s, tt, pa, pb := closestSegmentPoints(
		mgl64.Vec3{0, 0, 0}, mgl64.Vec3{4, 0, 0},
		mgl64.Vec3{2, 1, 0}, mgl64.Vec3{6, 1, 0},
	)
	if !near(s, 0.75, 1e-12) || !near(tt, 0.25, 1e-12) {
		t.Fatalf("expected s=0.75 t=0.25, got %v %v", s, tt)
	}
	if !near(pa.Sub(pb).Len(), 1, 1e-12) {
		t.Fatalf("expected unit separation, got %v", pa.Sub(pb).Len())
	}
}

func TestClosestSegmentPointsEndpoints(t *testing.T) {
	_, _, pa, pb := closestSegmentPoints(
		mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0},
		mgl64.Vec3{3, 1, 0}, mgl64.Vec3{3, 4, 0},
	)
	if !nearVec(pa, mgl64.Vec3{1, 0, 0}, 1e-12) || !nearVec(pb, mgl64.Vec3{3, 1, 0}, 1e-12) {
		t.Fatalf("unexpected closest points %v %v", pa, pb)
	}
}

func TestClosestSegmentPointsDegenerate(t *testing.T) {
	p := mgl64.Vec3{1, 2, 3}
	_, _, pa, pb := closestSegmentPoints(p, p, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0})
	if !nearVec(pa, p, 0) || !nearVec(pb, mgl64.Vec3{1, 0, 0}, 1e-12) {
		t.Fatalf("point-segment case wrong: %v %v", pa, pb)
	}
	_, _, pa, pb = closestSegmentPoints(p, p, p, p)
	if !finite3(pa) || !finite3(pb) {
		t.Fatal("coincident points produced non-finite output")
	}
}

func TestRotateDir(t *testing.T) {
	got := rotateDir(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, math.Pi / 2})
	if !nearVec(got, mgl64.Vec3{0, 1, 0}, 1e-12) {
		t.Fatalf("expected +y, got %v", got)
	}
	same := rotateDir(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{})
	if same != (mgl64.Vec3{0, 0, 1}) {
		t.Fatalf("zero rotation changed direction: %v", same)
	}
}

func TestSafeNormalizeFallback(t *testing.T) {
	if got := safeNormalize(mgl64.Vec3{}, fallbackAxis); got != fallbackAxis {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := safeNormalize(mgl64.Vec3{math.NaN(), 0, 0}, fallbackAxis); got != fallbackAxis {
		t.Fatalf("expected fallback for NaN, got %v", got)
	}
	p := perpendicular(mgl64.Vec3{1, 0, 0})
	if !near(p.Dot(mgl64.Vec3{1, 0, 0}), 0, 1e-12) || !near(p.Len(), 1, 1e-12) {
		t.Fatalf("perpendicular not orthonormal: %v", p)
	}
}

func TestCapsuleMeasures(t *testing.T) {
	if got := CapsuleVolume(0, 1); !near(got, 4.0/3.0*math.Pi, 1e-12) {
		t.Fatalf("sphere volume wrong: %v", got)
	}
	if got := CapsuleArea(0, 1); !near(got, 4*math.Pi, 1e-12) {
		t.Fatalf("sphere area wrong: %v", got)
	}
	if got := CapsuleVolume(2, 0.5); !near(got, math.Pi*0.25*2+4.0/3.0*math.Pi*0.125, 1e-12) {
		t.Fatalf("capsule volume wrong: %v", got)
	}
}
