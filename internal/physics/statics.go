package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Plane is a half-space constraint. Cells are kept on the side Normal points to.
type Plane struct {
	Point     mgl64.Vec3
	Normal    mgl64.Vec3
	Stiffness float64
}

// Sphere is a spherical constraint. NormalSign -1 keeps cells inside the
// sphere, +1 keeps them outside.
type Sphere struct {
	Center     mgl64.Vec3
	Radius     float64
	Stiffness  float64
	NormalSign float64
}

// AddPlane appends a plane constraint. It is a no-op returning ErrCapacity
// once MaxPlanes planes exist.
func (e *Engine) AddPlane(point, normal mgl64.Vec3, stiffness float64) error {
	if len(e.planes) >= e.cfg.MaxPlanes {
		e.events.DroppedPlanes++
		e.warnCapacity("plane", len(e.planes))
		return fmt.Errorf("add plane: %w", ErrCapacity)
	}
	e.planes = append(e.planes, Plane{
		Point:     point,
		Normal:    safeNormalize(normal, fallbackAxis),
		Stiffness: stiffness,
	})
	return nil
}

// AddSphere appends a sphere constraint. It is a no-op returning ErrCapacity
// once MaxSpheres spheres exist.
func (e *Engine) AddSphere(center mgl64.Vec3, radius, stiffness, normalSign float64) error {
	if len(e.spheres) >= e.cfg.MaxSpheres {
		e.events.DroppedSpheres++
		e.warnCapacity("sphere", len(e.spheres))
		return fmt.Errorf("add sphere: %w", ErrCapacity)
	}
	sign := 1.0
	if normalSign < 0 {
		sign = -1
	}
	e.spheres = append(e.spheres, Sphere{
		Center:     center,
		Radius:     radius,
		Stiffness:  stiffness,
		NormalSign: sign,
	})
	return nil
}

// Planes returns a copy of the plane constraints.
func (e *Engine) Planes() []Plane { return append([]Plane(nil), e.planes...) }

// Spheres returns a copy of the sphere constraints.
func (e *Engine) Spheres() []Sphere { return append([]Sphere(nil), e.spheres...) }

func planeSentinel(p, end int) int { return -1 - (2*p + end) }

func (e *Engine) sphereSentinel(s, end int) int {
	return -1 - (2*e.cfg.MaxPlanes + 2*s + end)
}
