package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"bactosim/internal/core"
)

// Capsule is the projected outline of one cell.
type Capsule struct {
	A, B   mgl64.Vec3
	Radius float64
	// Value is written into covered pixels; zero is background.
	Value uint8
}

// View maps world xy coordinates onto a pixel grid. Z is discarded.
type View struct {
	Center mgl64.Vec2
	// Scale is pixels per world unit.
	Scale float64
}

// ToPixel converts a world point to fractional pixel coordinates on g.
func (v View) ToPixel(g *core.ByteGrid, p mgl64.Vec3) (float64, float64) {
	x := (p.X()-v.Center.X())*v.Scale + float64(g.W)/2
	y := float64(g.H)/2 - (p.Y()-v.Center.Y())*v.Scale
	return x, y
}

// Fit returns a view that frames every capsule with a margin in world units.
func Fit(w, h int, caps []Capsule, margin float64) View {
	if len(caps) == 0 {
		return View{Scale: 1}
	}
	lo := mgl64.Vec2{math.Inf(1), math.Inf(1)}
	hi := mgl64.Vec2{math.Inf(-1), math.Inf(-1)}
	for _, c := range caps {
		for _, p := range [2]mgl64.Vec3{c.A, c.B} {
			lo[0] = math.Min(lo[0], p.X()-c.Radius)
			lo[1] = math.Min(lo[1], p.Y()-c.Radius)
			hi[0] = math.Max(hi[0], p.X()+c.Radius)
			hi[1] = math.Max(hi[1], p.Y()+c.Radius)
		}
	}
	ext := hi.Sub(lo).Add(mgl64.Vec2{2 * margin, 2 * margin})
	scale := math.Min(float64(w)/ext.X(), float64(h)/ext.Y())
	if scale <= 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		scale = 1
	}
	return View{Center: lo.Add(hi).Mul(0.5), Scale: scale}
}

// Rasterize clears g and paints every capsule into it. Later capsules
// overwrite earlier ones.
func Rasterize(g *core.ByteGrid, v View, caps []Capsule) {
	g.Clear()
	cells := g.Cells()
	for _, c := range caps {
		ax, ay := v.ToPixel(g, c.A)
		bx, by := v.ToPixel(g, c.B)
		r := c.Radius * v.Scale
		x0 := clampInt(int(math.Floor(math.Min(ax, bx)-r)), 0, g.W-1)
		x1 := clampInt(int(math.Ceil(math.Max(ax, bx)+r)), 0, g.W-1)
		y0 := clampInt(int(math.Floor(math.Min(ay, by)-r)), 0, g.H-1)
		y1 := clampInt(int(math.Ceil(math.Max(ay, by)+r)), 0, g.H-1)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if segDist2(float64(x)+0.5, float64(y)+0.5, ax, ay, bx, by) <= r*r {
					cells[g.Index(x, y)] = c.Value
				}
			}
		}
	}
}

func segDist2(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	t := 0.0
	if l2 := dx*dx + dy*dy; l2 > 0 {
		t = math.Max(0, math.Min(1, ((px-ax)*dx+(py-ay)*dy)/l2))
	}
	ex, ey := ax+t*dx-px, ay+t*dy-py
	return ex*ex + ey*ey
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
