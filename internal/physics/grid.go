package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Grid buckets cells into square xy bins of side Spacing. It is rebuilt from
// scratch every tick by a counting sort: cellSq holds each cell's bucket,
// sorted lists cell indices grouped by bucket, and sqStart[b]..sqStart[b+1]
// is bucket b's span in sorted.
type Grid struct {
	XMin, XMax int
	YMin, YMax int
	Spacing    float64

	cellSq  []int
	sorted  []int
	sqStart []int
	counts  []int
}

// NewGrid allocates a grid able to bucket capacity cells.
func NewGrid(capacity int, spacing float64) *Grid {
	return &Grid{
		Spacing: spacing,
		cellSq:  make([]int, capacity),
		sorted:  make([]int, capacity),
	}
}

// Width is the bucket count along x.
func (g *Grid) Width() int { return g.XMax - g.XMin }

// Height is the bucket count along y.
func (g *Grid) Height() int { return g.YMax - g.YMin }

// Squares is the total bucket count.
func (g *Grid) Squares() int { return g.Width() * g.Height() }

// fitRange sets the bucket range so every center lies inside it. The upper
// bound is exclusive, so a degenerate axis still spans one bucket.
func (g *Grid) fitRange(centers []mgl64.Vec3) {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, c := range centers {
		minX = math.Min(minX, c.X())
		maxX = math.Max(maxX, c.X())
		minY = math.Min(minY, c.Y())
		maxY = math.Max(maxY, c.Y())
	}
	if len(centers) == 0 {
		minX, maxX, minY, maxY = 0, 0, 0, 0
	}
	g.XMin = int(math.Floor(minX / g.Spacing))
	g.XMax = int(math.Floor(maxX/g.Spacing)) + 1
	g.YMin = int(math.Floor(minY / g.Spacing))
	g.YMax = int(math.Floor(maxY/g.Spacing)) + 1
}

// Rebuild recomputes the range and buckets centers. When the range would need
// more than maxSquares buckets the spacing is doubled until it fits; the
// number of doublings is returned.
func (g *Grid) Rebuild(centers []mgl64.Vec3, spacing float64, maxSquares int, workers int) int {
	n := len(centers)
	g.Spacing = spacing
	widenings := 0
	for {
		g.fitRange(centers)
		if g.Squares() <= maxSquares || maxSquares <= 0 {
			break
		}
		g.Spacing *= 2
		widenings++
	}

	nsq := g.Squares()
	if cap(g.sqStart) < nsq+1 {
		g.sqStart = make([]int, nsq+1)
		g.counts = make([]int, nsq)
	}
	g.sqStart = g.sqStart[:nsq+1]
	g.counts = g.counts[:nsq]

	dispatch(workers, n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			g.cellSq[i] = g.Bucket(centers[i])
		}
	})

	clear(g.counts)
	for i := 0; i < n; i++ {
		g.counts[g.cellSq[i]]++
	}
	g.sqStart[0] = 0
	for b := 0; b < nsq; b++ {
		g.sqStart[b+1] = g.sqStart[b] + g.counts[b]
	}
	copy(g.counts, g.sqStart[:nsq])
	for i := 0; i < n; i++ {
		b := g.cellSq[i]
		g.sorted[g.counts[b]] = i
		g.counts[b]++
	}
	return widenings
}

// Coords returns the clamped bucket coordinates of a position.
func (g *Grid) Coords(p mgl64.Vec3) (int, int) {
	x := int(math.Floor(p.X()/g.Spacing)) - g.XMin
	y := int(math.Floor(p.Y()/g.Spacing)) - g.YMin
	if x < 0 || math.IsNaN(p.X()) {
		x = 0
	}
	if x >= g.Width() {
		x = g.Width() - 1
	}
	if y < 0 || math.IsNaN(p.Y()) {
		y = 0
	}
	if y >= g.Height() {
		y = g.Height() - 1
	}
	return x, y
}

// Bucket returns the linear bucket id of a position.
func (g *Grid) Bucket(p mgl64.Vec3) int {
	x, y := g.Coords(p)
	return y*g.Width() + x
}

// CellBucket returns the bucket assigned to cell i in the last rebuild.
func (g *Grid) CellBucket(i int) int { return g.cellSq[i] }

// Cells returns the indices of the cells in bucket b. The slice aliases
// internal storage and is valid until the next Rebuild.
func (g *Grid) Cells(b int) []int {
	if b < 0 || b >= g.Squares() {
		return nil
	}
	return g.sorted[g.sqStart[b]:g.sqStart[b+1]]
}

// forNeighbours calls fn for every cell in bucket b and its eight neighbours.
func (g *Grid) forNeighbours(b int, fn func(j int)) {
	w, h := g.Width(), g.Height()
	bx, by := b%w, b/w
	for dy := -1; dy <= 1; dy++ {
		y := by + dy
		if y < 0 || y >= h {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			x := bx + dx
			if x < 0 || x >= w {
				continue
			}
			sq := y*w + x
			for _, j := range g.sorted[g.sqStart[sq]:g.sqStart[sq+1]] {
				fn(j)
			}
		}
	}
}
