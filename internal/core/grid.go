package core

// ByteGrid is a row-major raster of palette indices.
type ByteGrid struct {
	W, H int
	data []uint8
}

// NewByteGrid allocates a grid; non-positive sizes become 1.
func NewByteGrid(w, h int) *ByteGrid {
	w, h = max(w, 1), max(h, 1)
	return &ByteGrid{W: w, H: h, data: make([]uint8, w*h)}
}

// Cells exposes the backing slice.
func (g *ByteGrid) Cells() []uint8 { return g.data }

// Index returns the slice index of pixel (x, y).
func (g *ByteGrid) Index(x, y int) int { return y*g.W + x }

// In reports whether (x, y) lies on the grid.
func (g *ByteGrid) In(x, y int) bool { return x >= 0 && y >= 0 && x < g.W && y < g.H }

// Count returns how many pixels hold a non-zero value.
func (g *ByteGrid) Count() int {
	n := 0
	for _, v := range g.data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clear fills the grid with zeros.
func (g *ByteGrid) Clear() { clear(g.data) }
