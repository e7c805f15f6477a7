package render

import (
	"image"
	"image/color"

	"bactosim/internal/core"
)

// DefaultPalette colours background plus eight cell types.
var DefaultPalette = []color.RGBA{
	{R: 12, G: 12, B: 16, A: 255},
	{R: 90, G: 200, B: 90, A: 255},
	{R: 220, G: 80, B: 80, A: 255},
	{R: 80, G: 140, B: 230, A: 255},
	{R: 230, G: 200, B: 70, A: 255},
	{R: 190, G: 100, B: 220, A: 255},
	{R: 70, G: 210, B: 210, A: 255},
	{R: 240, G: 150, B: 60, A: 255},
	{R: 200, G: 200, B: 200, A: 255},
}

// TypeValue maps a cell type onto a raster value addressing DefaultPalette.
func TypeValue(cellType int) uint8 {
	n := len(DefaultPalette) - 1
	return uint8(1 + ((cellType%n)+n)%n)
}

// Image converts a raster into an RGBA image through palette.
func Image(g *core.ByteGrid, palette []color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.W, g.H))
	FillRGBA(img.Pix, g.Cells(), palette)
	return img
}

// FillRGBA writes the palette colour of every raster value into buf, four
// bytes per value. Values past the end of the palette use its last entry and
// an empty palette yields transparent black.
func FillRGBA(buf []byte, cells []uint8, palette []color.RGBA) {
	if len(palette) == 0 {
		clear(buf[:4*len(cells)])
		return
	}
	last := len(palette) - 1
	for i, v := range cells {
		col := palette[min(int(v), last)]
		px := buf[4*i : 4*i+4]
		px[0], px[1], px[2], px[3] = col.R, col.G, col.B, col.A
	}
}
