//go:build ebiten

package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"bactosim/internal/core"
	"bactosim/internal/render"
	"bactosim/internal/sim"
)

type colonyProvider interface {
	Sim() *sim.Simulator
	Raster() *core.ByteGrid
	View() render.View
}

// Overlay draws cell axes (D) and neighbour alignment (A) over the raster.
type Overlay struct {
	colony    colonyProvider
	scale     int
	showAxes  bool
	showAlign bool
}

// NewOverlay returns nil when the sim is not a colony.
func NewOverlay(s core.Sim, scale int) *Overlay {
	c, ok := s.(colonyProvider)
	if !ok {
		return nil
	}
	if scale <= 0 {
		scale = 1
	}
	return &Overlay{colony: c, scale: scale}
}

// Update toggles layers from the keyboard.
func (o *Overlay) Update() {
	if o == nil {
		return
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyD) {
		o.showAxes = !o.showAxes
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		o.showAlign = !o.showAlign
	}
}

// Draw paints the enabled layers.
func (o *Overlay) Draw(screen *ebiten.Image) {
	if o == nil || (!o.showAxes && !o.showAlign) {
		return
	}
	g := o.colony.Raster()
	v := o.colony.View()
	k := float32(o.scale)
	axis := color.RGBA{R: 255, G: 255, B: 255, A: 200}
	align := color.RGBA{R: 255, G: 200, B: 40, A: 220}
	for _, c := range o.colony.Sim().Cells() {
		ax, ay := v.ToPixel(g, c.Ends[0])
		bx, by := v.ToPixel(g, c.Ends[1])
		if o.showAxes {
			vector.StrokeLine(screen, float32(ax)*k, float32(ay)*k, float32(bx)*k, float32(by)*k, 1, axis, false)
		}
		if o.showAlign && c.AvgNeighbourDir.Len() > 0 {
			cx, cy := v.ToPixel(g, c.Pos)
			tip := c.Pos.Add(c.AvgNeighbourDir.Mul(c.Length / 2))
			tx, ty := v.ToPixel(g, tip)
			vector.StrokeLine(screen, float32(cx)*k, float32(cy)*k, float32(tx)*k, float32(ty)*k, 1, align, false)
		}
	}
}
