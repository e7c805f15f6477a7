//go:build ebiten

package ui

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"bactosim/internal/core"
)

var (
	panelBg    = color.RGBA{R: 16, G: 16, B: 20, A: 255}
	titleFg    = color.RGBA{R: 200, G: 200, B: 210, A: 255}
	labelFg    = color.RGBA{R: 220, G: 220, B: 230, A: 255}
	dimFg      = color.RGBA{R: 160, G: 160, B: 170, A: 255}
	buttonBg   = color.RGBA{R: 54, G: 56, B: 64, A: 255}
	buttonFg   = color.RGBA{R: 230, G: 230, B: 240, A: 255}
	disabledBg = color.RGBA{R: 32, G: 34, B: 40, A: 255}
	disabledFg = color.RGBA{R: 120, G: 120, B: 130, A: 255}
)

type parameterProvider interface {
	Parameters() core.ParameterSnapshot
}

// HUD renders the tunables panel and colony counters to the right of the
// raster.
type HUD struct {
	sim    core.Sim
	layout *panel
	img    *ebiten.Image
	pixel  *ebiten.Image

	ints   core.IntParameterSetter
	floats core.FloatParameterSetter

	offsetX int
}

// NewHUD constructs a HUD for the provided simulation and panel width.
func NewHUD(sim core.Sim, width int) *HUD {
	if width < 0 {
		width = 0
	}
	var ctrls []core.ParameterControl
	if p, ok := sim.(core.ParameterControlsProvider); ok {
		ctrls = p.ParameterControls()
	}
	h := &HUD{sim: sim, layout: newPanel(sim.Name(), ctrls, width)}
	h.ints, _ = sim.(core.IntParameterSetter)
	h.floats, _ = sim.(core.FloatParameterSetter)
	if width > 0 {
		h.pixel = ebiten.NewImage(1, 1)
		h.pixel.Fill(color.White)
	}
	return h
}

// Update reads the sim's parameters and applies a click on a -/+ button.
// panelOffsetX is the screen x of the panel's left edge.
func (h *HUD) Update(panelOffsetX int) {
	if h == nil {
		return
	}
	h.offsetX = panelOffsetX
	p, ok := h.sim.(parameterProvider)
	if !ok {
		return
	}
	h.layout.sync(p.Parameters())
	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	if t, dir := h.layout.hit(mx-h.offsetX, my); t != nil {
		h.apply(t, dir)
	}
}

// settable reports whether a press in dir would change t.
func (h *HUD) settable(t *tunable, dir int) bool {
	if _, ok := t.next(dir); !ok {
		return false
	}
	if t.ctrl.Type == core.ParamTypeInt {
		return h.ints != nil
	}
	return h.floats != nil
}

func (h *HUD) apply(t *tunable, dir int) {
	if !h.settable(t, dir) {
		return
	}
	v, _ := t.next(dir)
	var ok bool
	if t.ctrl.Type == core.ParamTypeInt {
		ok = h.ints.SetIntParameter(t.ctrl.Key, int(v))
	} else {
		ok = h.floats.SetFloatParameter(t.ctrl.Key, v)
	}
	if ok {
		t.value = v
	}
}

// Draw paints the HUD panel at offsetX, as tall as the scaled raster.
func (h *HUD) Draw(screen *ebiten.Image, offsetX int, scale int) {
	if h == nil || h.layout.width <= 0 {
		return
	}
	height := h.sim.Size().H * max(scale, 1)
	if height <= 0 {
		return
	}
	if h.img == nil || h.img.Bounds().Dy() != height {
		h.img = ebiten.NewImage(h.layout.width, height)
	}
	h.img.Fill(panelBg)
	h.drawTunables()
	h.drawReadouts()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.img, op)
}

func (h *HUD) drawTunables() {
	face := basicfont.Face7x13
	text.Draw(h.img, h.layout.title, face, panelPadding, panelPadding+headerBaseline, titleFg)
	for i := range h.layout.tunables {
		t := &h.layout.tunables[i]
		y := t.top + rowBaseline
		text.Draw(h.img, t.ctrl.Label, face, panelPadding, y, labelFg)
		fg := labelFg
		if !t.known {
			fg = dimFg
		}
		v := t.text()
		x := t.minus.Min.X - buttonGap - text.BoundString(face, v).Dx()
		text.Draw(h.img, v, face, x, y, fg)
		h.drawButton(t.minus, "-", h.settable(t, -1))
		h.drawButton(t.plus, "+", h.settable(t, 1))
	}
}

// drawReadouts lists the colony counters as label/value rows under a heading.
func (h *HUD) drawReadouts() {
	if len(h.layout.readouts) == 0 {
		return
	}
	face := basicfont.Face7x13
	text.Draw(h.img, colonyGroup, face, panelPadding, h.layout.readoutTop(), titleFg)
	right := h.layout.width - panelPadding
	for i, r := range h.layout.readouts {
		y := h.layout.readoutBaseline(i)
		text.Draw(h.img, r.label, face, panelPadding, y, dimFg)
		text.Draw(h.img, r.value, face, right-text.BoundString(face, r.value).Dx(), y, labelFg)
	}
}

func (h *HUD) drawButton(rect image.Rectangle, label string, enabled bool) {
	if h.pixel == nil {
		return
	}
	bg, fg := buttonBg, buttonFg
	if !enabled {
		bg, fg = disabledBg, disabledFg
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(rect.Dx()), float64(rect.Dy()))
	op.GeoM.Translate(float64(rect.Min.X), float64(rect.Min.Y))
	op.ColorScale.ScaleWithColor(bg)
	h.img.DrawImage(h.pixel, op)

	face := basicfont.Face7x13
	b := text.BoundString(face, label)
	x := rect.Min.X + (rect.Dx()-b.Dx())/2
	y := rect.Min.Y + (rect.Dy()+b.Dy())/2
	text.Draw(h.img, label, face, x, y, fg)
}
