package ui

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"bactosim/internal/core"
)

// colonyGroup names the snapshot group shown as read-only counters.
const colonyGroup = "Colony"

const (
	panelPadding   = 12
	headerBaseline = 18
	rowHeight      = 36
	rowBaseline    = 24
	buttonSize     = 24
	buttonGap      = 6
	tunablesTop    = panelPadding + headerBaseline + 14
	sectionGap     = 20
	readoutHeight  = 18
)

// tunable is one adjustable engine parameter with its -/+ buttons.
type tunable struct {
	ctrl  core.ParameterControl
	value float64
	known bool

	top         int
	minus, plus image.Rectangle
}

// step returns the increment for one button press. Int controls step by at
// least one.
func (t *tunable) step() float64 {
	s := t.ctrl.Step
	if t.ctrl.Type == core.ParamTypeInt {
		return math.Max(1, math.Round(s))
	}
	if s <= 0 {
		return 0.05
	}
	return s
}

// next returns the clamped value one press in dir would set, and whether it
// differs from the current one.
func (t *tunable) next(dir int) (float64, bool) {
	if !t.known || dir == 0 {
		return t.value, false
	}
	v := t.value + float64(dir)*t.step()
	if t.ctrl.HasMin {
		v = math.Max(v, t.ctrl.Min)
	}
	if t.ctrl.HasMax {
		v = math.Min(v, t.ctrl.Max)
	}
	if t.ctrl.Type == core.ParamTypeInt {
		v = math.Round(v)
	}
	return v, math.Abs(v-t.value) > 1e-9
}

// text is the displayed value, with precision following the step size.
func (t *tunable) text() string {
	if !t.known {
		return "--"
	}
	if t.ctrl.Type == core.ParamTypeInt {
		return strconv.Itoa(int(t.value))
	}
	prec := 1
	switch s := t.step(); {
	case s < 0.001:
		prec = 4
	case s < 0.01:
		prec = 3
	case s < 0.1:
		prec = 2
	}
	return strconv.FormatFloat(t.value, 'f', prec, 64)
}

// readout is one colony counter row.
type readout struct {
	label, value string
}

// panel holds the HUD layout and the values last read from the sim: a title,
// the tunable rows and the colony counters below them.
type panel struct {
	width    int
	title    string
	tunables []tunable
	readouts []readout
}

func newPanel(name string, ctrls []core.ParameterControl, width int) *panel {
	p := &panel{width: width, title: panelTitle(name)}
	p.tunables = make([]tunable, len(ctrls))
	for i, c := range ctrls {
		top := tunablesTop + i*rowHeight
		y := top + (rowHeight-buttonSize)/2
		plus := image.Rect(width-panelPadding-buttonSize, y, width-panelPadding, y+buttonSize)
		minus := plus.Sub(image.Pt(buttonSize+buttonGap, 0))
		p.tunables[i] = tunable{ctrl: c, top: top, minus: minus, plus: plus}
	}
	return p
}

func panelTitle(name string) string {
	if name == "" {
		return "Colony"
	}
	return fmt.Sprintf("%s%s colony", strings.ToUpper(name[:1]), name[1:])
}

// sync copies tunable values and colony counters out of snap. Tunables
// missing from snap or with unparsable values are marked unknown.
func (p *panel) sync(snap core.ParameterSnapshot) {
	for i := range p.tunables {
		t := &p.tunables[i]
		t.known = false
		param, ok := snap.Find(t.ctrl.Key)
		if !ok || param.Type != t.ctrl.Type {
			continue
		}
		v, err := strconv.ParseFloat(param.Value, 64)
		if err != nil {
			continue
		}
		t.value, t.known = v, true
	}
	p.readouts = p.readouts[:0]
	for _, g := range snap.Groups {
		if g.Name != colonyGroup {
			continue
		}
		for _, param := range g.Params {
			p.readouts = append(p.readouts, readout{label: param.Label, value: readoutValue(param)})
		}
	}
}

func readoutValue(param core.Parameter) string {
	if param.Type == core.ParamTypeFloat {
		if f, err := strconv.ParseFloat(param.Value, 64); err == nil {
			return strconv.FormatFloat(f, 'g', 4, 64)
		}
	}
	return param.Value
}

// readoutTop is the baseline of the colony section heading.
func (p *panel) readoutTop() int {
	return tunablesTop + len(p.tunables)*rowHeight + sectionGap
}

// readoutBaseline is the baseline of counter row i.
func (p *panel) readoutBaseline(i int) int {
	return p.readoutTop() + (i+1)*readoutHeight
}

// hit returns the tunable whose button contains (x, y) in panel coordinates
// and the direction of that button.
func (p *panel) hit(x, y int) (*tunable, int) {
	pt := image.Pt(x, y)
	for i := range p.tunables {
		t := &p.tunables[i]
		switch {
		case pt.In(t.minus):
			return t, -1
		case pt.In(t.plus):
			return t, 1
		}
	}
	return nil, 0
}
