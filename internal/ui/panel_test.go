package ui

import (
	"testing"

	"bactosim/internal/core"
)

func testControls() []core.ParameterControl {
	return []core.ParameterControl{
		{Key: "mobility", Label: "Mobility", Type: core.ParamTypeFloat, Step: 0.1, Min: 0.1, HasMin: true},
		{Key: "max_substeps", Label: "Max substeps", Type: core.ParamTypeInt, Step: 1, Min: 1, Max: 4, HasMin: true, HasMax: true},
	}
}

func testSnapshot(mobility float64, substeps int) core.ParameterSnapshot {
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{Name: colonyGroup, Params: []core.Parameter{
			core.IntParam("cells", "Cells", 12),
			core.FloatParam("max_overlap", "Max overlap", 0.0123456),
		}},
		{Name: "Solver", Params: []core.Parameter{
			core.FloatParam("mobility", "Mobility", mobility),
			core.IntParam("max_substeps", "Max substeps", substeps),
		}},
	}}
}

func TestPanelSyncReadsTunablesAndCounters(t *testing.T) {
	p := newPanel("growth", testControls(), 200)
	if p.title != "Growth colony" {
		t.Fatalf("title %q", p.title)
	}
	for _, tu := range p.tunables {
		if tu.known || tu.text() != "--" {
			t.Fatalf("%s known before sync", tu.ctrl.Key)
		}
	}
	p.sync(testSnapshot(1.25, 3))
	if got := p.tunables[0].text(); got != "1.2" && got != "1.3" {
		t.Fatalf("mobility text %q", got)
	}
	if got := p.tunables[1].text(); got != "3" {
		t.Fatalf("substeps text %q", got)
	}
	if len(p.readouts) != 2 {
		t.Fatalf("readouts %+v", p.readouts)
	}
	if p.readouts[0] != (readout{label: "Cells", value: "12"}) {
		t.Fatalf("cells readout %+v", p.readouts[0])
	}
	if p.readouts[1].value != "0.01235" {
		t.Fatalf("overlap readout %q", p.readouts[1].value)
	}

	p.sync(core.ParameterSnapshot{})
	if p.tunables[0].known || len(p.readouts) != 0 {
		t.Fatal("empty snapshot should clear values")
	}
}

func TestTunableNextClamps(t *testing.T) {
	p := newPanel("spp", testControls(), 200)
	p.sync(testSnapshot(0.15, 4))
	mob, sub := &p.tunables[0], &p.tunables[1]

	if v, ok := mob.next(-1); !ok || v != 0.1 {
		t.Fatalf("mobility down = %v %v, want clamp to 0.1", v, ok)
	}
	mob.value = 0.1
	if _, ok := mob.next(-1); ok {
		t.Fatal("mobility at its minimum should not step down")
	}
	if v, ok := mob.next(1); !ok || v < 0.2-1e-12 || v > 0.2+1e-12 {
		t.Fatalf("mobility up = %v %v", v, ok)
	}

	if _, ok := sub.next(1); ok {
		t.Fatal("substeps at its maximum should not step up")
	}
	if v, ok := sub.next(-1); !ok || v != 3 {
		t.Fatalf("substeps down = %v %v", v, ok)
	}
	if _, ok := sub.next(0); ok {
		t.Fatal("zero direction must not change the value")
	}
}

func TestIntTunableStepsByWholeUnits(t *testing.T) {
	tu := tunable{ctrl: core.ParameterControl{Type: core.ParamTypeInt, Step: 0.2}, value: 5, known: true}
	if v, ok := tu.next(1); !ok || v != 6 {
		t.Fatalf("next = %v %v, want 6", v, ok)
	}
}

func TestPanelHitAndLayout(t *testing.T) {
	p := newPanel("planes", testControls(), 200)
	for i, tu := range p.tunables {
		if tu.plus.Max.X != 200-panelPadding || tu.minus.Max.X != tu.plus.Min.X-buttonGap {
			t.Fatalf("row %d buttons %v %v", i, tu.minus, tu.plus)
		}
		c := tu.minus.Min.Add(tu.minus.Size().Div(2))
		if got, dir := p.hit(c.X, c.Y); got != &p.tunables[i] || dir != -1 {
			t.Fatalf("minus of row %d hit %v dir %d", i, got, dir)
		}
		c = tu.plus.Min.Add(tu.plus.Size().Div(2))
		if got, dir := p.hit(c.X, c.Y); got != &p.tunables[i] || dir != 1 {
			t.Fatalf("plus of row %d hit %v dir %d", i, got, dir)
		}
	}
	if got, _ := p.hit(0, 0); got != nil {
		t.Fatal("click on the title hit a control")
	}
	last := p.tunables[len(p.tunables)-1]
	if p.readoutTop() <= last.plus.Max.Y {
		t.Fatalf("readouts start at %d inside the controls ending at %d", p.readoutTop(), last.plus.Max.Y)
	}
	if p.readoutBaseline(1)-p.readoutBaseline(0) != readoutHeight {
		t.Fatal("uneven readout rows")
	}
}
