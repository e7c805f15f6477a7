package core

import (
	"testing"
	"time"
)

type stubSim struct{}

func (stubSim) Name() string   { return "stub" }
func (stubSim) Size() Size     { return Size{W: 1, H: 1} }
func (stubSim) Reset(int64)    {}
func (stubSim) Step()          {}
func (stubSim) Cells() []uint8 { return []uint8{0} }

func TestRegisterIgnoresInvalid(t *testing.T) {
	Register("", func(map[string]string) Sim { return stubSim{} })
	Register("nil-factory", nil)
	Register("stub-test", func(map[string]string) Sim { return stubSim{} })
	if _, ok := Sims()[""]; ok {
		t.Fatal("empty name registered")
	}
	if _, ok := Sims()["nil-factory"]; ok {
		t.Fatal("nil factory registered")
	}
	found := false
	for _, n := range Names() {
		if n == "stub-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("names %v", Names())
	}
}

func TestFixedStepPacing(t *testing.T) {
	clock := time.Unix(0, 0)
	fs := NewFixedStep(10)
	fs.now = func() time.Time { return clock }
	if !fs.ShouldStep() {
		t.Fatal("first poll should be due")
	}
	clock = clock.Add(50 * time.Millisecond)
	if fs.ShouldStep() {
		t.Fatal("half a step elapsed")
	}
	clock = clock.Add(60 * time.Millisecond)
	if !fs.ShouldStep() {
		t.Fatal("step due after 110ms")
	}
	clock = clock.Add(time.Second)
	if !fs.ShouldStep() || !fs.ShouldStep() || fs.ShouldStep() {
		t.Fatal("backlog should be capped at one extra step")
	}
}

func TestByteGrid(t *testing.T) {
	g := NewByteGrid(0, 3)
	if g.W != 1 || g.H != 3 {
		t.Fatalf("size %dx%d", g.W, g.H)
	}
	g.Cells()[g.Index(0, 2)] = 5
	if g.Count() != 1 || !g.In(0, 2) || g.In(1, 0) || g.In(0, -1) {
		t.Fatal("grid accessors")
	}
	g.Clear()
	if g.Count() != 0 {
		t.Fatal("clear")
	}
}

func TestSnapshotFind(t *testing.T) {
	snap := ParameterSnapshot{Groups: []ParameterGroup{
		{Name: "a", Params: []Parameter{IntParam("x", "X", 3)}},
		{Name: "b", Params: []Parameter{FloatParam("y", "Y", 0.5), BoolParam("z", "Z", true)}},
	}}
	if p, ok := snap.Find("y"); !ok || p.Value != "0.5" || p.Type != ParamTypeFloat {
		t.Fatalf("find y: %+v", p)
	}
	if p, ok := snap.Find("z"); !ok || p.Value != "true" {
		t.Fatalf("find z: %+v", p)
	}
	if _, ok := snap.Find("missing"); ok {
		t.Fatal("found missing key")
	}
	if p := Int64Param("seed", "Seed", -4); p.Value != "-4" {
		t.Fatalf("int64 %+v", p)
	}
}
