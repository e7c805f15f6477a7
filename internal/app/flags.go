package app

import (
	"flag"
	"fmt"
	"strings"
)

// Config represents the command-line parameters of the viewer.
type Config struct {
	Scene          string
	Scale          int
	TPS            int
	StepsPerSecond int
	HUDWidth       int
	Seed           int64
	// Params are scene keys passed through to the scene factory.
	Params map[string]string
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Scene:          "growth",
		Scale:          3,
		TPS:            60,
		StepsPerSecond: 20,
		HUDWidth:       240,
		Seed:           42,
		Params:         map[string]string{},
	}
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Scene, "scene", c.Scene, "scene to run")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "frames per second")
	fs.IntVar(&c.StepsPerSecond, "sps", c.StepsPerSecond, "simulation steps per second")
	fs.IntVar(&c.HUDWidth, "hud", c.HUDWidth, "HUD panel width in pixels, 0 hides it")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for simulation reset")
	fs.Var(ParamFlag(c.Params), "set", "scene parameter key=value, repeatable")
}

// SceneParams returns the scene keys including the seed.
func (c *Config) SceneParams() map[string]string {
	out := make(map[string]string, len(c.Params)+1)
	for k, v := range c.Params {
		out[k] = v
	}
	out["seed"] = fmt.Sprint(c.Seed)
	return out
}

// ParamFlag collects repeated key=value flags into a map.
type ParamFlag map[string]string

func (p ParamFlag) String() string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (p ParamFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("want key=value, got %q", s)
	}
	p[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}
