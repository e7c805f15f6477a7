//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"bactosim/internal/app"
	"bactosim/internal/core"
	_ "bactosim/internal/scenes"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	factory, ok := core.Sims()[cfg.Scene]
	if !ok {
		log.Fatalf("unknown scene %q", cfg.Scene)
	}

	sim := factory(cfg.SceneParams())
	if sim == nil {
		log.Fatalf("scene %q failed to build", cfg.Scene)
	}

	game := app.New(sim, cfg)
	size := sim.Size()

	ebiten.SetWindowTitle("bactosim: " + sim.Name())
	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(size.W*cfg.Scale+cfg.HUDWidth, size.H*cfg.Scale)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
