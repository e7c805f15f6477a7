// Command colony-serve runs a scene and streams every frame to websocket
// viewers on /ws.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"bactosim/internal/app"
	"bactosim/internal/core"
	"bactosim/internal/scenes"
	"bactosim/internal/stream"
)

func main() {
	params := app.ParamFlag{}
	addr := flag.String("addr", ":8080", "listen address")
	sceneName := flag.String("scene", "growth", "scene to run")
	seed := flag.Int64("seed", 1, "run seed")
	interval := flag.Duration("interval", 100*time.Millisecond, "wall time between steps")
	maxCells := flag.Int("stop-at", 0, "pause once the colony reaches this many cells (0 = never)")
	withRaster := flag.Bool("raster", false, "include the raster in frames")
	flag.Var(params, "set", "simulation parameter key=value, repeatable")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	sc, err := scenes.Lookup(*sceneName)
	if err != nil {
		log.Fatal(err)
	}
	params["seed"] = fmt.Sprint(*seed)
	cfg, w, h, zoom := scenes.FromMap(params)
	r, err := scenes.NewRunner(sc, cfg, w, h)
	if err != nil {
		log.Fatal(err)
	}
	r.Zoom = zoom

	hub := stream.NewHub(logger)
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: *addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", *addr), slog.String("scene", sc.Name))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
	g.Go(func() error {
		return run(ctx, r, hub, *interval, *maxCells, *withRaster)
	})
	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, r *scenes.Runner, hub *stream.Hub, interval time.Duration, stopAt int, withRaster bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	paused := false
	pending := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-hub.Commands():
			if cmd.Pause != nil {
				paused = *cmd.Pause
			}
			if cmd.Reset != nil {
				r.Reset(*cmd.Reset)
				paused = false
			}
			pending += cmd.Steps
		case <-ticker.C:
			if (paused || (stopAt > 0 && r.Sim().Len() >= stopAt)) && pending == 0 {
				continue
			}
			if pending > 0 {
				pending--
			}
			r.Step()
			if err := r.Err(); err != nil {
				return err
			}
			var raster *core.ByteGrid
			if withRaster {
				raster = r.Raster()
			}
			hub.Broadcast(stream.NewFrame(r.LastReport(), r.Sim().Cells(), raster))
		}
	}
}
