// Command colony runs a scene headless, logging progress and optionally
// writing snapshots, an MJPEG movie and a growth plot.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"bactosim/internal/app"
	"bactosim/internal/output"
	"bactosim/internal/scenes"
	"bactosim/internal/sim"
)

func main() {
	params := app.ParamFlag{}
	sceneName := flag.String("scene", "growth", "scene to run")
	steps := flag.Int("steps", 200, "steps to simulate")
	seed := flag.Int64("seed", 1, "run seed")
	snapDir := flag.String("snapshots", "", "directory for periodic JSON snapshots")
	snapEvery := flag.Int("snapshot-every", 50, "steps between snapshots")
	restore := flag.String("restore", "", "snapshot file to resume from instead of building the scene")
	moviePath := flag.String("movie", "", "write an MJPEG AVI of the colony")
	movieEvery := flag.Int("movie-every", 2, "steps between movie frames")
	plotPath := flag.String("plot", "", "write a growth plot (png/svg/pdf)")
	logEvery := flag.Int("log-every", 20, "steps between progress lines")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Var(params, "set", "simulation parameter key=value, repeatable")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	sc, err := scenes.Lookup(*sceneName)
	if err != nil {
		log.Fatalf("%v (available: %v)", err, scenes.Names())
	}
	params["seed"] = fmt.Sprint(*seed)
	if *snapDir != "" {
		params["snapshot_every"] = fmt.Sprint(*snapEvery)
	}
	cfg, w, h, zoom := scenes.FromMap(params)

	var opts []sim.Option
	if *snapDir != "" {
		sink, err := sim.NewDirSink(*snapDir)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, sim.WithSnapshotSink(sink))
	}

	r, err := scenes.NewRunner(sc, cfg, w, h, opts...)
	if err != nil {
		log.Fatal(err)
	}
	r.Zoom = zoom
	if *restore != "" {
		if err := r.Restore(*restore); err != nil {
			log.Fatal(err)
		}
	}

	var movie *output.Movie
	if *moviePath != "" {
		movie, err = output.NewMovie(*moviePath, w, h, 1, 15, r.Palette())
		if err != nil {
			log.Fatal(err)
		}
	}
	growth := output.NewGrowthPlot(sc.Name)

	start := time.Now()
	for i := 0; i < *steps; i++ {
		r.Step()
		if err := r.Err(); err != nil {
			log.Fatalf("step %d: %v", i, err)
		}
		rep := r.LastReport()
		growth.Record(rep)
		if movie != nil && rep.Step%*movieEvery == 0 {
			if err := movie.Add(r.Raster()); err != nil {
				log.Fatal(err)
			}
		}
		if *logEvery > 0 && rep.Step%*logEvery == 0 {
			slog.Info("progress",
				slog.Int("step", rep.Step),
				slog.Int("cells", rep.Cells),
				slog.Int("divisions", rep.Divisions),
				slog.Int("contacts", rep.Physics.Contacts),
				slog.Int("solves", rep.Physics.Solves),
				slog.Float64("max_overlap", rep.Physics.MaxOverlap))
		}
	}
	elapsed := time.Since(start)

	if movie != nil {
		if err := movie.Close(); err != nil {
			log.Fatal(err)
		}
	}
	if *plotPath != "" {
		if err := growth.Save(*plotPath); err != nil {
			log.Fatal(err)
		}
	}

	ev := r.Sim().Engine().Events()
	fmt.Printf("%s: %d steps in %s, %d cells\n", sc.Name, *steps, elapsed.Round(time.Millisecond), r.Sim().Len())
	fmt.Printf("events: %+v\n", ev)
}
