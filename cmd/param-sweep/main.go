// Command param-sweep grows the same colony under a grid of solver tunables
// and ranks the settings by residual overlap and cost.
package main

import (
	"flag"
	"fmt"
	"log"
	"runtime"
	"sort"
	"sync"
	"time"

	"bactosim/internal/scenes"
	"bactosim/internal/sim"
)

type paramSet struct {
	mobility  float64
	gamma     float64
	tol       float64
	substeps  int
	retention float64
}

func (p paramSet) String() string {
	return fmt.Sprintf("mobility=%.2f gamma=%.1f tol=%.0e substeps=%d retention=%.2f",
		p.mobility, p.gamma, p.tol, p.substeps, p.retention)
}

type scenarioResult struct {
	params       paramSet
	worstOverlap float64
	meanSolves   float64
	cgIterations int
	cells        int
	unconverged  int
	elapsed      time.Duration
	err          error
}

func main() {
	sceneName := flag.String("scene", "growth", "scene to sweep")
	steps := flag.Int("steps", 160, "steps to simulate per scenario")
	workers := flag.Int("workers", runtime.NumCPU(), "number of worker goroutines")
	seed := flag.Int64("seed", 1337, "seed shared by every scenario")
	flag.Parse()

	sc, err := scenes.Lookup(*sceneName)
	if err != nil {
		log.Fatal(err)
	}
	base := sim.DefaultConfig()
	base.Seed = *seed
	// Scenarios already run in parallel.
	base.Physics.Workers = 1

	mobilityOptions := []float64{0.5, 1, 2}
	gammaOptions := []float64{5, 10, 20}
	tolOptions := []float64{1e-2, 5e-3, 1e-3}
	substepOptions := []int{4, 8}
	retentionOptions := []float64{0, 0.5}

	var sets []paramSet
	for _, m := range mobilityOptions {
		for _, g := range gammaOptions {
			for _, tol := range tolOptions {
				for _, n := range substepOptions {
					for _, ret := range retentionOptions {
						sets = append(sets, paramSet{mobility: m, gamma: g, tol: tol, substeps: n, retention: ret})
					}
				}
			}
		}
	}

	fmt.Printf("Sweeping %d parameter sets on %s (%d workers, %d steps)\n", len(sets), sc.Name, *workers, *steps)

	jobs := make(chan paramSet)
	results := make(chan scenarioResult)
	var wg sync.WaitGroup

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for params := range jobs {
				results <- runScenario(sc, base, params, *steps)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		for _, params := range sets {
			jobs <- params
		}
		close(jobs)
	}()

	start := time.Now()
	var all []scenarioResult
	for res := range results {
		if res.err != nil {
			fmt.Printf("Failed %s: %v\n", res.params, res.err)
			continue
		}
		all = append(all, res)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].worstOverlap != all[j].worstOverlap {
			return all[i].worstOverlap < all[j].worstOverlap
		}
		return all[i].cgIterations < all[j].cgIterations
	})
	elapsed := time.Since(start)

	fmt.Printf("\nTop 5 results (elapsed %s):\n", elapsed.Round(time.Millisecond))
	for i := 0; i < len(all) && i < 5; i++ {
		printResult(i+1, all[i])
	}
	if len(all) > 0 {
		fmt.Println("\nWorst:")
		printResult(len(all), all[len(all)-1])
	}
}

func printResult(rank int, res scenarioResult) {
	fmt.Printf("%2d) overlap=%.4f solves/step=%.2f cg=%d cells=%d unconverged=%d time=%s params=%s\n",
		rank, res.worstOverlap, res.meanSolves, res.cgIterations, res.cells, res.unconverged,
		res.elapsed.Round(time.Millisecond), res.params)
}

func runScenario(sc scenes.Scene, base sim.Config, params paramSet, steps int) scenarioResult {
	cfg := base
	cfg.Physics.Mobility = params.mobility
	cfg.Physics.RegularizationStiffness = params.gamma
	cfg.Physics.CGSTolerance = params.tol
	cfg.Physics.MaxSubsteps = params.substeps
	cfg.Physics.VelocityRetention = params.retention

	res := scenarioResult{params: params}
	s, err := sc.Build(cfg)
	if err != nil {
		res.err = err
		return res
	}
	start := time.Now()
	solves := 0
	for i := 0; i < steps; i++ {
		rep, err := s.Step()
		if err != nil {
			res.err = err
			return res
		}
		solves += rep.Physics.Solves
		res.cgIterations += rep.Physics.CGIterations
		res.worstOverlap = max(res.worstOverlap, rep.Physics.MaxOverlap)
	}
	res.elapsed = time.Since(start)
	res.meanSolves = float64(solves) / float64(max(steps, 1))
	res.cells = s.Len()
	res.unconverged = s.Engine().Events().UnconvergedSolves
	return res
}
