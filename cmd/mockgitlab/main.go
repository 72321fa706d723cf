package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"gitlab-pulse/cmd/mockgitlab/engine"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	projects := flag.Int("projects", 12, "Number of projects to generate")
	seed := flag.Int64("seed", 1, "Random seed")
	addr := flag.String("addr", ":9080", "Address to serve the fake GitLab API on")
	token := flag.String("token", "glpat-mock", "Token clients must present")
	outDir := flag.String("out", "", "Write the dataset to this directory instead of serving it")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Distribution: *distribution,
		Projects:     *projects,
		Seed:         *seed,
		Now:          time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Distribution: %s, Projects: %d)...\n", cfg.Scenario, cfg.Distribution, cfg.Projects)
	ds := engine.Generate(cfg)

	if *outDir != "" {
		if err := engine.Save(*outDir, "gitlab-"+cfg.Scenario, ds); err != nil {
			fmt.Printf("Failed to save mock data: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Done.")
		return
	}

	fmt.Printf("Serving GitLab API on http://localhost%s/api/v4 (token %s)\n", *addr, *token)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           engine.NewHandler(ds, *token),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Printf("Server failed: %v\n", err)
		os.Exit(1)
	}
}
