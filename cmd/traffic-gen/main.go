package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"traffic-gen/pkg/catalog"
	"traffic-gen/pkg/classify"
	"traffic-gen/pkg/config"
	"traffic-gen/pkg/harness"
	"traffic-gen/pkg/logging"
	"traffic-gen/pkg/probe"
	"traffic-gen/pkg/runlog"
)

var (
	configPath = flag.String("config", "config.yml", "Path to configuration file")
	noColor    = flag.Bool("no-color", false, "Disable colorized console output")
	version    = "dev"
)

func main() {
	flag.Parse()

	// Parse configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)

	logger.Info("traffic generator starting", "version", version)

	// Compile the blocked/allowed verdict rules
	rules, err := classify.Compile(&cfg.Verdicts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to compile verdict rules: %v\n", err)
		os.Exit(1)
	}

	// Build the target catalog
	cat := catalog.Build(cfg.Targets)
	if cat.Len() == 0 {
		logger.Warn("target catalog is empty; the run will only produce a summary")
	}

	// Open the per-run transcript
	start := time.Now()
	log, err := runlog.Open(cfg.RunLog.Dir, start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open run log: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WriteHeader(start, runlog.CollectHost(ctx))
	logger.Info("run log opened", "path", log.Path())

	fmt.Println("Traffic Generator for Firewall Demo")

	// Run the catalog once
	prober := probe.New(cfg, rules, logger)
	defer prober.Close()

	rec := harness.NewRecorder()
	runner := harness.New(cat, prober, rec, logger, log, harness.Options{
		Pacing:    cfg.Pacing,
		Sampling:  cfg.Sampling,
		GeoIPPing: cfg.Probes.GeoIP.PingEnabled(),
		Seed:      cfg.Seed,
		Color:     !*noColor,
	})

	if err := runner.Run(ctx); err != nil {
		// Interrupted mid-run; outcomes so far are already in the log
		logger.Warn("run interrupted", "error", err, "outcomes", rec.Len())
		return
	}

	logger.Info("run complete", "outcomes", rec.Len(), "log", log.Path())
}
