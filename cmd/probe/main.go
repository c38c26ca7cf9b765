package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/inactives/internal/probe"
)

// Default configuration constants.
const (
	defaultRequests     = 1
	defaultWorkers      = 4
	defaultInactiveFor  = 5
	defaultMaxDistance  = 100
	defaultTimeout      = 2 * time.Minute
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:5000", "Base URL of the service")
		world       = flag.String("world", "com1", "Gameworld to search")
		inactiveFor = flag.Int("inactive-for", defaultInactiveFor, "Days between the two snapshots")
		x           = flag.Int("x", 0, "Reference x coordinate")
		y           = flag.Int("y", 0, "Reference y coordinate")
		minDistance = flag.Float64("min-distance", 0, "Lower distance bound")
		maxDistance = flag.Float64("max-distance", defaultMaxDistance, "Upper distance bound")
		requests    = flag.Int("requests", defaultRequests, "Number of searches to send")
		workers     = flag.Int("workers", defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for the rows of the first search")
		logFile     = flag.String("log", "", "Also write log lines to this file")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	if err := probe.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	config := &probe.Config{
		BaseURL:     *baseURL,
		World:       *world,
		InactiveFor: *inactiveFor,
		X:           *x,
		Y:           *y,
		MinDistance: *minDistance,
		MaxDistance: *maxDistance,
		Requests:    *requests,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
	}

	if _, err := probe.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Probe failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
