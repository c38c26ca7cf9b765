package probe

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/inactives/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends log lines to stdout and, when logFile is set, to that
// file as well. Verbose switches the level to debug.
func SetupLogging(logFile string, verbose bool) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
	}

	if err := logger.InitWithWriter(w); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		return logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`Inactive Finder Probe
=====================

Sends inactive searches to a running service and checks every response:
envelope shape, request id echo, rows sorted by distance, distances inside
the requested range and consistent with the reference point.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -world string
        Gameworld to search (default "com1")
  -inactive-for int
        Days between the two snapshots (default 5)
  -x int, -y int
        Reference coordinate (default 0, 0)
  -min-distance float, -max-distance float
        Distance range (default 0, 100)
  -requests int
        Number of searches to send (default 1)
  -workers int
        Number of concurrent workers (default 4)
  -timeout duration
        HTTP request timeout (default 2m)
  -output string
        Write the rows of the first successful search to this JSON file
  -log string
        Also write log lines to this file
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Probe a local service
  go run ./cmd/probe -world com2 -x -40 -y 12

  # Send 20 concurrent searches and keep the rows
  go run ./cmd/probe -requests 20 -workers 8 -output rows.json
`)
}
