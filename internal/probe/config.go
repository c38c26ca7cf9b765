// Package probe runs inactive searches against a live service and checks
// that every response honors the API contract.
package probe

import (
	"time"

	"github.com/okian/inactives/internal/domain/model"
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL     string        // Base URL of the service
	World       string        // Gameworld to search
	InactiveFor int           // Days between snapshots
	X, Y        int           // Reference coordinate
	MinDistance float64       // Lower distance bound
	MaxDistance float64       // Upper distance bound
	Requests    int           // Number of searches to send
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for the rows of the first search
	Verbose     bool          // Enable verbose logging
}

// Envelope is the body returned by GET /inactives.
type Envelope struct {
	Error   bool                     `json:"error"`
	Message string                   `json:"message"`
	Data    []model.RankedVillageRow `json:"data"`
}

// Stats holds probe statistics.
type Stats struct {
	RunID            string
	Requests         int
	Successful       int
	Failed           int
	Violations       int
	Rows             int
	DistinctPlayers  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	SlowestRequestMs int64
}
