package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/okian/inactives/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// File permission constants.
const (
	directoryPermission = 0750
	outputPermission    = 0600
)

// ErrProbeFailed is returned when any search failed or broke the contract.
var ErrProbeFailed = errors.New("probe failed")

// Run executes the probe and returns its statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{
		RunID:     uuid.NewString(),
		StartTime: time.Now(),
	}
	log := logger.Named("probe")

	log.Info(ctx, "starting inactive finder probe",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", cfg.BaseURL),
		logger.String("world", cfg.World),
		logger.Int("inactiveFor", cfg.InactiveFor),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.Timeout)

	if err := checkServiceHealth(ctx, client, cfg); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	results := make([]searchResult, cfg.Requests)
	outcomes := make([]error, cfg.Requests)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i := 0; i < cfg.Requests; i++ {
		g.Go(func() error {
			id := fmt.Sprintf("%s-%d", stats.RunID, i)
			res, err := search(gctx, client, cfg, id)
			results[i] = res
			if err != nil {
				outcomes[i] = err
				return nil
			}
			outcomes[i] = verifyResult(cfg, id, res)
			if cfg.Verbose {
				log.Debug(ctx, "search done",
					logger.String("requestID", id),
					logger.Int("status", res.status),
					logger.Int("rows", len(res.envelope.Data)),
					logger.Duration("took", res.took))
			}
			return nil
		})
	}
	_ = g.Wait()

	summarize(stats, results, outcomes)
	for i, err := range outcomes {
		if err != nil {
			log.Warn(ctx, "search failed", logger.Int("request", i), logger.Error(err))
		}
	}

	if cfg.OutputFile != "" {
		if err := saveRows(ctx, cfg.OutputFile, results); err != nil {
			log.Warn(ctx, "failed to save rows", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Failed > 0 || stats.Violations > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d with violations", ErrProbeFailed, stats.Failed, stats.Violations)
	}
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

// summarize folds per-request outcomes into stats. The first successful
// search provides the row counts; every search sees the same snapshots.
func summarize(stats *Stats, results []searchResult, outcomes []error) {
	stats.Requests = len(results)
	rowsTaken := false
	for i, res := range results {
		if ms := res.took.Milliseconds(); ms > stats.SlowestRequestMs {
			stats.SlowestRequestMs = ms
		}
		switch err := outcomes[i]; {
		case err == nil && res.status == http.StatusOK:
			stats.Successful++
			if !rowsTaken {
				stats.Rows = len(res.envelope.Data)
				stats.DistinctPlayers = distinctPlayers(res.envelope)
				rowsTaken = true
			}
		case errors.Is(err, ErrContract):
			stats.Violations++
		default:
			stats.Failed++
		}
	}
}

// checkServiceHealth verifies the service answers on /healthz.
func checkServiceHealth(ctx context.Context, client *HTTPClient, cfg *Config) error {
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz", "")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// saveRows writes the rows of the first successful search as JSON.
func saveRows(ctx context.Context, filename string, results []searchResult) error {
	for _, res := range results {
		if res.status != http.StatusOK || res.envelope.Error {
			continue
		}

		if dir := filepath.Dir(filename); dir != "." {
			if err := os.MkdirAll(dir, directoryPermission); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
		}
		data, err := json.MarshalIndent(res.envelope.Data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal rows: %w", err)
		}
		if err := os.WriteFile(filename, append(data, '\n'), outputPermission); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		logger.Named("probe").Info(ctx, "rows saved to file", logger.String("filename", filename))
		return nil
	}
	return errors.New("no successful search to save")
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var requestsPerSecond float64
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.Requests) / stats.Duration.Seconds()
	}

	logger.Named("probe").Info(ctx, "final statistics",
		logger.String("runID", stats.RunID),
		logger.Int("requests", stats.Requests),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("violations", stats.Violations),
		logger.Int("rows", stats.Rows),
		logger.Int("distinctPlayers", stats.DistinctPlayers),
		logger.Int64("slowestRequestMs", stats.SlowestRequestMs),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
