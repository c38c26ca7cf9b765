// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/inactives/internal/adapters/provider"
	"github.com/okian/inactives/internal/domain/activity"
	"github.com/okian/inactives/internal/domain/matching"
	"github.com/okian/inactives/internal/domain/model"
	"github.com/okian/inactives/internal/domain/ranking"
	"github.com/okian/inactives/pkg/logger"
	"github.com/okian/inactives/pkg/metrics"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// Provider is the source of map snapshots and API keys.
type Provider interface {
	FetchSnapshot(ctx context.Context, world, apiKey string, date *time.Time) (model.Snapshot, error)
	ObtainAPIKey(ctx context.Context, world string) (string, error)
}

// Query describes one inactive search.
type Query struct {
	World       string
	InactiveFor int    // days between the two snapshots
	APIKey      string // optional; obtained from the provider when empty
	Criteria    ranking.Criteria
}

// Service finds inactive players by diffing two snapshots of a world.
type Service struct {
	mu sync.RWMutex

	provider Provider
	workers  int
	now      func() time.Time

	// State
	started bool

	// Counters for GetStats.
	served       atomic.Int64
	failed       atomic.Int64
	keysObtained atomic.Int64
	lastRows     atomic.Int64
	lastTookMs   atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProvider sets the snapshot source.
func WithProvider(p Provider) Option {
	return func(s *Service) {
		if p != nil {
			s.provider = p
		}
	}
}

// WithWorkerCount sets how many goroutines classify matched players.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workers = count
		}
	}
}

// WithClock overrides the time source used to date the aged snapshot.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workers: runtime.NumCPU(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start prepares the service for requests.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.provider == nil {
		return ErrNoProvider
	}

	s.started = true
	s.logger.Info(ctx, "inactive finder service started", logger.Int("workers", s.workers))
	return nil
}

// Stop marks the service as stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "inactive finder service stopped")
}

// ComputeInactives returns the players of world whose villages show no
// activity over the last inactiveFor days. An empty apiKey makes the service
// obtain a fresh one from the provider; keys never outlive the request.
func (s *Service) ComputeInactives(ctx context.Context, world string, inactiveFor int, apiKey string) ([]model.Player, error) {
	if world == "" {
		return nil, eris.Wrap(ErrInvalidQuery, "no gameworld provided")
	}
	if inactiveFor < 1 {
		return nil, eris.Wrapf(ErrInvalidQuery, "inactive_for must be at least 1, got %d", inactiveFor)
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	key, err := s.apiKey(ctx, world, apiKey)
	if err != nil {
		return nil, err
	}

	recent, aged, err := s.fetchPair(ctx, world, key, inactiveFor)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pairs := matching.Match(recent.Players, aged.Players)
	inactive, err := activity.Detect(ctx, pairs, s.workers)
	if err != nil {
		return nil, eris.Wrap(err, "classify players")
	}
	took := time.Since(start)
	metrics.RecordClassification(len(pairs), len(inactive), float64(took.Milliseconds()))

	s.log().Debug(ctx, "classified players",
		logger.String("world", world),
		logger.Int("recent", len(recent.Players)),
		logger.Int("aged", len(aged.Players)),
		logger.Int("matched", len(pairs)),
		logger.Int("inactive", len(inactive)),
		logger.Duration("took", took),
	)
	return inactive, nil
}

// RankAndFilter applies c to players and returns their villages sorted by
// distance.
func (s *Service) RankAndFilter(players []model.Player, c ranking.Criteria) []model.RankedVillageRow {
	return ranking.Rank(players, c)
}

// FindInactives runs a full search: classification, then filtering and ranking.
func (s *Service) FindInactives(ctx context.Context, q Query) ([]model.RankedVillageRow, error) {
	start := time.Now()

	players, err := s.ComputeInactives(ctx, q.World, q.InactiveFor, q.APIKey)
	if err != nil {
		kind := Kind(err)
		s.failed.Add(1)
		metrics.RecordRequestFailure(kind)
		metrics.RecordErrorByComponent("service", kind)
		metrics.RecordErrorLatency("service", kind, float64(time.Since(start).Milliseconds()))
		s.log().Warn(ctx, "inactive search failed",
			logger.String("world", q.World),
			logger.String("kind", kind),
			logger.Error(err),
		)
		return nil, err
	}

	rows := s.RankAndFilter(players, q.Criteria)
	took := time.Since(start)

	s.served.Add(1)
	s.lastRows.Store(int64(len(rows)))
	s.lastTookMs.Store(took.Milliseconds())
	metrics.RecordRequestServed()
	metrics.RecordRankedRows(len(rows))

	s.log().Info(ctx, "inactive search served",
		logger.String("world", q.World),
		logger.Int("inactiveFor", q.InactiveFor),
		logger.Int("players", len(players)),
		logger.Int("rows", len(rows)),
		logger.Duration("took", took),
	)
	return rows, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workers,
		"keysObtained":   s.keysObtained.Load(),
		"requestsServed": s.served.Load(),
		"requestsFailed": s.failed.Load(),
		"lastRows":       s.lastRows.Load(),
		"lastTookMs":     s.lastTookMs.Load(),
	}
}

// fetchPair loads the current snapshot and the one inactiveFor days old
// concurrently. The first failure cancels the other fetch.
func (s *Service) fetchPair(ctx context.Context, world, key string, inactiveFor int) (model.Snapshot, model.Snapshot, error) {
	agedAt := s.now().AddDate(0, 0, -inactiveFor)

	var recent, aged model.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = s.provider.FetchSnapshot(gctx, world, key, nil)
		return eris.Wrapf(err, "fetch current snapshot of %s", world)
	})
	g.Go(func() error {
		var err error
		aged, err = s.provider.FetchSnapshot(gctx, world, key, &agedAt)
		return eris.Wrapf(err, "fetch snapshot of %s from %s", world, agedAt.Format(provider.DateLayout))
	})
	if err := g.Wait(); err != nil {
		return model.Snapshot{}, model.Snapshot{}, err
	}
	return recent, aged, nil
}

// apiKey returns explicit when set, else a key obtained for this request.
func (s *Service) apiKey(ctx context.Context, world, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	key, err := s.provider.ObtainAPIKey(ctx, world)
	if err != nil {
		return "", eris.Wrapf(err, "obtain api key for %s", world)
	}
	s.keysObtained.Add(1)
	return key, nil
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.provider == nil {
		return ErrNoProvider
	}
	return nil
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Get().Named("service")
	}
	return l
}
