// Package service wires the squad balancer, the scoring engine and the
// prediction pipeline behind the operations the HTTP API and CLIs use.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/smfc/matchday/internal/adapters/mq/queue"
	"github.com/smfc/matchday/internal/adapters/mq/worker"
	"github.com/smfc/matchday/internal/adapters/repository"
	"github.com/smfc/matchday/internal/domain/dedupe"
	"github.com/smfc/matchday/internal/domain/model"
	"github.com/smfc/matchday/internal/domain/squad"
	"github.com/smfc/matchday/pkg/logger"
	"github.com/smfc/matchday/pkg/metrics"
)

// Defaults applied by New.
const (
	DefaultVenue  = "Turf"
	DefaultFormat = "5v5"

	defaultQueueSize  = 10_000
	defaultDedupeSize = 50_000
)

// Service implements the API dependencies for the club.
type Service struct {
	mu sync.RWMutex

	store        repository.Store
	balancer     *squad.Balancer
	balancerOpts []squad.Option
	deduper      dedupe.Deduper
	queue        *queue.InMemoryQueue
	pool         *worker.Pool

	// draftMu serializes draws from the jitter source.
	draftMu sync.Mutex
	// matchMu serializes read-modify-write cycles on matches.
	matchMu sync.Mutex

	workerCount int
	queueSize   int
	dedupeSize  int

	// ownsStore is set when New created the store itself.
	ownsStore bool
	started   bool
	logger    logger.Logger
}

// New constructs a Service. Without WithStore it keeps data in memory.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.ownsStore = true
	}
	s.balancer = squad.NewBalancer(s.balancerOpts...)
	return s
}

// Start creates the ingestion pipeline and starts the workers. The workers
// outlive ctx's cancellation; they stop in Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store)
	s.pool.Start(context.WithoutCancel(ctx))
	s.started = true

	s.logger.Info(ctx, "matchday service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued submissions. A store created by New is closed too; one
// passed with WithStore is left to its owner.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping matchday service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain workers: %w", err))
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	s.started = false
	s.logger.Info(ctx, "matchday service stopped", logger.Int("processed", int(s.pool.Processed())))
	return errors.Join(errs...)
}

// Roster returns every rated player sorted by name.
func (s *Service) Roster(ctx context.Context) ([]model.RatedPlayer, error) {
	return s.store.Roster(ctx)
}

// ReplaceRoster swaps the roster. Names are trimmed, positions normalized
// and duplicate names rejected.
func (s *Service) ReplaceRoster(ctx context.Context, players []model.RatedPlayer) error {
	seen := make(map[string]struct{}, len(players))
	clean := make([]model.RatedPlayer, 0, len(players))
	for _, p := range players {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return fmt.Errorf("%w: player without a name", ErrUnknownPlayer)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: %q listed twice", ErrUnknownPlayer, p.Name)
		}
		seen[p.Name] = struct{}{}
		p.Position = model.ParsePosition(string(p.Position))
		clean = append(clean, p)
	}
	if err := s.store.ReplaceRoster(ctx, clean); err != nil {
		return err
	}
	s.refreshCounts(ctx)
	return nil
}

// Draft balances the named roster players plus guests into two teams.
// Repeated names count once.
func (s *Service) Draft(ctx context.Context, names, guests []string) (model.Squad, error) {
	players := make([]model.RatedPlayer, 0, len(names))
	seen := make(map[string]struct{}, len(names)+len(guests))
	var unknown []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if _, dup := seen[name]; dup || name == "" {
			continue
		}
		seen[name] = struct{}{}

		p, err := s.store.Player(ctx, name)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			unknown = append(unknown, name)
			continue
		case err != nil:
			return model.Squad{}, err
		}
		players = append(players, p)
	}
	if len(unknown) > 0 {
		return model.Squad{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, strings.Join(unknown, ", "))
	}

	guestNames := make([]string, 0, len(guests))
	for _, g := range guests {
		g = strings.TrimSpace(g)
		if _, dup := seen[g]; dup || g == "" {
			continue
		}
		seen[g] = struct{}{}
		guestNames = append(guestNames, g)
	}

	entrants := len(players) + len(guestNames)
	if entrants < 2 {
		return model.Squad{}, fmt.Errorf("%w: got %d", ErrTooFewPlayers, entrants)
	}

	s.draftMu.Lock()
	result := s.balancer.Draft(players, guestNames)
	s.draftMu.Unlock()

	metrics.RecordDraft(entrants)
	s.log().Info(ctx, "squad drafted",
		logger.Int("entrants", entrants),
		logger.Float64("red_strength", result.Strength(model.TeamRed)),
		logger.Float64("blue_strength", result.Strength(model.TeamBlue)),
	)
	return result, nil
}

// Transfer swaps one red player with one blue player.
func (s *Service) Transfer(ctx context.Context, current model.Squad, fromRed, fromBlue string) (model.Squad, error) {
	next, err := squad.Transfer(current, fromRed, fromBlue)
	if err != nil {
		metrics.RecordTransfer("not_found")
		return current, err
	}
	metrics.RecordTransfer("ok")
	s.log().Debug(ctx, "players transferred", logger.String("to_blue", fromRed), logger.String("to_red", fromBlue))
	return next, nil
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

func (s *Service) refreshCounts(ctx context.Context) {
	c, err := s.store.Counts(ctx)
	if err != nil {
		return
	}
	metrics.UpdateStoreCounts(c.Players, c.Matches, c.Predictions)
}
