// Package gazette turns detected resource changes into consumable feeds:
// producers submit change records, an asynchronous worker enriches them with
// generated summaries, and readers consume cached RSS views with per-reader
// read state layered on top.
package gazette

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/feedwatch/feedcache"
	"github.com/hazyhaar/feedwatch/gazette/internal/store"
	"github.com/hazyhaar/feedwatch/horosafe"
	"github.com/hazyhaar/feedwatch/idgen"
	"github.com/hazyhaar/feedwatch/observability"
	"github.com/hazyhaar/feedwatch/summarize"
	"github.com/hazyhaar/feedwatch/vtq"
)

// enrichQueue is the vtq queue name for enrichment jobs.
const enrichQueue = "enrich"

// Service is the main gazette orchestrator.
type Service struct {
	db           *sql.DB
	store        *store.Store
	queue        *vtq.Q
	cache        *feedcache.Cache
	gen          summarize.Generator
	events       *observability.EventLogger
	logger       *slog.Logger
	config       *Config
	newID        func() string
	now          func() time.Time
	urlValidator func(string) error
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*Service)

// WithIDGenerator overrides the record/entity ID generator.
func WithIDGenerator(gen idgen.Generator) ServiceOption {
	return func(svc *Service) { svc.newID = gen }
}

// WithClock overrides time.Now, for deterministic tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(svc *Service) { svc.now = now }
}

// WithEventLogger sets the operational event sink. Enrichment outcomes and
// dead-lettered jobs are recorded there.
func WithEventLogger(events *observability.EventLogger) ServiceOption {
	return func(svc *Service) { svc.events = events }
}

// WithCache overrides the internally constructed feed cache.
func WithCache(c *feedcache.Cache) ServiceOption {
	return func(svc *Service) { svc.cache = c }
}

// WithURLValidator overrides resource URL validation (default:
// horosafe.ValidateURL). Use in tests that register loopback URLs.
func WithURLValidator(fn func(string) error) ServiceOption {
	return func(svc *Service) { svc.urlValidator = fn }
}

// New creates a gazette Service on an already-opened database. It applies
// the schema (idempotent) and prepares the enrichment queue; call Start to
// launch the worker. A nil generator disables enrichment.
func New(db *sql.DB, gen summarize.Generator, cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	if gen == nil {
		gen = summarize.Disabled{}
	}

	if _, err := db.Exec(store.Schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	svc := &Service{
		db:           db,
		store:        store.NewStore(db),
		gen:          gen,
		logger:       logger,
		config:       cfg,
		newID:        idgen.Default,
		now:          time.Now,
		urlValidator: horosafe.ValidateURL,
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.cache == nil {
		svc.cache = feedcache.New(feedcache.Options{
			TTL:    cfg.CacheTTL,
			Bypass: cfg.CacheBypass,
			Logger: logger,
		})
	}

	svc.queue = vtq.New(db, vtq.Options{
		Queue:        enrichQueue,
		Visibility:   cfg.Worker.Visibility,
		PollInterval: cfg.Worker.PollInterval,
		MaxAttempts:  cfg.Worker.MaxAttempts,
		Backoff: vtq.Backoff{
			Base: cfg.Worker.BackoffBase,
			Max:  cfg.Worker.BackoffMax,
		},
		DeadLetter: svc.deadLetter,
		Logger:     logger,
	})
	if err := svc.queue.EnsureTable(context.Background()); err != nil {
		return nil, fmt.Errorf("ensure queue table: %w", err)
	}

	return svc, nil
}

// Start launches the background enrichment worker. Non-blocking; the worker
// stops when ctx is cancelled, draining in-flight enrichments first.
func (svc *Service) Start(ctx context.Context) {
	go svc.queue.RunBatch(ctx, svc.config.Worker.BatchSize, svc.config.Worker.Concurrency, svc.handleEnrichJob)
	svc.logger.Info("gazette: started",
		"enrichment", svc.gen.Available(),
		"cache_ttl", svc.config.CacheTTL,
	)
}

// Close shuts down the service. The database is owned by the caller.
func (svc *Service) Close() error {
	svc.logger.Info("gazette: closed")
	return nil
}

// CacheStats returns the feed cache counters.
func (svc *Service) CacheStats() feedcache.Stats {
	return svc.cache.Stats()
}

// QueueLen returns the number of pending enrichment jobs.
func (svc *Service) QueueLen(ctx context.Context) (int, error) {
	return svc.queue.Len(ctx)
}
