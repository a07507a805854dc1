package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/brandlens/brandlens/internal/cache"
	"github.com/brandlens/brandlens/internal/common"
	"github.com/brandlens/brandlens/internal/handlers"
	"github.com/brandlens/brandlens/internal/interfaces"
	"github.com/brandlens/brandlens/internal/models"
	"github.com/brandlens/brandlens/internal/providers"
	"github.com/brandlens/brandlens/internal/queue"
	"github.com/brandlens/brandlens/internal/ratelimit"
	"github.com/brandlens/brandlens/internal/services/judge"
	"github.com/brandlens/brandlens/internal/services/llm"
	"github.com/brandlens/brandlens/internal/services/metrics"
	"github.com/brandlens/brandlens/internal/services/scanner"
	"github.com/brandlens/brandlens/internal/services/scheduler"
	badgerstore "github.com/brandlens/brandlens/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager *badgerstore.Manager
	Queue          interfaces.QueueManager
	Cache          interfaces.AnswerCache
	Limiter        interfaces.RateLimiter
	Policies       ratelimit.Policies

	Providers  *providers.Factory
	Scanner    *scanner.Service
	Executor   *scanner.Executor
	Judge      *judge.Runner
	Scheduler  interfaces.SchedulerService
	Aggregator *metrics.Aggregator

	scanPool *queue.WorkerPool
	evalPool *queue.WorkerPool

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	KeywordHandler   *handlers.KeywordHandler
	ScanHandler      *handlers.ScanHandler
	DashboardHandler *handlers.DashboardHandler
	StatusHandler    *handlers.StatusHandler
	CacheHandler     *handlers.CacheHandler
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := app.initServices(ctx); err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.initHandlers()

	return app, nil
}

func (a *App) initStorage() error {
	manager, err := badgerstore.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.StorageManager = manager
	return nil
}

func (a *App) initServices(ctx context.Context) error {
	db := a.StorageManager.DB().Raw()

	cacheTTL := common.ParseDurationOr(a.Config.Cache.TTL, 24*time.Hour)
	a.Cache = cache.NewAnswerCache(db, cacheTTL, a.Logger)

	a.Limiter = ratelimit.NewLimiter(db, a.StorageManager.QuotaStorage(), a.Logger)
	a.Policies = ratelimit.NewPolicies(&a.Config.RateLimits)

	providerTimeout := common.ParseDurationOr(a.Config.Scan.ProviderTimeout, 60*time.Second)
	factory, err := providers.NewFactory(ctx, &a.Config.Providers, providerTimeout, a.Logger)
	if err != nil {
		return err
	}
	a.Providers = factory

	visibilityTimeout := common.ParseDurationOr(a.Config.Queue.VisibilityTimeout, 5*time.Minute)
	queueMgr, err := queue.NewBadgerManager(db, visibilityTimeout, a.Config.Queue.MaxReceive, a.Logger)
	if err != nil {
		return err
	}
	a.Queue = queueMgr

	engineDelay := common.ParseDurationOr(a.Config.Scan.EngineDelay, 5*time.Second)
	a.Scanner = scanner.NewService(
		a.StorageManager.KeywordStorage(),
		a.StorageManager.ScanStorage(),
		a.Queue,
		a.Providers,
		a.Limiter,
		a.Policies.ScanQuota,
		engineDelay,
		a.Logger,
	)
	a.Executor = scanner.NewExecutor(
		a.StorageManager.KeywordStorage(),
		a.StorageManager.ScanStorage(),
		a.Queue,
		a.Providers,
		a.Cache,
		a.Logger,
	)

	judgeLLM, err := llm.NewService(ctx, a.Config, a.Logger)
	if err != nil {
		return err
	}
	corrector, err := llm.NewCorrectionService(ctx, a.Config, a.Logger)
	if err != nil {
		return err
	}
	evaluator := judge.NewEvaluator(judgeLLM, corrector, a.Logger)
	a.Judge = judge.NewRunner(
		evaluator,
		a.StorageManager.KeywordStorage(),
		a.StorageManager.ScanStorage(),
		a.Logger,
	)

	a.Scheduler = scheduler.NewService(a.Scanner, a.StorageManager.KeywordStorage(), &a.Config.Scheduler, a.Logger)
	a.Aggregator = metrics.NewAggregator(a.StorageManager.ScanStorage(), a.Logger)

	a.initWorkerPools()
	return nil
}

// initWorkerPools wires the two pools: scan probes against external engines
// (small, backoff-heavy) and evaluations (larger, judge calls only).
func (a *App) initWorkerPools() {
	pollInterval := common.ParseDurationOr(a.Config.Queue.PollInterval, time.Second)
	backoffBase := common.ParseDurationOr(a.Config.Queue.RetryBackoffBase, 30*time.Second)

	a.scanPool = queue.NewWorkerPool(a.Queue, queue.WorkerPoolConfig{
		Queue:        queue.ScanQueue,
		Concurrency:  a.Config.Queue.ScanConcurrency,
		PollInterval: pollInterval,
		BackoffBase:  backoffBase,
		MaxReceive:   a.Config.Queue.MaxReceive,
	}, func(ctx context.Context, msg *interfaces.ReceivedMessage) error {
		task, err := msg.Task.DecodeScanTask()
		if err != nil {
			return err
		}
		return a.Executor.ExecuteScan(ctx, task)
	}, func(ctx context.Context, msg *interfaces.ReceivedMessage, cause error) {
		task, err := msg.Task.DecodeScanTask()
		if err != nil {
			return
		}
		a.Executor.FailJob(ctx, task, fmt.Sprintf("retries exhausted: %v", cause))
	}, a.Logger)

	a.evalPool = queue.NewWorkerPool(a.Queue, queue.WorkerPoolConfig{
		Queue:        queue.EvaluateQueue,
		Concurrency:  a.Config.Queue.EvalConcurrency,
		PollInterval: pollInterval,
		BackoffBase:  backoffBase,
		MaxReceive:   a.Config.Queue.MaxReceive,
	}, func(ctx context.Context, msg *interfaces.ReceivedMessage) error {
		task, err := msg.Task.DecodeEvaluateTask()
		if err != nil {
			return err
		}
		return a.Judge.ExecuteEvaluate(ctx, task)
	}, nil, a.Logger)
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.KeywordHandler = handlers.NewKeywordHandler(a.StorageManager.KeywordStorage(), a.Scheduler, a.Scanner, a.Logger)
	a.ScanHandler = handlers.NewScanHandler(a.StorageManager.ScanStorage(), a.Logger)
	a.DashboardHandler = handlers.NewDashboardHandler(a.Aggregator, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StorageManager.ScanStorage(), a.Queue, a.Scheduler, a.Logger)
	a.CacheHandler = handlers.NewCacheHandler(a.Cache, a.Logger)
}

// Start runs startup reconciliation, seeds keyword definitions, and brings
// up the worker pools and scheduler.
func (a *App) Start(ctx context.Context) error {
	// Jobs stuck in processing from a previous run can never complete:
	// their queue messages are gone or will dead-letter.
	failed, err := a.StorageManager.ScanStorage().MarkProcessingJobsFailed(ctx, "orphaned by restart")
	if err != nil {
		return fmt.Errorf("failed to reconcile orphaned jobs: %w", err)
	}
	if failed > 0 {
		a.Logger.Warn().Int("jobs", failed).Msg("Marked orphaned processing jobs failed")
	}

	if dir := a.Config.Keywords.DefinitionsDir; dir != "" {
		if err := badgerstore.LoadKeywordsFromFiles(ctx, a.StorageManager.KeywordStorage(), dir, a.Logger); err != nil {
			a.Logger.Warn().Err(err).Str("dir", dir).Msg("Failed to load keyword definitions")
		}
	}

	a.scanPool.Start()
	a.evalPool.Start()

	if err := a.Scheduler.SyncAllSchedules(ctx); err != nil {
		return fmt.Errorf("failed to sync schedules: %w", err)
	}
	if err := a.Scheduler.Start(); err != nil {
		return err
	}

	a.Logger.Info().
		Strs("engines", a.Providers.Engines()).
		Int("scan_workers", a.Config.Queue.ScanConcurrency).
		Int("eval_workers", a.Config.Queue.EvalConcurrency).
		Msg("Pipeline started")
	return nil
}

// Close shuts down components in reverse dependency order
func (a *App) Close() error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Scheduler stop failed")
		}
	}
	if a.scanPool != nil {
		a.scanPool.Stop()
	}
	if a.evalPool != nil {
		a.evalPool.Stop()
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}

// PendingJobs reports queue backlog, used by the shutdown path to decide
// whether to wait for drain.
func (a *App) PendingJobs(ctx context.Context) int {
	total := 0
	for _, name := range []string{queue.ScanQueue, queue.EvaluateQueue} {
		depth, err := a.Queue.Depth(ctx, name)
		if err != nil {
			continue
		}
		total += depth
	}
	count, err := a.StorageManager.ScanStorage().CountJobsByStatus(ctx, models.ScanStatusProcessing)
	if err == nil {
		total += count
	}
	return total
}
