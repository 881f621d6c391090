package app

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"relayforge/internal/config"
	"relayforge/internal/infrastructure/extract"
	"relayforge/internal/infrastructure/feed"
	"relayforge/internal/infrastructure/llm"
	"relayforge/internal/infrastructure/media"
	"relayforge/internal/infrastructure/platform"
	"relayforge/internal/infrastructure/queue"
	"relayforge/internal/infrastructure/scheduler"
	"relayforge/internal/infrastructure/storage"
	"relayforge/internal/ports"
	"relayforge/internal/server"
	"relayforge/internal/usecase"
)

// App owns every long-running component of the pipeline process: the
// three stage consumers, the harvest/poll/refresh drivers and the
// operator API.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	relays    []*usecase.Relay
	drivers   []ports.IntervalDriver
	startJobs []func(ctx context.Context) error
	server    *server.Server
}

// New constructs and wires every component once. Nothing starts running
// until Run.
func New(cfg config.Config, logger *slog.Logger, db *sql.DB, broker *queue.Redis) *App {
	jobs := storage.NewJobRepository(db)
	ledger := storage.NewLedgerRepository(db)
	schedules := storage.NewScheduleRepository(db)
	publications := storage.NewPublicationRepository(db)

	harvestClient := &http.Client{Timeout: cfg.Harvester.RequestTimeout.Std()}
	extractClient := &http.Client{Timeout: cfg.Harvester.ExtractTimeout.Std()}

	registry := platform.NewRegistry(
		platform.NewYouTube(cfg.Distribution.YouTube, nil),
		platform.NewInstagram(cfg.Distribution.Instagram, nil),
		platform.NewTwitter(cfg.Distribution.Twitter, nil),
		platform.NewLinkedIn(cfg.Distribution.LinkedIn, nil),
	)

	tracker := usecase.NewTracker(usecase.TrackerDeps{
		Store:     publications,
		Registry:  registry,
		CallDelay: cfg.Analytics.CallDelay.Std(),
		Logger:    logger,
	})

	postingScheduler := usecase.NewPostingScheduler(usecase.PostingSchedulerDeps{
		Store:             schedules,
		Jobs:              jobs,
		Publisher:         broker,
		DistributionQueue: cfg.Queues.Distribution,
		BatchSize:         cfg.Scheduler.BatchSize,
		Logger:            logger,
	})

	distributor := usecase.NewDistributor(usecase.DistributorDeps{
		Jobs:             jobs,
		Registry:         registry,
		Scheduler:        postingScheduler,
		Tracker:          tracker,
		DefaultPlatforms: cfg.Distribution.DefaultPlatforms,
		Logger:           logger,
	})

	analysisStage := usecase.NewAnalysisStage(usecase.AnalysisStageDeps{
		Jobs:       jobs,
		Extractor:  extract.NewGoqueryExtractor(extractClient, cfg.Harvester.UserAgent, cfg.Harvester.ArticleTextCap),
		Analyzer:   llm.NewChatGPTAnalyzer(cfg.Analysis, logger),
		Publisher:  broker,
		MediaQueue: cfg.Queues.Media,
		Logger:     logger,
	})

	mediaStage := usecase.NewMediaStage(usecase.MediaStageDeps{
		Jobs:              jobs,
		Synthesizer:       media.NewWavSynthesizer(),
		Store:             media.NewHTTPObjectStore(cfg.Media, nil),
		Publisher:         broker,
		DistributionQueue: cfg.Queues.Distribution,
		Logger:            logger,
	})

	harvester := usecase.NewHarvester(usecase.HarvesterDeps{
		Feeds:      cfg.Harvester.Feeds,
		Source:     feed.NewRSSSource(harvestClient, cfg.Harvester.UserAgent),
		Ledger:     ledger,
		Jobs:       jobs,
		Publisher:  broker,
		StoryQueue: cfg.Queues.Story,
		Logger:     logger,
	})

	operator := usecase.NewOperator(usecase.OperatorDeps{
		Jobs:              jobs,
		Publisher:         broker,
		Distributor:       distributor,
		StoryQueue:        cfg.Queues.Story,
		DistributionQueue: cfg.Queues.Distribution,
		Logger:            logger,
	})

	app := &App{cfg: cfg, logger: logger}

	app.relays = []*usecase.Relay{
		usecase.NewRelay(cfg.Queues.Story, broker, analysisStage.HandleStory, logger),
		usecase.NewRelay(cfg.Queues.Media, broker, mediaStage.HandleMedia, logger),
		usecase.NewRelay(cfg.Queues.Distribution, broker, distributor.HandleDistribution, logger),
	}

	harvestDriver := scheduler.NewIntervalScheduler(cfg.Harvester.Interval.Std())
	pollDriver := scheduler.NewIntervalScheduler(cfg.Scheduler.PollInterval.Std())
	refreshDriver := scheduler.NewIntervalScheduler(cfg.Analytics.RefreshInterval.Std())
	app.drivers = []ports.IntervalDriver{harvestDriver, pollDriver, refreshDriver}

	app.server = server.New(server.Deps{
		Jobs:      jobs,
		Registry:  registry,
		Operator:  operator,
		Scheduler: postingScheduler,
		Tracker:   tracker,
		Window:    cfg.Analytics.Window.Std(),
		Logger:    logger,
	})

	app.startJobs = []func(ctx context.Context) error{
		func(ctx context.Context) error {
			if cfg.Harvester.RunOnce {
				go harvester.Run(ctx, time.Now())
				return nil
			}
			return harvestDriver.Start(ctx, func(now time.Time) { harvester.Run(ctx, now) })
		},
		func(ctx context.Context) error {
			return pollDriver.Start(ctx, func(now time.Time) { postingScheduler.Poll(ctx, now) })
		},
		func(ctx context.Context) error {
			return refreshDriver.Start(ctx, func(time.Time) { tracker.BulkRefresh(ctx, cfg.Analytics.Window.Std()) })
		},
	}

	return app
}

// Run starts consumers, drivers and the API, then blocks until the
// context is cancelled and everything wound down.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, relay := range a.relays {
		wg.Add(1)
		go func(r *usecase.Relay) {
			defer wg.Done()
			if err := r.Run(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("relay stopped", "error", err)
			}
		}(relay)
	}

	for _, start := range a.startJobs {
		if err := start(ctx); err != nil {
			return err
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Listen(a.cfg.Server.Addr)
	}()
	a.logger.Info("pipeline running",
		"addr", a.cfg.Server.Addr,
		"queues", []string{a.cfg.Queues.Story, a.cfg.Queues.Media, a.cfg.Queues.Distribution})

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, driver := range a.drivers {
		if err := driver.Stop(shutdownCtx); err != nil {
			a.logger.Error("driver stop failed", "error", err)
		}
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown failed", "error", err)
	}
	wg.Wait()

	a.logger.Info("pipeline stopped")
	return nil
}
