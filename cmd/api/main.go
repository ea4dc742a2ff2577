package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/kds-backend/api/controllers"
	"github.com/angelmondragon/kds-backend/api/routes"
	"github.com/angelmondragon/kds-backend/internal/bus"
	"github.com/angelmondragon/kds-backend/internal/cron"
	"github.com/angelmondragon/kds-backend/internal/events"
	"github.com/angelmondragon/kds-backend/internal/intake"
	"github.com/angelmondragon/kds-backend/internal/journal"
	"github.com/angelmondragon/kds-backend/internal/realtime"
	"github.com/angelmondragon/kds-backend/internal/session"
	"github.com/angelmondragon/kds-backend/internal/stations"
	"github.com/angelmondragon/kds-backend/pkg/config"
	"github.com/angelmondragon/kds-backend/pkg/db"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/angelmondragon/kds-backend/pkg/metrics"
	"github.com/angelmondragon/kds-backend/pkg/migrate"
	"github.com/angelmondragon/kds-backend/pkg/natsbus"
	"github.com/angelmondragon/kds-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "kds-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "kds-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Fields: map[string]any{
			"env":         cfg.App.Env,
			"location_id": cfg.App.LocationID,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func() error
	readiness := map[string]controllers.Pinger{"db": nil, "redis": nil, "nats": nil}

	var registerer prometheus.Registerer
	if cfg.Metrics.Enabled {
		registerer = prometheus.DefaultRegisterer
	}
	boardMetrics := metrics.NewBoardMetrics(registerer)

	var persister journal.Persister = journal.Noop{}
	var journalService journal.Service
	if cfg.DB.Enabled() {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap database", err)
			os.Exit(1)
		}
		closers = append(closers, dbClient.Close)
		readiness["db"] = dbClient

		if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
			logg.Error(ctx, "failed to run dev migrations", err)
			os.Exit(1)
		}

		repo := journal.NewRepository(dbClient.DB())
		async, err := journal.NewAsyncPersister(journal.AsyncParams{
			Logger:     logg,
			Repository: repo,
			LocationID: cfg.App.LocationID,
			QueueSize:  cfg.Journal.QueueSize,
			Metrics:    boardMetrics,
		})
		if err != nil {
			logg.Error(ctx, "failed to start journal persister", err)
			os.Exit(1)
		}
		closers = append(closers, async.Close)
		persister = async

		journalService, err = journal.NewService(repo)
		if err != nil {
			logg.Error(ctx, "failed to create journal service", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "KDS_DB_DSN not set; ticket journal disabled")
	}

	var (
		idempotency redis.IdempotencyStore
		rateLimiter redis.RateLimiter
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		closers = append(closers, redisClient.Close)
		readiness["redis"] = redisClient
		idempotency = redisClient
		rateLimiter = redisClient
	}

	hub, err := realtime.NewHub(realtime.HubParams{
		Logger:      logg,
		CheckOrigin: allowedOrigin(cfg),
	})
	if err != nil {
		logg.Error(ctx, "failed to create realtime hub", err)
		os.Exit(1)
	}
	closers = append(closers, hub.Close)
	notifiers := []events.Notifier{hub}

	var natsClient *natsbus.Client
	subjects := bus.NewSubjects(cfg.NATS.SubjectPrefix, cfg.App.LocationID)
	var busNotifier *bus.Notifier
	if cfg.NATS.Enabled() {
		natsClient, err = natsbus.New(ctx, cfg.NATS, logg)
		if err != nil {
			logg.Error(ctx, "failed to connect to nats", err)
			os.Exit(1)
		}
		readiness["nats"] = natsClient
		busNotifier, err = bus.NewNotifier(bus.NotifierParams{
			Publisher: natsClient,
			Subjects:  subjects,
			Logger:    logg,
		})
		if err != nil {
			logg.Error(ctx, "failed to create bus notifier", err)
			os.Exit(1)
		}
		notifiers = append(notifiers, busNotifier)
	}

	registry := stations.NewRegistry(cfg.Board.Stations...)
	source, err := intake.SourceFromConfig(cfg.Intake, nil)
	if err != nil {
		logg.Error(ctx, "failed to configure order intake", err)
		os.Exit(1)
	}
	loader, err := intake.NewLoader(intake.LoaderParams{
		Source:     source,
		LocationID: cfg.App.LocationID,
		Logger:     logg,
		Metrics:    boardMetrics,
		Stations:   registry,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order loader", err)
		os.Exit(1)
	}

	board, err := session.New(session.Params{
		LocationID: cfg.App.LocationID,
		Board:      cfg.Board,
		Stations:   registry,
		Logger:     logg,
		Loader:     loader,
		Journal:    persister,
		Notifiers:  notifiers,
		Metrics:    boardMetrics,
		Simulate:   cfg.FeatureFlags.SimulateModifications,
	})
	if err != nil {
		logg.Error(ctx, "failed to create board session", err)
		os.Exit(1)
	}

	if natsClient != nil {
		relay, err := bus.NewMessageRelay(bus.MessageRelayParams{
			Subscriber: natsClient,
			Subjects:   subjects,
			Target:     board,
			Logger:     logg,
			Origin:     busNotifier.Origin(),
		})
		if err != nil {
			logg.Error(ctx, "failed to create message relay", err)
			os.Exit(1)
		}
		if err := relay.Start(ctx); err != nil {
			logg.Error(ctx, "failed to start message relay", err)
			os.Exit(1)
		}
		// Closers run in reverse, so the relay stops before the connection drains.
		closers = append(closers, natsClient.Close, relay.Stop)
	}

	cronMetrics := metrics.NewCronJobMetrics(registerer)
	ticker, err := cron.NewService(cron.ServiceParams{
		Name:     "board-tick",
		Logger:   logg,
		Registry: cron.NewRegistry(board.Jobs()...),
		Lock:     cron.NoopLock{},
		Metrics:  cronMetrics,
		Interval: cfg.Board.TickInterval,
		Quiet:    true,
	})
	if err != nil {
		logg.Error(ctx, "failed to create board ticker", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "orders_loaded", board.Load(ctx)), "initial intake complete")

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promhttp.Handler()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:      cfg,
			Logger:      logg,
			Board:       board,
			Journal:     journalService,
			Idempotency: idempotency,
			RateLimiter: rateLimiter,
			Realtime:    hub,
			Metrics:     metricsHandler,
			Readiness:   readiness,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tickDone := make(chan error, 1)
	go func() {
		tickDone <- ticker.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", addr), "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	shutdownErr := server.Shutdown(shutdownCtx)
	if err := <-tickDone; err != nil && !errors.Is(err, context.Canceled) {
		shutdownErr = multierr.Append(shutdownErr, err)
	}
	shutdownErr = multierr.Append(shutdownErr, board.Close())
	for _, closeFn := range slices.Backward(closers) {
		shutdownErr = multierr.Append(shutdownErr, closeFn())
	}
	if shutdownErr != nil {
		for _, err := range multierr.Errors(shutdownErr) {
			logg.Error(shutdownCtx, "shutdown step failed", err)
		}
		exitCode = 1
	}

	logg.Info(shutdownCtx, "api server stopped")
	os.Exit(exitCode)
}

// allowedOrigin accepts websocket upgrades from the configured dashboard origins. Development
// accepts any origin.
func allowedOrigin(cfg *config.Config) func(*http.Request) bool {
	if cfg.App.IsDev() {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(cfg.App.CORSOrigins, origin)
	}
}
