package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	// Bundled root certificates for environments without a system cert store.
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/matshaug/flagline/internal/adapters/cache"
	"github.com/matshaug/flagline/internal/adapters/cachestore"
	"github.com/matshaug/flagline/internal/adapters/pagebridge"
	"github.com/matshaug/flagline/internal/app"
	"github.com/matshaug/flagline/internal/config"
	"github.com/matshaug/flagline/internal/dispatch"
	"github.com/matshaug/flagline/internal/dom"
	"github.com/matshaug/flagline/internal/domain"
	"github.com/matshaug/flagline/internal/ports"
	"github.com/matshaug/flagline/internal/ratelimiting"
	"github.com/matshaug/flagline/internal/reporting"
	"github.com/matshaug/flagline/internal/scan"
	"github.com/matshaug/flagline/internal/telemetry"
	"github.com/matshaug/flagline/internal/watch"
)

const (
	maxConcurrentDispatches = 2
	minDispatchInterval     = 2 * time.Second

	retryRefillInterval = 30 * time.Second
	retryBurstSize      = 3
)

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	conf, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sentryMiddleware, flushSentry, err := reporting.NewSentryMiddlewareOrMock(conf)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flushSentry()
	logger.Info("Initialized Sentry middleware")

	shutdownOTel, err := telemetry.SetupOTelSDK(ctx, "flagline")
	if err != nil {
		fail("Failed to initialize OpenTelemetry", "error", err.Error())
	}
	defer func() {
		if err := shutdownOTel(context.WithoutCancel(ctx)); err != nil {
			logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
		}
	}()

	instruments, err := telemetry.NewInstruments()
	if err != nil {
		fail("Failed to create instruments", "error", err.Error())
	}

	snapshots, err := cachestore.NewPostgresSnapshotStoreOrStub(ctx, conf, logger.With("component", "snapshots"))
	if err != nil {
		fail("Failed to initialize snapshot store", "error", err.Error())
	}

	store := cachestore.New(snapshots, logger.With("component", "cachestore"), time.Now, time.After)
	if err := store.LoadFromStorage(ctx); err != nil {
		// Best effort: an empty cache only costs extra lookups.
		logger.Warn("Failed to load location cache", "error", err.Error())
	}
	go store.Run(ctx)

	window := ratelimiting.NewWindow()

	transport, err := pagebridge.NewZMQTransport(ctx, conf.BridgeEndpoint(), logger.With("component", "bridge"))
	if err != nil {
		fail("Failed to connect page bridge", "error", err.Error())
	}
	bridge := pagebridge.New(transport, window, logger.With("component", "bridge"), time.Now, time.After)
	defer bridge.Close()
	logger.Info("Connected page bridge", "endpoint", conf.BridgeEndpoint())

	limiter := ratelimiting.NewDispatchLimiter(maxConcurrentDispatches, minDispatchInterval, window, time.Now, time.After)
	queue := dispatch.NewQueue(bridge, limiter, window, instruments, time.Now)
	defer queue.Close()

	sessionCache := cache.NewBasicCache[domain.LookupResult]()
	resolveLocation := app.BuildResolveLocation(sessionCache, store, queue, instruments)

	retryLimiter, stopRetryLimiter := ratelimiting.NewTokenBucketRetryLimiter(retryRefillInterval, retryBurstSize)
	defer stopRetryLimiter()

	annotator := scan.NewAnnotator(scan.ResolveFunc(resolveLocation), retryLimiter, instruments)
	annotate := app.BuildAnnotate(annotator)

	doc := dom.NewDocument("")
	watcher := watch.NewWatcher(func() { annotate(ctx, doc) }, time.After)
	watcher.Attach(doc)

	if enabled, err := snapshots.Enabled(ctx); err != nil {
		logger.Warn("Failed to load enabled flag", "error", err.Error())
	} else {
		watcher.SetEnabled(enabled)
	}

	toggle := app.BuildToggle(watcher, doc, annotator, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc(
		"POST /v1/toggle",
		ports.MakeToggleHandler(
			toggle,
			logger.With("port", "toggle"),
			sentryMiddleware,
		),
	)
	mux.HandleFunc(
		"GET /v1/status",
		ports.MakeStatusHandler(
			watcher,
			store,
			queue,
			window,
			time.Now,
			logger.With("port", "status"),
			sentryMiddleware,
		),
	)

	server := &http.Server{
		Addr:    conf.ControlAddr(),
		Handler: otelhttp.NewHandler(mux, "control"),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down control server", "error", err.Error())
		}
	}()

	logger.Info("Init complete", "controlAddr", conf.ControlAddr())
	err = server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}

	// The store's Run goroutine flushes one last time when ctx is canceled;
	// flush here as well in case the server exited first.
	store.FlushToStorage(context.WithoutCancel(ctx))
}
