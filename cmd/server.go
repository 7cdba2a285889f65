package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vibeify/config"
	"vibeify/handlers"
	"vibeify/middleware"
	"vibeify/services"
	"vibeify/types"
	"vibeify/websocket"
)

// App holds the wired services behind the HTTP gateway
type App struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	catalog   services.Catalog
	index     *services.MediaIndex
	extractor services.Extractor
	images    *services.ImageStore
	fallbacks *services.Fallbacks
	metrics   *services.Metrics
	registry  *prometheus.Registry
	hub       websocket.Hub
	runner    *services.ScanRunner
	router    *gin.Engine
	closers   []func(context.Context) error
}

// NewApp builds every service from cfg. Progress bars, when enabled, are
// drawn to progressOut.
func NewApp(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, progressOut io.Writer) (*App, error) {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{
		cfg:       cfg,
		log:       log,
		index:     services.NewMediaIndex(),
		extractor: services.NewExtractor(cfg.BaseURL),
		fallbacks: services.NewFallbacks(cfg.Assets.Dir),
		registry:  prometheus.NewRegistry(),
	}
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = services.NewMetrics(app.registry)

	if missing := app.fallbacks.Check(); len(missing) > 0 {
		log.Errorw("placeholder images missing, affected requests will fail", "dir", cfg.Assets.Dir, "kinds", missing)
	}

	app.catalog = app.openCatalog(ctx)

	identifier, err := services.NewIdentifier(cfg.Scan.IdentityCacheSize)
	if err != nil {
		return nil, fmt.Errorf("identity cache: %w", err)
	}
	app.images, err = services.NewImageStore(cfg.Images.Dir, cfg.Images.MaxDimension, log.Named("images"))
	if err != nil {
		return nil, err
	}

	app.hub = websocket.NewHub(log.Named("ws"))
	go app.hub.Run()

	reporters := services.Reporters{services.NewHubReporter(app.hub)}
	if cfg.Scan.ProgressBar && progressOut != nil {
		reporters = append(reporters, services.NewBarReporter(progressOut))
	}

	syncer := services.NewSynchronizer(services.SynchronizerConfig{
		MediaDir:   cfg.Media.Dir,
		Identifier: identifier,
		Extractor:  app.extractor,
		Catalog:    app.catalog,
		Index:      app.index,
		Reporter:   reporters,
		Metrics:    app.metrics,
		Logger:     log.Named("sync"),
	})
	app.runner = services.NewScanRunner(syncer, app.index, log.Named("scan"))
	app.router = app.newRouter()
	return app, nil
}

// openCatalog selects the catalog backend. Connectivity problems never fail
// startup: scans run index-only until the catalog answers.
func (a *App) openCatalog(ctx context.Context) services.Catalog {
	switch a.cfg.Catalog.Driver {
	case "memory":
		a.log.Infow("using in-memory catalog")
		return services.NewMemoryCatalog()
	case "mongo", "":
		catalog, client, err := services.ConnectMongoCatalog(ctx, a.cfg.Mongo.URI, a.cfg.Mongo.Database, a.cfg.Mongo.Collection, a.cfg.Mongo.Timeout)
		if err != nil {
			a.log.Errorw("catalog unavailable, metadata sync disabled", "error", err)
			return nil
		}
		a.closers = append(a.closers, client.Disconnect)
		if err := catalog.Ping(ctx); err != nil {
			a.log.Warnw("catalog not reachable yet", "uri", a.cfg.Mongo.URI, "error", err)
		} else {
			a.log.Infow("connected to catalog", "database", a.cfg.Mongo.Database, "collection", a.cfg.Mongo.Collection)
		}
		return catalog
	default:
		a.log.Errorw("unknown catalog driver, metadata sync disabled", "driver", a.cfg.Catalog.Driver)
		return nil
	}
}

// newRouter configures middleware and all the HTTP routes
func (a *App) newRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(a.cfg.CORS.Origins))
	r.Use(middleware.Logging(a.log.Named("http")))

	healthHandler := handlers.NewHealthHandler(a.index)
	mediaHandler := handlers.NewMediaHandler(a.index, a.extractor, a.fallbacks, a.metrics, a.log.Named("media"))
	imageHandler := handlers.NewImageHandler(a.images, a.fallbacks, a.metrics, a.log.Named("images"))
	scanHandler := handlers.NewScanHandler(a.runner, a.hub, a.log.Named("scan"))

	// Health check endpoint
	r.GET("/", healthHandler.HealthCheck)

	// Media endpoints
	r.GET("/stream/:identity", mediaHandler.StreamFile)
	r.HEAD("/stream/:identity", mediaHandler.StreamFile)
	r.GET("/cover/:identity", mediaHandler.Cover)
	r.GET("/cover/playlist/:ownerId", imageHandler.GetPlaylistCover)

	// Image endpoints
	r.GET("/picture/:ownerId", imageHandler.GetPicture)
	uploadGroup := r.Group("/upload")
	{
		uploadGroup.POST("/profile-picture/:ownerId", imageHandler.UploadProfilePicture)
		uploadGroup.POST("/cover/:ownerId", imageHandler.UploadPlaylistCover)
	}

	// Scan management endpoints
	r.POST("/scan", scanHandler.TriggerScan)
	r.GET("/scan/last", scanHandler.LastScan)
	r.GET("/ws/scan", scanHandler.HandleWebSocketConnection)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	return r
}

// Scan runs one synchronizer pass in the calling goroutine
func (a *App) Scan(ctx context.Context, force bool) (*types.ScanSummary, error) {
	return a.runner.Run(ctx, force)
}

// Serve runs the startup scan, then listens until ctx is cancelled and shuts
// the server down gracefully
func (a *App) Serve(ctx context.Context) error {
	summary, err := a.Scan(ctx, a.cfg.ForceResync)
	if err != nil {
		return err
	}
	if summary.Degraded {
		a.log.Warnw("startup scan ran without catalog, only streaming is available for new files")
	}

	if err := a.runner.Schedule(a.cfg.Scan.Schedule); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(a.cfg.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infow("Vibeify web server starting", "port", a.cfg.Server.Port, "indexed", a.index.Len())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		a.log.Infow("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warnw("graceful shutdown failed", "error", err)
	}
	return nil
}

// Router returns the HTTP handler
func (a *App) Router() http.Handler {
	return a.router
}

// Catalog returns the catalog backend, nil when metadata sync is disabled
func (a *App) Catalog() services.Catalog {
	return a.catalog
}

// Close stops scheduled scans and releases catalog connections
func (a *App) Close(ctx context.Context) {
	a.runner.Stop()
	for _, closer := range a.closers {
		if err := closer(ctx); err != nil {
			a.log.Warnw("close failed", "error", err)
		}
	}
	_ = a.log.Sync()
}
