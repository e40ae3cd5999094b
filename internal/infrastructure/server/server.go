package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"

	apihttp "github.com/GriffinCanCode/SceneOS/backend/internal/api/http"
	"github.com/GriffinCanCode/SceneOS/backend/internal/api/middleware"
	"github.com/GriffinCanCode/SceneOS/backend/internal/api/ws"
	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/directory"
	"github.com/GriffinCanCode/SceneOS/backend/internal/domain/fold"
	"github.com/GriffinCanCode/SceneOS/backend/internal/grpc"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/storage"
	"github.com/GriffinCanCode/SceneOS/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/SceneOS/backend/internal/ipc"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/looper"
	"github.com/GriffinCanCode/SceneOS/backend/internal/shared/types"
)

const shutdownTimeout = 10 * time.Second

// Options overrides process-level dependencies. Zero values select the defaults.
type Options struct {
	Logger     *logging.Logger
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Server wraps the HTTP and IPC servers and their dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	grpcServer *grpclib.Server

	dir     *directory.Manager
	fold    *fold.Controller
	plugins *fold.PluginLoader
	store   *storage.Store
	looper  *looper.Looper
	ws      *ws.Handler

	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	return NewServerWithOptions(cfg, Options{})
}

// NewServerWithOptions creates a server with explicit logger and metrics registry
func NewServerWithOptions(cfg *config.Config, opts Options) (*Server, error) {
	// Initialize logger
	logger := opts.Logger
	if logger == nil {
		if cfg.Logging.Development {
			logger = logging.NewDevelopment()
		} else {
			logger = logging.NewDefault()
		}
		if err := logger.SetLevel(cfg.Logging.Level); err != nil {
			logger.Warn("Invalid log level, keeping default", zap.String("level", cfg.Logging.Level))
		}
	}

	logger.Info("Initializing scene session manager",
		zap.String("port", cfg.Server.Port),
		zap.String("fold_policy", cfg.Fold.Policy),
		zap.Bool("ipc_enabled", cfg.IPC.Enabled),
	)

	// Initialize metrics first (needed by other components)
	reg, gatherer := opts.Registerer, opts.Gatherer
	if reg == nil {
		reg, gatherer = prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	}
	metrics := monitoring.NewMetrics(reg)
	logger.Info("Performance monitoring initialized")

	// Initialize distributed tracing
	tracer := tracing.New("scene", logger.Logger)
	logger.Info("Distributed tracing initialized")

	// Main-thread looper for deferred directory work
	mainLooper := looper.New("main",
		looper.WithLogger(logger.Component("looper")),
		looper.WithObserver(metrics),
	)

	dir := directory.NewManager(
		directory.WithLogger(logger.Logger),
		directory.WithLooper(mainLooper),
		directory.WithSalt(cfg.Scene.IDSalt),
		directory.WithMaxBackground(cfg.Scene.MaxBackground),
		directory.WithResultTimeout(cfg.Scene.ResultTimeout),
		directory.WithDefaultScreen(cfg.Scene.DefaultScreen),
		directory.WithObserver(metrics),
		directory.WithSessionObserver(metrics),
		directory.WithBridgeTimeoutHook(metrics.IncBridgeTimeouts),
	)
	if _, err := dir.AddScreen(cfg.Scene.DefaultScreen, "internal", types.ScreenProperty{
		Width:  cfg.Scene.ScreenWidth,
		Height: cfg.Scene.ScreenHeight,
	}); err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to add default screen: %w", err)
	}

	// Fold engine
	policy, err := newFoldPolicy(cfg, dir, logger)
	if err != nil {
		tracer.Close()
		return nil, err
	}
	controller := fold.NewController(policy, dir, logger.Logger, fold.WithObserver(metrics))
	logger.Info("Fold engine initialized", zap.String("policy", policy.Name()))

	var plugins *fold.PluginLoader
	if cfg.Sensor.Enabled {
		plugins = fold.NewPluginLoader(fold.PluginConfig{
			Dirs:        cfg.Sensor.PluginDir,
			Pattern:     cfg.Sensor.Pattern,
			MaxAttempts: cfg.Sensor.Retries,
			Backoff:     cfg.Sensor.Backoff,
		}, logger.Logger, fold.WithRetryHook(metrics.IncPluginRetries))
	}

	store := storage.NewStore(cfg.Storage.Dir, logger.Logger)
	dumper := directory.NewDumper(dir, controller)

	// IPC stub, optionally served over gRPC
	stub := ipc.NewStub(dir,
		ipc.WithStubLogger(logger.Logger),
		ipc.WithTracer(tracer),
		ipc.WithRecorder(metrics),
		ipc.WithFoldSource(controller),
		ipc.WithDumper(dumper),
	)
	var grpcServer *grpclib.Server
	if cfg.IPC.Enabled {
		grpcServer = grpc.NewGRPCServer(grpc.NewServer(stub, logger.Logger), tracer)
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	// Create handlers
	handlers := apihttp.NewHandlers(dir, controller, plugins, dumper, store,
		apihttp.NewHandlerMetrics(metrics), logger.Logger)
	wsHandler := ws.NewHandler(dir, ws.WithMetrics(metrics), ws.WithLogger(logger.Logger))

	// Register routes
	handlers.RegisterRoutes(router)
	router.GET("/ws", wsHandler.HandleConnection)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	router.GET("/metrics/json", func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Snapshot())
	})

	logger.Info("Server initialized successfully")

	return &Server{
		router:     router,
		grpcServer: grpcServer,
		dir:        dir,
		fold:       controller,
		plugins:    plugins,
		store:      store,
		looper:     mainLooper,
		ws:         wsHandler,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
		tracer:     tracer,
	}, nil
}

// newFoldPolicy picks the fold policy named by the configuration
func newFoldPolicy(cfg *config.Config, dir *directory.Manager, logger *logging.Logger) (fold.Policy, error) {
	switch cfg.Fold.Policy {
	case "dual":
		allow, err := fold.NewAllowList(cfg.Fold.HallSwitchApps)
		if err != nil {
			return nil, fmt.Errorf("invalid hall switch apps: %w", err)
		}
		th := fold.DefaultDualThresholds()
		th.Folded = cfg.Fold.Dual.Folded
		th.Expand = cfg.Fold.Dual.Expand
		th.HalfFoldMin = cfg.Fold.Dual.HalfFoldMin
		th.HalfFoldMax = cfg.Fold.Dual.HalfFoldMax
		th.FoldedLower = cfg.Fold.Dual.FoldedLower
		th.FoldedUpper = cfg.Fold.Dual.FoldedUpper
		return fold.NewDualPolicy(th, allow, logger.Logger, fold.WithAppStateSource(dir)), nil
	default:
		th := fold.DefaultSingleThresholds()
		th.HalfFoldMin = cfg.Fold.Single.HalfFoldMin
		th.HalfFoldMax = cfg.Fold.Single.HalfFoldMax
		th.ExpandMin = cfg.Fold.Single.ExpandMin
		largeFold := storage.NewFeatureFlag(cfg.Fold.LargeFoldFlag).Enabled()
		return fold.NewSinglePolicy(th, largeFold, logger.Logger), nil
	}
}

// Handler returns the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Directory returns the session directory
func (s *Server) Directory() *directory.Manager {
	return s.dir
}

// Start launches background work that must run before serving: the main
// looper and, when enabled, the sensor plugin.
func (s *Server) Start(ctx context.Context) error {
	if err := s.looper.Start(); err != nil {
		return fmt.Errorf("failed to start looper: %w", err)
	}
	if s.plugins == nil {
		return nil
	}
	if err := s.plugins.Load(ctx); err != nil {
		// The engine keeps working on injected readings without the plugin
		s.logger.Error("Sensor plugin unavailable", zap.Error(err))
		return nil
	}
	cb := s.fold.Callback()
	for _, t := range []fold.SensorType{fold.SensorTypePosture, fold.SensorTypeHall, fold.SensorTypeMotion} {
		if err := s.plugins.Subscribe(t, cb); err != nil {
			s.logger.Error("Sensor subscription failed", zap.Stringer("sensor", t), zap.Error(err))
		}
	}
	return nil
}

// Run starts the IPC and HTTP servers and blocks until the HTTP server stops
func (s *Server) Run() error {
	if err := s.Start(context.Background()); err != nil {
		return err
	}

	if s.grpcServer != nil {
		lis, err := net.Listen("tcp", s.config.IPC.Address)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.config.IPC.Address, err)
		}
		s.logger.Info("Starting IPC server", zap.String("addr", s.config.IPC.Address))
		go func() {
			if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpclib.ErrServerStopped) {
				s.logger.Error("IPC server stopped", zap.Error(err))
			}
		}()
	}

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
			errs = append(errs, fmt.Errorf("failed to shut down HTTP server: %w", err))
		}
	}
	s.ws.Close()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
		s.logger.Info("Stopped IPC server")
	}
	if s.plugins != nil && s.plugins.State() == fold.PluginSymbolsResolved {
		for _, t := range []fold.SensorType{fold.SensorTypePosture, fold.SensorTypeHall, fold.SensorTypeMotion} {
			if err := s.plugins.Unsubscribe(t); err != nil {
				s.logger.Debug("Sensor unsubscribe failed", zap.Stringer("sensor", t), zap.Error(err))
			}
		}
	}

	s.looper.Stop()
	s.tracer.Close()

	// Sync logger before exit
	s.logger.Sync()

	return errors.Join(errs...)
}
