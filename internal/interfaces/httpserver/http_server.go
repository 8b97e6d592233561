package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	mediastoragedocs "jan-server/services/media-storage/docs/swagger"
	"jan-server/services/media-storage/internal/config"
	"jan-server/services/media-storage/internal/infrastructure/auth"
	"jan-server/services/media-storage/internal/interfaces/httpserver/handlers"
	"jan-server/services/media-storage/internal/interfaces/httpserver/middlewares"
	v1 "jan-server/services/media-storage/internal/interfaces/httpserver/routes/v1"
)

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
}

// New constructs the HTTP server with default middleware and routes.
func New(cfg *config.Config, log zerolog.Logger, provider *handlers.Provider, authValidator *auth.Validator) *HttpServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	mediastoragedocs.SwaggerInfo.BasePath = "/"

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		middlewares.TracingMiddleware(cfg.ServiceName),
		middlewares.LoggingMiddleware(log),
		middlewares.MetricsMiddleware(),
		middlewares.CORS(cfg.CORSAllowOrigins),
		middlewares.AuthMiddleware(authValidator, cfg, log),
	)

	if cfg.Environment != "production" {
		pprof.Register(engine)
	}

	registerCoreRoutes(engine, provider)
	v1.NewRoutes(provider, cfg).Register(engine.Group("/"))

	return &HttpServer{
		cfg:    cfg,
		engine: engine,
		log:    log,
	}
}

// Handler exposes the engine, mainly for tests.
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("media-storage HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerCoreRoutes(engine *gin.Engine, provider *handlers.Provider) {
	engine.GET("/", provider.Health.Root)
	engine.GET("/healthz", provider.Health.Healthz)
	engine.GET("/readyz", provider.Health.Readyz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
