// Package server provides the HTTP API for scoring and configuration.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangsam/leadscore/core"
	"github.com/huangsam/leadscore/internal/contract"
)

const (
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 4 << 20
)

// NewRouter builds the gin engine without starting it.
// A nil engine scores with the wall clock and cfg.Workers.
func NewRouter(cfg *contract.Config, mgr contract.StoreManager, engine *core.Engine, logger *slog.Logger) (*gin.Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = core.NewEngine(core.WithWorkers(cfg.Workers), core.WithLogger(logger))
	}
	corsMiddleware, err := CORS(cfg.CORSOrigins)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(corsMiddleware)

	h := &handler{baseCfg: cfg, mgr: mgr, engine: engine}
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst).RateLimit())
	v1.Use(BodyLimit(maxBodyBytes))
	if cfg.JWTSecret != "" {
		v1.Use(AuthRequired(cfg.JWTSecret))
	} else {
		logger.Warn("No jwt-secret configured; every request uses the default tenant", "tenant", cfg.Tenant)
		v1.Use(FixedTenant(cfg.Tenant))
	}

	v1.GET("/frameworks", h.ListFrameworks)
	configs := v1.Group("/configs/:framework")
	configs.GET("", h.GetConfig)
	configs.PUT("", h.PutConfig)
	configs.PATCH("/weights", h.SetWeight)
	configs.PUT("/thresholds", h.SetThresholds)
	v1.POST("/score/:framework", h.Score)
	v1.POST("/score/:framework/batch", h.ScoreBatch)

	return router, nil
}

// Run serves the API on cfg.ServerAddr until ctx is canceled, then shuts
// down gracefully.
func Run(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	gin.SetMode(gin.ReleaseMode)
	logger := slog.Default()
	router, err := NewRouter(cfg, mgr, nil, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving HTTP API", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Shutting down HTTP API")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}
