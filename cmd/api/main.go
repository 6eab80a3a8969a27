package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"internship/internal/attachments"
	"internship/internal/attendance"
	"internship/internal/config"
	"internship/internal/history"
	"internship/internal/httpapi"
	"internship/internal/internship"
	"internship/internal/logger"
	"internship/internal/metrics"
	"internship/internal/platform"
	"internship/internal/visibility"
)

func main() {
	cfg, err := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := platform.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Warn().Err(err).Msg("closing backends")
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)

	var uploader attachments.Uploader
	if cfg.CloudinaryConfigured() {
		cld, err := attachments.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			return err
		}
		uploader = cld
		log.Info().Str("cloud", cfg.CloudinaryCloudName).Msg("cloudinary configured")
	} else {
		log.Info().Msg("cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	checkins := attendance.NewService(backends.Store, cfg.Location(), m, log)
	requests := internship.NewService(internship.Deps{
		Requests: backends.Store,
		Checkins: backends.Store,
		History:  backends.Store,
		Queue:    backends.Queue,
		Uploader: uploader,
		Filter: visibility.New(visibility.Policy{
			OpenScopeWithoutDepartment: cfg.OpenScope,
			PlaceholderCompanyFallback: cfg.CompanyFallback,
		}),
		Metrics: m,
		Logger:  log,
	})

	checks := map[string]httpapi.Checker{"store": backends.Store}
	if backends.Redis != nil {
		checks["redis"] = backends.Redis
	}

	// The in-memory queue is invisible to a separate worker process.
	consumerDone := make(chan struct{})
	if cfg.QueueBackend == "memory" {
		var running atomic.Bool
		running.Store(true)
		checks["history_consumer"] = httpapi.CheckerFunc(func(context.Context) bool { return running.Load() })
		go func() {
			defer close(consumerDone)
			defer running.Store(false)
			if err := history.NewConsumer(backends.Queue, backends.Store, log).Run(ctx); err != nil {
				log.Error().Err(err).Msg("history consumer stopped")
			}
		}()
	} else {
		close(consumerDone)
	}
	srv := httpapi.New(httpapi.Options{
		JWTIssuer:       cfg.JWTIssuer,
		JWTSigningKey:   cfg.JWTSigningKey,
		AccessTTL:       cfg.AccessTTL,
		RefreshTTL:      cfg.RefreshTTL,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOrigins,
		Checks:          checks,
	}, requests, checkins, log)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("starting server")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")
	stop()

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced shutdown")
	}
	<-consumerDone

	log.Info().Msg("server exited")
	return nil
}

