package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"dash-representation/internal/coordinator"
	"dash-representation/internal/platform/config"
	"dash-representation/internal/platform/logger"
	"dash-representation/internal/platform/metrics"
	"dash-representation/internal/preference"
	"dash-representation/internal/representation"

	"github.com/go-chi/chi/v5"
)

func main() {
	_ = config.Load()

	cfg, err := config.New(config.GetEnv("CONFIG_FILE", ""))
	if err != nil {
		logger.New("error", "json").Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	var prefs preference.Store = preference.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rs := preference.NewRedisStore(preference.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger.WithComponent(log, "preference"))
		defer rs.Close()
		prefs = rs
	}

	repo := coordinator.NewInMemoryRepository()
	met := metrics.New()
	svc, err := coordinator.NewService(repo, prefs, met, logger.WithComponent(log, "coordinator"), coordinator.Options{
		LiveDelayFragmentCount: cfg.LiveDelayFragmentCount,
		WallclockInterval:      cfg.WallclockInterval,
		HistorySize:            cfg.HistorySize,
		InitialBitrates: map[representation.MediaType]float64{
			representation.MediaVideo: cfg.InitialVideoBitrateKbps,
			representation.MediaAudio: cfg.InitialAudioBitrateKbps,
		},
		MaxBitrateExpr: cfg.MaxBitrateExpr,
	})
	if err != nil {
		log.Error("invalid service options", "error", err)
		os.Exit(1)
	}
	h := coordinator.NewHandler(svc, logger.WithComponent(log, "http"))

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get(metrics.ScrapePath, func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveTracks(svc.ActiveTrackCount()) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", cfg.Port,
		"live_delay_fragment_count", cfg.LiveDelayFragmentCount,
		"wallclock_interval", cfg.WallclockInterval.String(),
		"redis", cfg.RedisAddr != "",
		"log_level", cfg.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	svc.Shutdown()

	log.Info("server stopped")
}
