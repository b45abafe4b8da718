package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"jalsaathi/internal/api"
	"jalsaathi/internal/auth"
	"jalsaathi/internal/chat"
	"jalsaathi/internal/config"
	"jalsaathi/internal/flags"
	"jalsaathi/internal/i18n"
	"jalsaathi/internal/logging"
	"jalsaathi/internal/metrics"
	"jalsaathi/internal/redis"
	"jalsaathi/internal/service/advisor"
	"jalsaathi/internal/service/assistant"
	"jalsaathi/internal/service/directory"
	"jalsaathi/internal/service/reports"
	"jalsaathi/internal/service/weather"
	"jalsaathi/internal/storage"
	"jalsaathi/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logging.L().WithError(err).Fatal("load config")
	}
	log := logging.Setup(logging.Options{Level: cfg.BasicConfig.LogLevel, Format: cfg.BasicConfig.LogFormat})
	if err := chat.ValidateTables(); err != nil {
		log.WithError(err).Fatal("response tables incomplete")
	}

	dbType := cfg.BasicConfig.Database
	log.WithField("driver", dbType).Info("opening database")
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if err := storage.Migrate(db, dbType); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewRedisClient(cfg)
		if err != nil {
			log.WithError(err).Fatal("create redis client")
		}
		defer rdb.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.NewChatMetrics(registry)

	var flagStore flags.Store = flags.NewSQL(db, dbType)
	if rdb != nil {
		flagStore = flags.NewLayered(flagStore, flags.NewRedis(rdb))
	}

	localizer := i18n.Provider{}
	defaultLocale, _ := i18n.Parse(cfg.BasicConfig.DefaultLocale)
	assistantService := assistant.NewService(db)
	manager := worker.NewManager(assistantService, worker.Config{
		Delays:             chatDelays(cfg.BasicConfig),
		IdleTimeout:        cfg.BasicConfig.WorkerIdleTimeout(),
		GeolocationTimeout: cfg.BasicConfig.GeolocationTimeout(),
		Localizer:          localizer,
		Flags:              flagStore,
		Cache:              rdb,
		CacheTTL:           cfg.Redis.CacheTTL(),
		Metrics:            chatMetrics,
	})
	defer manager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploadDir := filepath.Join(cfg.BasicConfig.FileBaseDir, "images")
	reportService := reports.NewService(db, uploadDir, "/uploads", cfg.BasicConfig.MaxUploadBytes)

	deps := api.Dependencies{
		Assistant:      assistantService,
		Auth:           auth.NewService(db, rdb, cfg.BasicConfig.TokenTTL()),
		Conversations:  manager,
		Reports:        reportService,
		Directory:      directory.NewService(localizer),
		Metrics:        chatMetrics,
		UploadDir:      uploadDir,
		MaxUploadBytes: cfg.BasicConfig.MaxUploadBytes,
		CookieSecure:   cfg.BasicConfig.CookieSecure,
		DefaultLocale:  defaultLocale,
	}
	if cfg.Weather.APIKey != "" {
		deps.Weather = weather.NewClient(cfg.Weather.APIKey, cfg.Weather.BaseURL, cfg.Weather.Timeout(), rdb)
	} else {
		log.Info("weather api key not set, alerts disabled")
	}
	advisorService, err := advisor.NewFromConfig(ctx, cfg, assistantService, rdb, chatMetrics)
	switch {
	case err == nil:
		deps.Advisor = advisorService
	case errors.Is(err, advisor.ErrDisabled):
		log.Info("advisor provider not configured, advisor disabled")
	default:
		log.WithError(err).Fatal("init advisor")
	}

	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.NewHandler(deps).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.BasicConfig.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return reportService.RunImageCleaner(gctx, reports.DefaultImageCleanupInterval, reports.DefaultOrphanImageTTL)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("server stopped")
	}
}

func chatDelays(b config.BasicConfig) chat.Delays {
	return chat.Delays{
		Reply:      b.ReplyDelay(),
		QuickReply: b.QuickReplyDelay(),
		Location:   b.LocationDelay(),
	}
}
