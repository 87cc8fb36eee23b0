package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/balloon-tour-booking/internal/config"
	"github.com/iliyamo/balloon-tour-booking/internal/database"
	"github.com/iliyamo/balloon-tour-booking/internal/handler"
	"github.com/iliyamo/balloon-tour-booking/internal/logging"
	"github.com/iliyamo/balloon-tour-booking/internal/mail"
	"github.com/iliyamo/balloon-tour-booking/internal/media"
	"github.com/iliyamo/balloon-tour-booking/internal/middleware"
	"github.com/iliyamo/balloon-tour-booking/internal/queue"
	"github.com/iliyamo/balloon-tour-booking/internal/repository"
	"github.com/iliyamo/balloon-tour-booking/internal/router"
	"github.com/iliyamo/balloon-tour-booking/internal/service"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New("balloon-api", cfg.LogLevel, os.Stdout)
	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.IPExtractor = middleware.ClientIP(cfg.TrustProxy)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := database.Open(ctx, cfg.MongoURI, cfg.MongoDB, 5, logger)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			logger.Warnf("mongo: disconnect: %v", err)
		}
	}()
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatalf("database: %v", err)
	}

	// Redis is optional: without it the cache and the limiter pass through.
	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		logger.Warn("redis unavailable; response cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	store, err := mediaStore(cfg)
	if err != nil {
		logger.Fatalf("media: %v", err)
	}
	if _, ok := store.(*media.DiskStore); ok {
		router.RegisterUploads(e, cfg.UploadDir)
	}

	mailer := mail.NewSMTPMailer(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass)
	if mailer.Mailbox() == "" {
		logger.Warn("MAIL_USER not set; contact form will fail")
	}

	var events handler.EventPublisher
	if pub := service.NewPublisher(cfg.RabbitURL, logger); pub.Enabled() {
		events = pub
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.ReservationLog, store, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Errorf("event-consumer: %v", err)
			}
		}()
	} else {
		logger.Warn("RABBITMQ_URL not set; domain events disabled")
	}

	flights := repository.NewFlightRepo(db)
	reservations := repository.NewReservationRepo(db)
	t := handler.Timeouts{Store: cfg.StoreTimeout, Upload: cfg.UploadTimeout}

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.CorsOrigin},
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Errorf("%s %s %d %s id=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RequestID, v.Error)
				return nil
			}
			logger.Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, repository.NewUserRepo(db)),
		Flights:      handler.NewFlightHandler(flights, reservations, store, cache, events, t),
		Reservations: handler.NewReservationHandler(reservations, flights, events, t),
		Contact:      handler.NewContactHandler(mailer, mailer.Mailbox(), t),
		Cache:        cache,
		Limiter:      limiter,
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		logger.Errorf("server: shutdown: %v", err)
	}
}

// mediaStore picks Cloudinary when it is configured and the local disk
// otherwise.
func mediaStore(cfg config.Config) (media.Store, error) {
	if cfg.CloudinaryURL != "" {
		cs, err := media.NewCloudinaryStore(cfg.CloudinaryURL)
		if err != nil {
			return nil, err
		}
		return cs, nil
	}
	return media.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL), nil
}
