package main // process entry point

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/campus-booking/internal/config"
	"github.com/iliyamo/campus-booking/internal/database"
	"github.com/iliyamo/campus-booking/internal/handler"
	"github.com/iliyamo/campus-booking/internal/jobs"
	"github.com/iliyamo/campus-booking/internal/logger"
	"github.com/iliyamo/campus-booking/internal/middleware"
	"github.com/iliyamo/campus-booking/internal/notify"
	"github.com/iliyamo/campus-booking/internal/queue"
	"github.com/iliyamo/campus-booking/internal/repository"
	"github.com/iliyamo/campus-booking/internal/router"
	"github.com/iliyamo/campus-booking/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()
	cfg := config.Load()

	lg := logger.New(cfg.Log, "booking")
	defer lg.Sync() //nolint:errcheck

	if err := run(cfg, lg); err != nil {
		lg.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return err
	}
	store := repository.NewStore(db)

	// Notifications go through RabbitMQ when configured; otherwise an
	// in-process queue delivers them.
	dispatcher := notify.NewDispatcher(store.Notifications, notify.NewMailer(cfg.Mail, lg), cfg.Mail.Workers, lg)
	var notifier notify.Notifier
	if cfg.Rabbit.URL != "" {
		pub := queue.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Queue, 256, lg)
		defer pub.Close()
		go pub.Run(ctx)
		notifier = pub
		consumer := queue.NewConsumer(cfg.Rabbit.URL, cfg.Rabbit.Queue, dispatcher.Deliver, lg)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	} else {
		q := notify.NewQueue(dispatcher, 256)
		go q.Run(ctx)
		notifier = q
	}

	deps := service.Deps{
		Store:    service.NewSQLStore(store),
		Notifier: notifier,
		Log:      lg,
		Location: cfg.Location(),
	}
	auth := service.NewAuthService(deps, cfg.Auth)
	reservations := service.NewReservationService(deps)
	approvals := service.NewApprovalService(deps)
	blocks := service.NewBlockService(deps)
	resources := service.NewResourceService(deps)
	inscriptions := service.NewInscriptionService(deps)
	notifications := service.NewNotificationService(deps)

	if cfg.Jobs.Enabled {
		sched := jobs.New(lg)
		if err := sched.AddInscriptionOpener(cfg.Jobs.InscriptionsSpec, inscriptions); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			sched.Stop(sctx)
		}()
	}

	// A nil client disables the cache and switches the limiter to its
	// in-memory fallback.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	} else {
		lg.Warn("redis unavailable, cache disabled and rate limiting is per process")
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(lg))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(bodyLimit(cfg.Upload.MaxBytes)))

	guards := router.Guards{
		JWTSecret: cfg.Auth.JWTSecret,
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, lg),
		Cache:     middleware.NewRedisCache(cfg.Cache, rdb),
	}
	resourceHandler := handler.NewResourceHandler(resources, lg)
	inscriptionHandler := handler.NewInscriptionHandler(inscriptions, lg)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, lg), guards)
	router.RegisterPublic(e, resourceHandler, guards)
	router.RegisterUser(e, router.UserHandlers{
		Reservations:  handler.NewReservationHandler(reservations, handler.Uploads{Dir: cfg.Upload.Dir, MaxBytes: cfg.Upload.MaxBytes}, lg),
		Inscriptions:  inscriptionHandler,
		Notifications: handler.NewNotificationHandler(notifications, lg),
	}, guards)
	router.RegisterAdmin(e, router.AdminHandlers{
		Approvals:    handler.NewApprovalHandler(approvals, lg),
		Inscriptions: inscriptionHandler,
		Resources:    resourceHandler,
		Blocks:       handler.NewBlockHandler(blocks, lg),
	}, guards)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	lg.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

// bodyLimit leaves room for the form fields around an upload.
func bodyLimit(maxUpload int64) string {
	const slack = 1 << 20
	if maxUpload <= 0 {
		return "32M"
	}
	return strconv.FormatInt((maxUpload*4+slack)/1024, 10) + "K"
}
