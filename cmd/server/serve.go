package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/rental-booking/internal/booking"
	"github.com/iliyamo/rental-booking/internal/config"
	"github.com/iliyamo/rental-booking/internal/database"
	"github.com/iliyamo/rental-booking/internal/handler"
	"github.com/iliyamo/rental-booking/internal/ledger"
	"github.com/iliyamo/rental-booking/internal/logger"
	"github.com/iliyamo/rental-booking/internal/middleware"
	"github.com/iliyamo/rental-booking/internal/model"
	"github.com/iliyamo/rental-booking/internal/queue"
	"github.com/iliyamo/rental-booking/internal/repository"
	"github.com/iliyamo/rental-booking/internal/repository/memory"
	"github.com/iliyamo/rental-booking/internal/router"
	"github.com/iliyamo/rental-booking/internal/utils"
)

type serveOptions struct {
	inMemory     bool
	demoPassword string
}

func serveCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.inMemory, "in-memory", false, "use the in-process store with demo accounts instead of MySQL")
	cmd.Flags().StringVar(&opts.demoPassword, "demo-password", "demo1234", "password of the demo accounts (with --in-memory)")
	return cmd
}

// backend is the persistence the API runs on.
type backend struct {
	store  booking.Store
	dir    booking.Directory
	users  handler.Users
	tokens handler.Tokens
	close  func() error
}

func serve(ctx context.Context, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	lc, err := config.LoadLedgerConfig()
	if err != nil {
		return err
	}

	var be backend
	if opts.inMemory {
		be, err = memoryBackend(opts.demoPassword, cfg.BcryptCost, log)
	} else {
		be, err = mysqlBackend(ctx, cfg, log)
	}
	if err != nil {
		return err
	}
	defer func() { _ = be.close() }()

	svcOpts := []booking.Option{booking.WithLogger(log)}
	qc := config.LoadQueueConfig()
	if qc.URL != "" {
		svcOpts = append(svcOpts, booking.WithPublisher(queue.NewPublisher(qc.URL, qc.Queue)))
		consumer := queue.NewConsumer(qc.URL, qc.Queue, qc.AuditLogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set; status changes are not published")
	}

	l := ledger.New(ledger.Tariff{
		UnitRate:      lc.UnitRate,
		WaterCharge:   lc.WaterCharge,
		GarbageCharge: lc.GarbageCharge,
	}, lc.DepositTolerance, ledger.WithGatewayTimeout(lc.GatewayTimeout))
	svc := booking.NewService(be.store, be.dir, l, svcOpts...)

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and caching disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}
	cacheCfg := config.LoadCacheConfig()
	cacheCfg.KeyStrategy = "user_route_query"
	mw := router.Middleware{
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(log))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, be.users, be.tokens), cfg.JWTSecret, mw)
	router.RegisterRental(e, router.Handlers{
		Bookings: handler.NewBookingHandler(svc),
		Payments: handler.NewPaymentHandler(svc),
	}, cfg.JWTSecret, mw)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.Bool("in_memory", opts.inMemory))
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
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}

func mysqlBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (backend, error) {
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return backend{}, err
	}
	if cfg.AutoMigrate {
		m, err := database.NewMigrator(db, log)
		if err == nil {
			err = m.Up(ctx)
		}
		if err != nil {
			_ = db.Close()
			return backend{}, fmt.Errorf("migrate: %w", err)
		}
	}
	dir := repository.NewDirectory(db)
	return backend{
		store:  repository.NewStore(db),
		dir:    dir,
		users:  dir,
		tokens: repository.NewTokenRepo(db),
		close:  db.Close,
	}, nil
}

// memoryBackend seeds one account per role and an active property so the
// API can be exercised without MySQL. Accounts are tenant@demo.local,
// owner@demo.local and admin@demo.local.
func memoryBackend(password string, cost int, log *zap.Logger) (backend, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return backend{}, fmt.Errorf("hash demo password: %w", err)
	}
	st := memory.New()
	now := time.Now().UTC()
	for i, role := range []model.Role{model.RoleTenant, model.RoleOwner, model.RoleAdmin} {
		st.PutUser(model.User{
			ID:             uint64(i + 1),
			Email:          strings.ToLower(string(role)) + "@demo.local",
			PasswordHash:   hash,
			FullName:       "Demo " + strings.ToLower(string(role)),
			Role:           role,
			ApprovalStatus: model.ApprovalActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	st.PutProperty(model.Property{
		ID:      1,
		OwnerID: 2,
		Title:   "Demo apartment",
		Rent:    decimal.NewFromInt(25000),
		Deposit: decimal.NewFromInt(50000),
		Status:  model.PropertyActive,
	})
	log.Warn("using in-memory store; data is lost on exit")
	return backend{store: st, dir: st, users: st, tokens: st, close: func() error { return nil }}, nil
}
