package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-gin-supper-club/config"
	"go-gin-supper-club/internal/database"
	"go-gin-supper-club/internal/handler"
	"go-gin-supper-club/internal/lock"
	"go-gin-supper-club/internal/notify"
	"go-gin-supper-club/internal/payment"
	"go-gin-supper-club/internal/queue"
	"go-gin-supper-club/internal/repository"
	"go-gin-supper-club/internal/repository/memory"
	"go-gin-supper-club/internal/service"
	"go-gin-supper-club/internal/worker"
	"go-gin-supper-club/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	releaseBufferSize = 1024
	shutdownTimeout   = 10 * time.Second
)

type repositories struct {
	transactor   repository.Transactor
	events       repository.EventRepository
	bookings     repository.BookingRepository
	waitlist     repository.WaitlistRepository
	transactions repository.TransactionRepository
}

func main() {
	if err := run(); err != nil {
		logger.L.Error("server exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run() error {
	cfg := config.LoadConfig()
	logger.SetLevel(cfg.App.LogLevel)
	log := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	releases, locker, closeCoordination, err := openCoordination(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCoordination()

	mailer, err := notify.NewMailer(cfg.Mailer)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}
	notifier := notify.NewEmailNotifier(mailer)
	gateway := payment.NewSandboxGateway(cfg.Payment.SandboxDecline)

	capacity := service.NewCapacityLedger(repos.events, releases, nil)
	ledger := service.NewTransactionLedger(repos.transactions, repos.events, nil)
	bookingService := service.NewBookingService(repos.transactor, repos.events, repos.bookings,
		capacity, ledger, gateway, cfg.Booking.FeeRateBasisPoints, nil)
	waitlistService := service.NewWaitlistService(repos.events, repos.waitlist, bookingService,
		locker, notifier, cfg.Booking, nil)
	eventService := service.NewEventService(repos.events, bookingService, waitlistService, ledger, nil)

	router := handler.NewRouter(&cfg.App,
		handler.NewEventHandler(eventService, bookingService),
		handler.NewBookingHandler(bookingService),
		handler.NewWaitlistHandler(waitlistService),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	promoter := worker.NewPromotionWorker(waitlistService, releases)
	sweeper := worker.NewExpirySweeper(waitlistService, cfg.Booking.SweepInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return promoter.Run(gctx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (*repositories, func(), error) {
	log := logger.WithComponent("main")

	switch cfg.Drivers.Store {
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			transactor:   store.Transactor(),
			events:       memory.NewEventRepository(store),
			bookings:     memory.NewBookingRepository(store),
			waitlist:     memory.NewWaitlistRepository(store),
			transactions: memory.NewTransactionRepository(store),
		}, func() {}, nil
	case config.DriverPostgres:
		pool, err := database.InitDatabase(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("init database: %w", err)
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		return postgresRepositories(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Drivers.Store)
}

func postgresRepositories(pool *pgxpool.Pool) *repositories {
	return &repositories{
		transactor:   repository.NewTransactor(pool),
		events:       repository.NewEventRepository(pool),
		bookings:     repository.NewBookingRepository(pool),
		waitlist:     repository.NewWaitlistRepository(pool),
		transactions: repository.NewTransactionRepository(pool),
	}
}

func openCoordination(ctx context.Context, cfg *config.Config) (queue.ReleaseQueue, lock.Locker, func(), error) {
	switch cfg.Drivers.Coordination {
	case config.DriverMemory:
		return queue.NewReleaseQueue(releaseBufferSize), lock.NewMemoryLocker(), func() {}, nil
	case config.DriverRedis:
		rdb, err := database.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init redis: %w", err)
		}
		closeRedis := func() { _ = rdb.Close() }
		releases, err := newRedisReleaseQueue(ctx, rdb)
		if err != nil {
			closeRedis()
			return nil, nil, nil, err
		}
		return releases, lock.NewRedisLocker(rdb), closeRedis, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown coordination driver %q", cfg.Drivers.Coordination)
}

func newRedisReleaseQueue(ctx context.Context, rdb *redis.Client) (queue.ReleaseQueue, error) {
	hostname, _ := os.Hostname()
	releases, err := queue.NewRedisStreamReleaseQueue(ctx, rdb, hostname, nil)
	if err != nil {
		return nil, fmt.Errorf("init release stream: %w", err)
	}
	return releases, nil
}
