package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/api"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/auth"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/booking"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/config"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/db"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/event"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/keylock"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/professional"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/reconcile"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/reservation"
)

// Container holds the initialized components that are needed externally.
type Container struct {
	Router        *gin.Engine
	Scheduler     *reconcile.Scheduler
	Reconciler    *reconcile.Reconciler
	JWTManager    *auth.JWTManager
	Professionals professional.Repository

	closers []func() error
}

// stores groups the persistence backends selected by config.Store.
type stores struct {
	slots         availability.Repository
	bookings      booking.Repository
	reader        booking.Reader
	holdings      reconcile.HoldingChecker
	professionals professional.Repository
	health        []func(ctx context.Context) error
}

// NewContainer initializes all modules and returns the container.
// Call Close on the container when done, even after a partial failure.
func NewContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{}

	st, err := c.openStores(ctx, cfg)
	if err != nil {
		return c, err
	}

	// Keyed locks: distributed when Redis is configured
	var locker keylock.Locker = keylock.NewLocal()
	if cfg.RedisAddr != "" {
		rdb, err := keylock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return c, err
		}
		c.closers = append(c.closers, rdb.Close)
		st.health = append(st.health, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		locker = keylock.NewRedis(rdb, cfg.LockTTL, logger)
		logger.WithField("addr", cfg.RedisAddr).Info("using redis keyed locks")
	}

	// Events: RabbitMQ when configured, otherwise logged
	var publisher event.Publisher = event.NewLogPublisher(logger)
	if cfg.AMQPURL != "" {
		amqpPublisher := event.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueue, logger)
		c.closers = append(c.closers, amqpPublisher.Close)
		publisher = amqpPublisher
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTokenTTL)

	// Availability Module
	slotService := availability.NewService(st.slots, locker, logger)

	// Reservation
	coordinator := reservation.NewCoordinator(st.slots, logger)

	// Booking Module
	bookingService := booking.NewService(st.bookings, slotService, st.professionals, coordinator, publisher, logger, cfg.Location)
	bookingQueries := booking.NewQueryService(st.reader)

	// Reconciliation
	reconciler := reconcile.NewReconciler(st.slots, st.holdings, cfg.ReconcileGrace, logger)
	scheduler := reconcile.NewScheduler(reconciler, cfg.ReconcileSchedule, logger)

	health := st.health
	c.Router = api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		Logger:         logger,
		SlotService:    slotService,
		BookingService: bookingService,
		BookingQueries: bookingQueries,
		Professionals:  st.professionals,
		JWTManager:     jwtManager,
		Health: func(ctx context.Context) error {
			for _, check := range health {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
	c.Scheduler = scheduler
	c.Reconciler = reconciler
	c.JWTManager = jwtManager
	c.Professionals = st.professionals

	return c, nil
}

func (c *Container) openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Store {
	case config.StoreMemory:
		bookings := booking.NewMemoryRepository()
		slots := availability.NewMemoryRepository()
		slots.OnDelete(bookings.DetachSlot)
		return &stores{
			slots:         slots,
			bookings:      bookings,
			reader:        bookings,
			holdings:      bookings,
			professionals: professional.NewMemoryRepository(),
		}, nil

	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		c.closers = append(c.closers, func() error { pool.Close(); return nil })

		// Reconciliation must not act on replica lag, so it reads the primary.
		primary, err := c.openReadDB(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		reads := primary
		if cfg.DBReadDSN != cfg.DBDSN {
			if reads, err = c.openReadDB(ctx, cfg.DBReadDSN); err != nil {
				return nil, err
			}
		}

		return &stores{
			slots:         availability.NewPgxRepository(pool),
			bookings:      booking.NewPgxRepository(pool),
			reader:        booking.NewSqlxReader(reads),
			holdings:      booking.NewSqlxReader(primary),
			professionals: professional.NewPgxRepository(pool),
			health:        []func(ctx context.Context) error{pool.Ping},
		}, nil
	}

	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func (c *Container) openReadDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	rdb, err := db.NewReadDB(ctx, dsn)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, rdb.Close)
	return rdb, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
