package container

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-registry/config"
	"github.com/oksasatya/go-user-registry/internal/application"
	"github.com/oksasatya/go-user-registry/internal/domain/repository"
	pginfra "github.com/oksasatya/go-user-registry/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-registry/internal/infrastructure/search"
	"github.com/oksasatya/go-user-registry/internal/infrastructure/sqlite"
	"github.com/oksasatya/go-user-registry/pkg/helpers"
)

// Container holds the components built at startup. Optional ones are nil when
// their backend is not configured.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Store     repository.Store
	Redis     *redis.Client
	Publisher *helpers.RabbitPublisher
	ES        *elasticsearch.Client

	Users *application.Service
}

// New opens the configured store, applies the schema and builds the optional
// backends. Only a store failure is fatal.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate %s store: %w", cfg.DBDriver, err)
	}
	logger.WithField("driver", cfg.DBDriver).Info("store ready")

	c := &Container{Config: cfg, Logger: logger, Store: store}

	if cfg.RedisAddr != "" {
		rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			helpers.LogWarn(logger, "redis unreachable, rate limiting fails open until it recovers", err, logrus.Fields{"addr": cfg.RedisAddr})
		}
		c.Redis = rdb
	}

	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue)
		if err != nil {
			helpers.LogWarn(logger, "rabbitmq unavailable, lifecycle events disabled", err, nil)
		} else {
			c.Publisher = pub
		}
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			helpers.LogWarn(logger, "elasticsearch client init failed, search disabled", err, nil)
		} else {
			c.ES = es
		}
	}

	opts := []application.Option{application.WithBcryptCost(cfg.BcryptCost)}
	// Only non-nil pointers go into the interface fields.
	if c.Publisher != nil {
		opts = append(opts, application.WithPublisher(c.Publisher))
	}
	if c.ES != nil {
		opts = append(opts, application.WithIndexer(search.NewUserIndex(c.ES, cfg.ESUsersIndex)))
	}
	c.Users = application.NewService(store, logger, opts...)

	return c, nil
}

// OpenStore connects to the store selected by cfg.DBDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case "postgres", "":
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pginfra.NewStore(pool, cfg.PostgresDSN()), nil
	case "sqlite":
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func (c *Container) Close() {
	c.Publisher.Close()
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}
