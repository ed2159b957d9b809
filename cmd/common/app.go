package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	infraredis "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/adcopy"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/config"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/discovery"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/links"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/oracle"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/resolver"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/storage"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/telemetry"
)

// App is the fully wired engine shared by the serve command and the CLI.
type App struct {
	Config    *config.Config
	Log       logger.Logger
	DB        *sqlx.DB
	Redis     *goredis.Client
	Telemetry *telemetry.Provider

	Products  *storage.ProductRepository
	Discovery *discovery.Service
	Links     *links.Manager
	Ads       *adcopy.Service
}

// NewApp connects to the stores and builds the services.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	db, err := storage.Connect(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	app := &App{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Telemetry: telemetry.NewProvider(),
		Products:  storage.NewProductRepository(db),
	}

	var locker links.Locker
	if cfg.Redis.Enabled {
		client, redisErr := infraredis.NewClient(infraredis.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if redisErr != nil {
			log.Warn("Redis unavailable, relying on database locks", logger.Error(redisErr))
		} else {
			app.Redis = client
			locker = links.NewRedisLocker(infraredis.NewLocker(client, cfg.Redis.LockPrefix, cfg.Redis.LockTTL))
		}
	}

	client, err := oracle.New(cfg.Oracle.Client(), log, app.Telemetry)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("create oracle: %w", err)
	}
	res := resolver.New(client, cfg.Oracle.Timeout, log, app.Telemetry)

	app.Discovery = discovery.NewService(res, discovery.Config{
		MinCommission:      cfg.Discovery.MinCommission,
		FallbackCommission: cfg.Discovery.FallbackCommission,
		Static:             cfg.Discovery.Static,
	}, log)

	platforms, err := parsePlatforms(cfg.Links.CredentialPlatforms)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Links = links.NewManager(links.Config{
		Secret:              cfg.Links.Secret,
		CredentialPlatforms: platforms,
		BatchWorkers:        cfg.Links.BatchWorkers,
		GenerateTimeout:     cfg.Links.GenerateTimeout,
	}, links.Deps{
		Discovery:   app.Discovery,
		Links:       storage.NewLinkRepository(db),
		Products:    app.Products,
		Credentials: storage.NewCredentialRepository(db),
		Locker:      locker,
		Telemetry:   app.Telemetry,
		Logger:      log,
	})

	app.Ads = adcopy.NewService(adcopy.Config{
		Timeout: cfg.Oracle.Timeout,
		Static:  cfg.Ads.Static,
	}, adcopy.Deps{
		Resolver:  res,
		Oracle:    client,
		Store:     storage.NewAdCopyRepository(db),
		Telemetry: app.Telemetry,
		Logger:    log,
	})

	return app, nil
}

// Product loads one product by id.
func (a *App) Product(ctx context.Context, id int64) (*domain.Product, error) {
	return a.Products.GetProduct(ctx, id)
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	_ = a.Log.Sync()
	return errors.Join(errs...)
}

func parsePlatforms(names []string) ([]domain.Platform, error) {
	out := make([]domain.Platform, 0, len(names))
	for _, name := range names {
		p, err := domain.ParsePlatform(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("links.credential_platforms: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// App loads configuration and wires the engine. Callers must Close it.
func (o *Options) App() (*App, error) {
	cfg, log, err := o.Load()
	if err != nil {
		return nil, err
	}
	return NewApp(cfg, log)
}
