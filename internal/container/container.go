package container

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"electrobot/catalog/internal/classifier"
	"electrobot/catalog/internal/client"
	"electrobot/catalog/internal/config"
	"electrobot/catalog/internal/filter"
	"electrobot/catalog/internal/notify"
	"electrobot/catalog/internal/parser"
	"electrobot/catalog/internal/proxy"
	"electrobot/catalog/internal/repository"
	"electrobot/catalog/internal/reservation"
	"electrobot/catalog/internal/scheduler"
	"electrobot/catalog/internal/search"
	"electrobot/catalog/internal/service"
	"electrobot/catalog/internal/state"
	"electrobot/catalog/internal/store"
	"electrobot/catalog/internal/wizard"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components. Browser, Wizard and
// Reservations are the surface the chat transport calls into.
type Container struct {
	Config     *config.Config
	Client     client.FeedClient
	Repository repository.RefreshRepository
	Sessions   state.SessionStore
	Notifier   notify.Notifier

	Catalog      *service.CatalogService
	Browser      *service.Browser
	Wizard       *wizard.Wizard
	Reservations *reservation.Desk
	Scheduler    *scheduler.Scheduler
	Webhook      *scheduler.Webhook

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
	}

	format, err := parser.ParseFormat(cfg.Feed.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid feed.format: %w", err)
	}

	proxySupplier := proxy.NewProxySupplier(ctx, cfg.Feed.Proxies, proxy.Check{
		URL:                cfg.Feed.URL,
		Username:           cfg.Feed.Username,
		Password:           cfg.Feed.Password,
		InsecureSkipVerify: cfg.Feed.InsecureSkipVerify,
	})
	feedClient := client.NewFeedClient(cfg.Feed, proxySupplier)
	container.Client = feedClient

	if cfg.Database.Enabled {
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		container.db = db
		if err := repository.EnsureSchema(ctx, db); err != nil {
			container.Close()
			return nil, err
		}
		container.Repository = repository.NewRefreshRepository(db)
		log.Info("✅ Connected to Postgres, refresh history enabled")
	} else {
		container.Repository = repository.NewNopRefreshRepository()
	}

	switch cfg.Wizard.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		container.redis = rdb

		// Test connection
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")
		container.Sessions = state.NewRedisSessionStore(rdb, cfg.Wizard.SessionTTL)
	default:
		container.Sessions = state.NewMemorySessionStore(cfg.Wizard.MaxSessions, cfg.Wizard.SessionTTL)
	}

	if cfg.Telegram.Token != "" && cfg.Telegram.OperatorChatID != 0 {
		notifier, err := notify.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.OperatorChatID)
		if err != nil {
			container.Close()
			return nil, err
		}
		container.Notifier = notifier
	} else {
		log.Warn("⚠️ Telegram operator chat not configured, notifications go to the log")
		container.Notifier = notify.NewLogNotifier()
	}

	typeRules := cfg.Catalog.TypeRules
	if len(typeRules) == 0 {
		typeRules = classifier.DefaultTypeRules
	}
	attrs := classifier.NewAttrNormalizer(cfg.Catalog.Synonyms())
	feedParser := parser.NewParser(classifier.NewRegexClassifier(typeRules), attrs, cfg.Catalog.Uncategorized)
	evaluator := filter.NewEvaluator(attrs)
	engine := search.NewEngine(search.Options{
		Weights:       cfg.Search.Weights,
		AmpTolerance:  cfg.Search.AmpTolerance,
		SqmmTolerance: cfg.Search.SqmmTolerance,
		Brands:        cfg.Catalog.Brands,
		TypeRules:     typeRules,
	})

	catalog := store.New()
	container.Catalog = service.NewCatalogService(
		catalog,
		feedClient,
		feedParser,
		container.Repository,
		format,
		cfg.Feed.MinRefreshInterval,
	)
	container.Browser = service.NewBrowser(catalog, engine, evaluator, cfg.Search.DefaultLimit, cfg.Wizard.PageSize)
	container.Wizard = wizard.New(catalog, container.Sessions, evaluator, cfg.Wizard.OptionsPerStep)
	container.Reservations = reservation.NewDesk(container.Browser, container.Notifier)

	container.Scheduler = scheduler.NewScheduler(container.Catalog, container.Notifier, cfg.Feed.ScheduleInterval)
	container.Webhook = scheduler.NewWebhook(
		container.Catalog,
		container.Notifier,
		container.Repository,
		cfg.Server.WebhookPath,
		cfg.Server.WebhookToken,
	)

	return container, nil
}

// Run starts the refresh scheduler and the webhook server
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Scheduler.Run(ctx)
	})

	g.Go(func() error {
		return scheduler.Serve(ctx, c.Config.Server.Addr(), c.Webhook.Routes())
	})

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.Client != nil {
		if err := c.Client.Close(); err != nil {
			log.Warnf("⚠️ Failed to close feed client: %v", err)
		}
	}
	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("⚠️ Failed to close Redis client: %v", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
