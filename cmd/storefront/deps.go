package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storefront-services/internal/api"
	"storefront-services/internal/catalog/query"
	awsclient "storefront-services/internal/common/aws"
	"storefront-services/internal/common/config"
	"storefront-services/internal/common/database"
	httpclient "storefront-services/internal/common/http"
	"storefront-services/internal/common/logger"
	"storefront-services/internal/common/observability"
	"storefront-services/internal/inquiry"
	"storefront-services/internal/locator/geocode"
	"storefront-services/internal/locator/stores"
	"storefront-services/pkg/registry"
)

// services holds the connections shared by the serve and worker commands.
// Only the stores the configuration actually needs are opened.
type services struct {
	cfg    *config.Config
	zapLog *zap.Logger
	log    logger.Logger
	obs    *observability.Observability

	postgres *database.PostgresClient
	redis    *database.RedisClient
	elastic  *database.ElasticsearchClient
	mongo    *database.MongoClient

	checks  map[string]api.ReadinessCheck
	closers []func(context.Context)
}

func connect(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, log logger.Logger) (*services, error) {
	s := &services{
		cfg:    cfg,
		zapLog: zapLog,
		log:    log,
		checks: map[string]api.ReadinessCheck{},
	}

	obs, err := observability.New(cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	s.obs = obs
	s.closers = append(s.closers, func(ctx context.Context) {
		if err := obs.Shutdown(ctx); err != nil {
			zapLog.Warn("observability shutdown failed", zap.Error(err))
		}
	})

	needPostgres := cfg.Catalog.Backend == config.BackendPostgres || cfg.Locator.Source == config.SourcePostgres
	if needPostgres {
		err = retryWithBackoff(ctx, func() error {
			var err error
			s.postgres, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return s.postgres.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		s.checks["postgres"] = s.postgres.Ping
		s.closers = append(s.closers, func(context.Context) { _ = s.postgres.Close() })
		zapLog.Info("PostgreSQL connected successfully")
	}

	if cfg.Catalog.Backend == config.BackendElasticsearch {
		err = retryWithBackoff(ctx, func() error {
			var err error
			s.elastic, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return s.elastic.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		s.checks["elasticsearch"] = s.elastic.Ping
		zapLog.Info("Elasticsearch connected successfully")
	}

	if cfg.Locator.Source == config.SourceMongo {
		err = retryWithBackoff(ctx, func() error {
			var err error
			s.mongo, err = database.NewMongo(ctx, cfg.Database.Mongo)
			if err != nil {
				return err
			}
			return s.mongo.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "MongoDB connection")
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		s.checks["mongo"] = s.mongo.Ping
		s.closers = append(s.closers, func(ctx context.Context) { _ = s.mongo.Close(ctx) })
		zapLog.Info("MongoDB connected successfully")
	}

	// Redis only backs caches; the service runs without it.
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(ctx, func() error {
			var err error
			s.redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return s.redis.Ping(ctx)
		}, 5, time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Warn("redis unavailable, caches disabled", zap.Error(err))
			s.redis = nil
		} else {
			s.checks["redis"] = s.redis.Ping
			s.closers = append(s.closers, func(context.Context) { _ = s.redis.Close() })
			zapLog.Info("Redis connected successfully")
		}
	}

	return s, nil
}

// Close releases connections in reverse order of opening.
func (s *services) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i](ctx)
	}
	s.closers = nil
}

func (s *services) catalog() (*query.Service, error) {
	var backend query.Backend
	switch s.cfg.Catalog.Backend {
	case config.BackendElasticsearch:
		backend = query.NewElasticsearchBackend(s.elastic.Client, s.cfg.Catalog.Index)
	case config.BackendPostgres:
		backend = query.NewPostgresBackend(s.postgres.DB)
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", s.cfg.Catalog.Backend)
	}

	opts := []query.Option{
		query.WithTimeout(config.GetDuration(s.cfg.Catalog.QueryTimeout)),
		query.WithObservability(s.obs),
	}
	if s.redis != nil && s.cfg.Catalog.PageCacheTTL > 0 {
		opts = append(opts, query.WithPageCache(
			query.NewRedisPageCache(s.redis.Client, config.GetDuration(s.cfg.Catalog.PageCacheTTL)),
		))
	}
	return query.NewService(backend, s.log, opts...), nil
}

// geocoder builds the provider chain, keyed provider first when an API key
// is configured, and wraps it in the Redis cache when one is available.
func (s *services) geocoder() (geocode.Resolver, *geocode.OpenProvider) {
	return buildGeocoder(s.cfg, s.redis, s.obs, s.log)
}

func buildGeocoder(cfg *config.Config, rdb *database.RedisClient, obs *observability.Observability, log logger.Logger) (geocode.Resolver, *geocode.OpenProvider) {
	timeout := config.GetDuration(cfg.Geocoding.Timeout)
	client := httpclient.NewClient(timeout, cfg.Geocoding.Open.UserAgent)

	open := geocode.NewOpenProvider(cfg.Geocoding.Open.BaseURL, client)
	var providers []geocode.Provider
	if cfg.Geocoding.Keyed.APIKey != "" {
		providers = append(providers, geocode.NewKeyedProvider(cfg.Geocoding.Keyed.BaseURL, cfg.Geocoding.Keyed.APIKey, client))
	}
	providers = append(providers, open)

	var resolver geocode.Resolver = geocode.NewChain(providers, timeout, obs, log)
	if rdb != nil {
		resolver = geocode.NewCachedResolver(resolver, rdb.Client,
			config.GetDuration(cfg.Geocoding.CacheTTL), config.GetDuration(cfg.Geocoding.MissTTL), log)
	}
	return resolver, open
}

// storeSource returns the configured store list and, when write-back is
// enabled for the postgres source, the writer that persists coordinates.
func (s *services) storeSource() (stores.Source, stores.CoordinateWriter, error) {
	switch s.cfg.Locator.Source {
	case config.SourcePostgres:
		src := stores.NewPostgresSource(s.postgres.DB)
		if s.cfg.Locator.WriteBack {
			return src, src, nil
		}
		return src, nil, nil
	case config.SourceMongo:
		return stores.NewMongoSource(s.mongo.Collection), nil, nil
	case config.SourceFile:
		return stores.NewFileSource(s.cfg.Locator.File), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store source %q", s.cfg.Locator.Source)
}

func (s *services) pipeline(resolver geocode.Resolver, writer stores.CoordinateWriter) *stores.Pipeline {
	opts := []stores.PipelineOption{
		stores.WithDelay(config.GetDuration(s.cfg.Geocoding.RequestDelay)),
		stores.WithObservability(s.obs),
	}
	if writer != nil {
		opts = append(opts, stores.WithWriter(writer))
	}
	return stores.NewPipeline(resolver, s.log, opts...)
}

func (s *services) forms() (*inquiry.Forms, error) {
	reg, err := registry.LoadOrDefault(s.cfg.Forms.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load form registry: %w", err)
	}
	return inquiry.NewForms(reg)
}

// deliverer opens SES and SNS clients only for the enabled channels.
func (s *services) deliverer(ctx context.Context, forms *inquiry.Forms) (*inquiry.Deliverer, error) {
	ncfg := inquiry.ConfigFrom(s.cfg.Notifications)

	var email awsclient.EmailSender
	if ncfg.EmailEnabled {
		sesClient, err := awsclient.NewSESClient(ctx, s.cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		email = sesClient
	}

	var alerts awsclient.AlertPublisher
	if ncfg.AlertsEnabled {
		snsClient, err := awsclient.NewSNSClient(ctx, s.cfg.Notifications.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		alerts = snsClient
	}

	return inquiry.NewDeliverer(ncfg, forms, email, alerts, s.log), nil
}
