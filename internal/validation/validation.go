// Package validation probes the external services a deployment marks as
// required before the server starts.
package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/feedora/backend/internal/cache"
	"github.com/feedora/backend/internal/config"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/storage"
	"go.uber.org/zap"
)

// CheckTimeout bounds each service probe.
const CheckTimeout = 10 * time.Second

// Check probes one service.
type Check func(ctx context.Context) error

// ServiceValidator probes the services listed in Config.RequiredServices.
type ServiceValidator struct {
	required []string
	checks   map[string]Check
}

func NewServiceValidator(cfg *config.Config) *ServiceValidator {
	return &ServiceValidator{
		required: cfg.RequiredServices,
		checks: map[string]Check{
			"elasticsearch": func(ctx context.Context) error { return checkElasticsearch(ctx, cfg.ElasticsearchURL) },
			"s3":            func(ctx context.Context) error { return checkS3(ctx, cfg) },
			"redis":         func(ctx context.Context) error { return checkRedis(ctx, cfg) },
		},
	}
}

// ValidateServices returns the first failing required service.
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.required) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("Validating required services", zap.Strings("services", sv.required))

	for _, name := range sv.required {
		check, ok := sv.checks[name]
		if !ok {
			logger.Log.Warn("Unknown service type in validation", zap.String("service", name))
			continue
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, CheckTimeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.ErrorWithFields("Required service validation failed", err, zap.String("service", name))
			return fmt.Errorf("required service %q: %w", name, err)
		}

		logger.Log.Info("Service validated", zap.String("service", name))
	}
	return nil
}

func checkElasticsearch(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("ELASTICSEARCH_URL is not set")
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	if err != nil {
		return fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch returned error status: %s", res.Status())
	}
	return nil
}

func checkS3(ctx context.Context, cfg *config.Config) error {
	if cfg.AWSBucket == "" {
		return fmt.Errorf("AWS_BUCKET is not set")
	}
	store, err := storage.NewS3Store(ctx, cfg.AWSRegion, cfg.AWSBucket, cfg.CDNURL)
	if err != nil {
		return err
	}
	return store.CheckBucketAccess(ctx)
}

func checkRedis(ctx context.Context, cfg *config.Config) error {
	if !cfg.RedisEnabled() {
		return fmt.Errorf("REDIS_HOST is not set")
	}
	rc, err := cache.NewRedisClient(ctx, cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		return err
	}
	return rc.Close()
}
