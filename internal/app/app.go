// Package app assembles the query service from configuration. Both the
// HTTP server and the export command start from here.
package app

import (
	"log/slog"

	"github.com/colocaviz/cropmap-service/internal/adapter/remote"
	"github.com/colocaviz/cropmap-service/internal/adapter/sqlite"
	"github.com/colocaviz/cropmap-service/internal/config"
	"github.com/colocaviz/cropmap-service/internal/dataset"
	"github.com/colocaviz/cropmap-service/internal/domain"
	"github.com/colocaviz/cropmap-service/internal/observability"
	"github.com/colocaviz/cropmap-service/internal/pipeline"
)

// App holds the assembled service and the resources to release on shutdown.
type App struct {
	Service *pipeline.Service
	store   *sqlite.Store
}

// New wires fetchers, loaders, and the service. The body cache is opened
// only when DATASET_CACHE_PATH is set, and food loaders only when both
// footprint URLs are configured.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	a := &App{}

	if cfg.DatasetCachePath != "" {
		store, err := sqlite.Open(cfg.DatasetCachePath)
		if err != nil {
			return nil, err
		}
		a.store = store
		logger.Info("dataset body cache enabled", "path", cfg.DatasetCachePath, "ttl", cfg.DatasetCacheTTL)
	}

	records := dataset.NewRecordLoader(a.fetcher(cfg, "dataset", cfg.DatasetURL, logger, metrics), logger, metrics)

	var carbon, water pipeline.FoodSource
	if cfg.FoodsEnabled() {
		carbon = dataset.NewFoodTreeLoader(pipeline.SourceCarbon,
			a.fetcher(cfg, pipeline.SourceCarbon, cfg.FoodCarbonURL, logger, metrics), logger, metrics)
		water = dataset.NewFoodTreeLoader(pipeline.SourceWater,
			a.fetcher(cfg, pipeline.SourceWater, cfg.FoodWaterURL, logger, metrics), logger, metrics)
	} else {
		logger.Info("food footprint sources not configured")
	}

	svc, err := pipeline.New(records, carbon, water, domain.Normalizer{
		Gradient: domain.DefaultGradient(),
		Mapping:  domain.LogMapping,
		Key:      domain.AreaKey,
	}, pipeline.Options{
		DefaultElement: cfg.DefaultElement,
		DefaultYear:    cfg.DefaultYear,
		CacheSize:      cfg.SnapshotCacheSize,
	}, logger, metrics)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Service = svc
	return a, nil
}

// Close releases the body cache, if one was opened.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *App) fetcher(cfg *config.Config, name, url string, logger *slog.Logger, metrics *observability.Metrics) dataset.Fetcher {
	client := remote.NewClient(name, url, cfg.FetchTimeout, logger, metrics)
	if a.store == nil {
		return client
	}
	return dataset.NewCachedFetcher(client, a.store, url, cfg.DatasetCacheTTL, logger, metrics)
}
