package metrics

import (
	"fmt"

	"contrib.go.opencensus.io/exporter/stackdriver"
	"github.com/doesdev/oneclick-update/internal/config"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	CounterDownloads       = stats.Int64("asset_downloads", "Number of asset download redirects", "1")
	CounterCacheHit        = stats.Int64("cache_hits", "Number of cache hits", "1")
	CounterCacheMiss       = stats.Int64("cache_misses", "Number of cache misses", "1")
	CounterUpstreamRefresh = stats.Int64("upstream_refreshes", "Number of upstream release-list refreshes", "1")

	TagPlatform    = tag.MustNewKey("platform")
	TagCacheBucket = tag.MustNewKey("cache_bucket")
)

var views = []*view.View{
	{
		Name:        "asset_downloads",
		Measure:     CounterDownloads,
		Description: "Number of asset download redirects",
		TagKeys:     []tag.Key{TagPlatform},
		Aggregation: view.Count(),
	},
	{
		Name:        "cache_hits",
		Measure:     CounterCacheHit,
		Description: "Number of cache hits",
		TagKeys:     []tag.Key{TagCacheBucket},
		Aggregation: view.Count(),
	},
	{
		Name:        "cache_misses",
		Measure:     CounterCacheMiss,
		Description: "Number of cache misses",
		TagKeys:     []tag.Key{TagCacheBucket},
		Aggregation: view.Count(),
	},
	{
		Name:        "upstream_refreshes",
		Measure:     CounterUpstreamRefresh,
		Description: "Number of upstream release-list refreshes",
		Aggregation: view.Count(),
	},
}

func NewExporter(cfg *config.ServerConfig) (*stackdriver.Exporter, error) {
	err := view.Register(views...)
	if err != nil {
		return nil, err
	}
	exporter, err := stackdriver.NewExporter(stackdriver.Options{
		ProjectID:    cfg.ProjectID,
		MetricPrefix: fmt.Sprintf("oneclick-update/%s", cfg.Stage),
	})
	if err != nil {
		return nil, err
	}
	err = exporter.StartMetricsExporter()
	if err != nil {
		return nil, err
	}
	return exporter, nil
}
