package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/index"
	"github.com/gcbaptista/go-facet-search/internal/indexing"
	"github.com/gcbaptista/go-facet-search/internal/jobs"
	"github.com/gcbaptista/go-facet-search/internal/metrics"
	"github.com/gcbaptista/go-facet-search/internal/search"
	"github.com/gcbaptista/go-facet-search/internal/shard"
	"github.com/gcbaptista/go-facet-search/model"
	"github.com/gcbaptista/go-facet-search/services"
)

// IndexInstance holds all components and services for a single search index.
// It implements the services.IndexAccessor interface.
type IndexInstance struct {
	settings *config.IndexSettings
	shards   shard.Set
	mapping  *index.Mapping
	indexer  *indexing.Service
	bulk     *indexing.Coordinator
	searcher *search.Service
	jobs     *jobs.Manager
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func (e *Engine) newIndexInstance(settings config.IndexSettings) (*IndexInstance, error) {
	logger := e.logger.With(zap.String("index", settings.Name))
	shards := shard.NewSet(settings.NumberOfShards)
	mapping := index.NewMapping(settings.Mappings)

	indexer, err := indexing.NewService(settings.Name, shards, mapping,
		indexing.WithLogger(logger.Named("indexing")),
		indexing.WithMetrics(e.metrics))
	if err != nil {
		return nil, fmt.Errorf("failed to create indexer service: %w", err)
	}

	instance := &IndexInstance{
		settings: &settings,
		shards:   shards,
		mapping:  mapping,
		indexer:  indexer,
		bulk:     indexing.NewCoordinator(indexer),
		jobs:     e.jobs,
		metrics:  e.metrics,
		logger:   logger,
	}

	instance.searcher, err = search.NewService(shards, mapping, instance.settings,
		search.WithLogger(logger.Named("search")),
		search.WithDefaultFacetSize(e.defaultFacetSize),
		search.WithMaxResultWindow(e.maxResultWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}
	return instance, nil
}

// PutDocument inserts or replaces one document.
func (i *IndexInstance) PutDocument(doc model.Document) (indexing.IndexResult, error) {
	res, err := i.indexer.Put(doc)
	if err == nil {
		i.refreshShardGauge()
	}
	return res, err
}

// GetDocument looks up one document by its external ID.
func (i *IndexInstance) GetDocument(id string) indexing.GetResult {
	return i.indexer.Get(id)
}

// DeleteDocument removes one document. An unknown ID is reported through the result.
func (i *IndexInstance) DeleteDocument(id string) (indexing.DeleteResult, error) {
	res, err := i.indexer.Delete(id)
	if err == nil && res.Found {
		i.refreshShardGauge()
	}
	return res, err
}

// DeleteAllDocuments empties the index and keeps its mapping.
func (i *IndexInstance) DeleteAllDocuments() (int, error) {
	n, err := i.indexer.DeleteAll()
	if err == nil {
		i.refreshShardGauge()
	}
	return n, err
}

// Bulk applies ops in order and waits for the outcome of every item.
func (i *IndexInstance) Bulk(ctx context.Context, ops []indexing.Operation) (*indexing.BulkResponse, error) {
	res, err := i.bulk.Submit(ctx, ops, nil)
	if err == nil {
		i.refreshShardGauge()
	}
	return res, err
}

// Search evaluates req against every shard.
func (i *IndexInstance) Search(ctx context.Context, req search.Request) (search.Result, error) {
	return i.searcher.Search(ctx, req)
}

// MultiSearch runs several named searches in parallel.
func (i *IndexInstance) MultiSearch(ctx context.Context, req search.MultiRequest) (*search.MultiResult, error) {
	return i.searcher.MultiSearch(ctx, req)
}

// Suggest returns term suggestions for one field.
func (i *IndexInstance) Suggest(ctx context.Context, req search.SuggestRequest) (search.SuggestResult, error) {
	return i.searcher.Suggest(ctx, req)
}

// Settings returns a copy of the settings the index was created with.
func (i *IndexInstance) Settings() config.IndexSettings {
	return i.settings.Clone()
}

// Stats returns document counts per shard and the current field mapping,
// which includes dynamically mapped fields.
func (i *IndexInstance) Stats() services.IndexStats {
	counts := i.shards.DocCount()
	total := 0
	for _, c := range counts {
		total += c
	}
	return services.IndexStats{
		Name:           i.settings.Name,
		DocumentCount:  total,
		NumberOfShards: len(i.shards),
		ShardDocCounts: counts,
		Mappings:       i.mapping.Snapshot(),
	}
}

func (i *IndexInstance) refreshShardGauge() {
	if i.metrics == nil {
		return
	}
	i.metrics.SetShardDocCounts(i.settings.Name, i.shards.DocCount())
}
