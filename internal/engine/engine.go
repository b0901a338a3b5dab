// Package engine owns the indexes of a node and wires each one to its shards,
// indexing, bulk and search services.
package engine

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/internal/facet"
	"github.com/gcbaptista/go-facet-search/internal/jobs"
	"github.com/gcbaptista/go-facet-search/internal/metrics"
	"github.com/gcbaptista/go-facet-search/internal/search"
	"github.com/gcbaptista/go-facet-search/services"
)

// Engine manages multiple search indexes.
// It implements the services.IndexManager interface.
type Engine struct {
	mu      sync.RWMutex
	indexes map[string]*IndexInstance
	closed  bool

	logger           *zap.Logger
	metrics          *metrics.Metrics
	jobs             *jobs.Manager
	ownsJobs         bool
	defaultShards    int
	defaultFacetSize int
	maxResultWindow  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records index activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithJobs runs async bulk requests on the given manager.
func WithJobs(m *jobs.Manager) Option {
	return func(e *Engine) { e.jobs = m }
}

// WithDefaultShards sets the shard count of indexes created without one.
func WithDefaultShards(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.defaultShards = n
		}
	}
}

// WithSearchDefaults sets the terms facet size and the result window of every index.
func WithSearchDefaults(defaultFacetSize, maxResultWindow int) Option {
	return func(e *Engine) {
		if defaultFacetSize > 0 {
			e.defaultFacetSize = defaultFacetSize
		}
		if maxResultWindow > 0 {
			e.maxResultWindow = maxResultWindow
		}
	}
}

// NewEngine creates a new engine with no indexes.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		indexes:          make(map[string]*IndexInstance),
		logger:           zap.NewNop(),
		defaultShards:    config.DefaultNumberOfShards,
		defaultFacetSize: facet.DefaultTermsSize,
		maxResultWindow:  search.DefaultMaxResultWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.jobs == nil {
		e.jobs = jobs.NewManager(1, jobs.WithLogger(e.logger.Named("jobs")), jobs.WithMetrics(e.metrics))
		e.ownsJobs = true
	}
	return e
}

// GetIndex retrieves an index by its name.
func (e *Engine) GetIndex(name string) (services.IndexAccessor, error) {
	instance, err := e.instance(name)
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func (e *Engine) instance(name string) (*IndexInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return nil, errors.NewIndexNotFoundError(name)
	}
	return instance, nil
}

// ListIndexes returns the names of all indexes, sorted.
func (e *Engine) ListIndexes() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.indexes))
	for name := range e.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Jobs returns the manager running async bulk requests.
func (e *Engine) Jobs() *jobs.Manager {
	return e.jobs
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// OpenIndexes returns how many indexes accept writes.
func (e *Engine) OpenIndexes() (open, total int) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, instance := range e.indexes {
		total++
		if !instance.indexer.Closed() {
			open++
		}
	}
	return open, total
}

// Close closes every index and rejects later index creation. A job manager
// created by NewEngine is stopped too; one passed with WithJobs belongs to
// the caller.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, instance := range e.indexes {
		instance.indexer.Close()
	}
	count := len(e.indexes)
	e.mu.Unlock()

	if e.ownsJobs {
		e.jobs.Stop()
	}
	e.logger.Info("engine closed", zap.Int("indexes", count))
}
