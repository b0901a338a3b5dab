// Package indexing writes documents into the shards of one index.
package indexing

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/index"
	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/internal/metrics"
	"github.com/gcbaptista/go-facet-search/internal/shard"
	"github.com/gcbaptista/go-facet-search/model"
)

// IndexResult reports where a document was stored.
type IndexResult struct {
	ID      string `json:"_id"`
	Created bool   `json:"created"` // false when an existing document was replaced
	Shard   int    `json:"_shard"`
}

// GetResult is the outcome of a lookup. Found is false for an unknown ID.
type GetResult struct {
	ID       string         `json:"_id"`
	Found    bool           `json:"found"`
	Document model.Document `json:"-"`
}

// DeleteResult is the outcome of a delete. Found is false for an unknown ID.
type DeleteResult struct {
	ID    string `json:"_id"`
	Found bool   `json:"found"`
}

// Service implements the indexing logic for a single index.
type Service struct {
	name    string
	shards  shard.Set
	mapping *index.Mapping
	logger  *zap.Logger
	metrics *metrics.Metrics
	closed  atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics records indexing activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new indexing Service.
func NewService(name string, shards shard.Set, mapping *index.Mapping, opts ...Option) (*Service, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("at least one shard is required")
	}
	if mapping == nil {
		return nil, fmt.Errorf("mapping cannot be nil")
	}
	s := &Service{
		name:    name,
		shards:  shards,
		mapping: mapping,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close rejects every later write with ErrIndexClosed.
func (s *Service) Close() {
	s.closed.Store(true)
}

// Closed reports whether Close was called.
func (s *Service) Closed() bool {
	return s.closed.Load()
}

// CheckOpen returns ErrIndexClosed once Close was called.
func (s *Service) CheckOpen() error {
	if s.closed.Load() {
		return fmt.Errorf("index '%s': %w", s.name, errors.ErrIndexClosed)
	}
	return nil
}

// Put inserts or replaces a document. A document without an ID is given a
// random UUID. The old postings of a replaced document are removed before the
// new ones are added, in one critical section of the owning shard.
func (s *Service) Put(doc model.Document) (IndexResult, error) {
	if err := s.CheckOpen(); err != nil {
		return IndexResult{}, err
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	} else if strings.TrimSpace(doc.ID) == "" {
		return IndexResult{}, errors.NewValidationError("_id", "document ID cannot be whitespace-only")
	}

	fields, err := s.mapping.Apply(doc.Fields)
	if err != nil {
		return IndexResult{}, err
	}
	doc = model.NewDocument(doc.ID, fields)

	sh := s.shards.Route(doc.ID)
	sh.Lock()
	internalID, previous, replaced := sh.Store.Put(doc)
	if replaced {
		sh.Index.Remove(internalID, previous.Fields)
	}
	sh.Index.Add(internalID, doc.Fields)
	sh.Unlock()

	s.metrics.DocumentIndexed(s.name, !replaced)
	return IndexResult{ID: doc.ID, Created: !replaced, Shard: sh.ID}, nil
}

// Get returns the document stored under id.
func (s *Service) Get(id string) GetResult {
	sh := s.shards.Route(id)
	sh.Store.Mu.RLock()
	doc, _, found := sh.Store.Get(id)
	sh.Store.Mu.RUnlock()

	result := GetResult{ID: id, Found: found}
	if found {
		result.Document = model.NewDocument(doc.ID, doc.Fields.Clone())
	}
	return result
}

// Delete removes the document stored under id and all its postings.
func (s *Service) Delete(id string) (DeleteResult, error) {
	if err := s.CheckOpen(); err != nil {
		return DeleteResult{}, err
	}

	sh := s.shards.Route(id)
	sh.Lock()
	doc, internalID, found := sh.Store.Delete(id)
	if found {
		sh.Index.Remove(internalID, doc.Fields)
	}
	sh.Unlock()

	if found {
		s.metrics.DocumentsDeleted(s.name, 1)
	}
	return DeleteResult{ID: id, Found: found}, nil
}

// DeleteAll removes every document of the index and returns how many were removed.
// Shards are cleared one at a time; the field mapping is kept.
func (s *Service) DeleteAll() (int, error) {
	if err := s.CheckOpen(); err != nil {
		return 0, err
	}

	removed := 0
	for _, sh := range s.shards {
		sh.Lock()
		removed += sh.Store.Len()
		sh.Store.Reset()
		sh.Index.Reset()
		sh.Unlock()
	}

	s.metrics.DocumentsDeleted(s.name, removed)
	s.logger.Info("deleted all documents", zap.String("index", s.name), zap.Int("count", removed))
	return removed, nil
}

// Count returns the number of documents across all shards.
func (s *Service) Count() int {
	total := 0
	for _, count := range s.shards.DocCount() {
		total += count
	}
	return total
}
