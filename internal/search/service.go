// Package search evaluates queries and facets over the shards of one index.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/index"
	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/internal/facet"
	"github.com/gcbaptista/go-facet-search/internal/query"
	"github.com/gcbaptista/go-facet-search/internal/shard"
	"github.com/gcbaptista/go-facet-search/model"
)

// DefaultMaxResultWindow bounds From+Size of a single request.
const DefaultMaxResultWindow = 10000

// Service implements the search logic for a single index.
type Service struct {
	shards           shard.Set
	mapping          *index.Mapping
	settings         *config.IndexSettings
	logger           *zap.Logger
	defaultFacetSize int
	maxResultWindow  int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithDefaultFacetSize sets the size of terms facets that do not set one.
func WithDefaultFacetSize(size int) Option {
	return func(s *Service) { s.defaultFacetSize = size }
}

// WithMaxResultWindow bounds From+Size.
func WithMaxResultWindow(window int) Option {
	return func(s *Service) { s.maxResultWindow = window }
}

// NewService creates a new search Service.
func NewService(shards shard.Set, mapping *index.Mapping, settings *config.IndexSettings, opts ...Option) (*Service, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("at least one shard is required")
	}
	if mapping == nil {
		return nil, fmt.Errorf("mapping cannot be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	s := &Service{
		shards:           shards,
		mapping:          mapping,
		settings:         settings,
		logger:           zap.NewNop(),
		defaultFacetSize: facet.DefaultTermsSize,
		maxResultWindow:  DefaultMaxResultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) newPlan() *plan {
	mapping := s.mapping.Snapshot()
	defaultFields := s.settings.DefaultSearchFields
	if len(defaultFields) == 0 {
		defaultFields = s.mapping.TextFields()
	}
	return &plan{mapping: mapping, defaultFields: defaultFields}
}

// scoredDoc is a hit before pagination.
type scoredDoc struct {
	id     string
	score  float64
	source model.Fields
}

func sortHits(hits []scoredDoc) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})
}

// shardResult is what one shard contributes to a Result.
type shardResult struct {
	total  int
	hits   []scoredDoc // top From+Size hits of the shard, ranked
	facets map[string]facet.Partial
}

// Search evaluates req against every shard of the index.
// All shards are read-locked for the duration of the call, so the result
// reflects a single point in time; shards are then evaluated in parallel.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	startTime := time.Now()

	if req.From < 0 {
		return Result{}, errors.NewValidationError("from", "must not be negative")
	}
	if req.Size < 0 {
		return Result{}, errors.NewValidationError("size", "must not be negative")
	}
	if req.From > s.maxResultWindow || req.Size > s.maxResultWindow-req.From {
		return Result{}, errors.NewValidationError("size", fmt.Sprintf("from + size must not exceed %d", s.maxResultWindow))
	}

	q := req.Query
	if q == nil {
		q = query.MatchAll{}
	}

	p := s.newPlan()
	if err := p.validate(q); err != nil {
		return Result{}, err
	}
	if err := p.validate(req.PostFilter); err != nil {
		return Result{}, err
	}
	for name, fr := range req.Facets {
		if fr.Spec == nil {
			return Result{}, errors.NewInvalidQueryError("", "facet '"+name+"' has no type")
		}
		fieldType, mapped := p.fieldType(fr.Spec.FieldName())
		if err := facet.Validate(fr.Spec, fieldType, mapped); err != nil {
			return Result{}, err
		}
		if err := p.validate(fr.Filter); err != nil {
			return Result{}, err
		}
	}

	s.shards.RLockAll()
	defer s.shards.RUnlockAll()

	terms := make(map[string]map[string]struct{})
	p.analyzedTerms(q, terms)
	p.analyzedTerms(req.PostFilter, terms)
	p.bm25 = newBM25Calculator(collectStats(s.shards, terms))

	window := req.From + req.Size
	partials := make([]shardResult, len(s.shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, sh := range s.shards {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[i] = p.searchShard(sh, q, req, window)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("search cancelled: %w", err)
	}

	result := Result{Hits: []Hit{}, QueryID: uuid.New().String()}
	var all []scoredDoc
	for _, part := range partials {
		result.TotalHits += part.total
		all = append(all, part.hits...)
	}
	sortHits(all)
	if len(all) > 0 {
		result.MaxScore = all[0].score
	}

	var highlightTerms map[string]map[string]struct{}
	if len(req.Highlight) > 0 {
		highlightTerms = make(map[string]map[string]struct{})
		p.highlightTerms(q, highlightTerms)
	}
	for i := req.From; i < len(all) && i < window; i++ {
		hit := Hit{ID: all[i].id, Score: all[i].score, Source: all[i].source.Clone()}
		if highlightTerms != nil {
			hit.Highlight = highlight(all[i].source, req.Highlight, highlightTerms)
		}
		result.Hits = append(result.Hits, hit)
	}

	if len(req.Facets) > 0 {
		result.Facets = make(map[string]facet.Result, len(req.Facets))
		for name, fr := range req.Facets {
			shardPartials := make([]facet.Partial, 0, len(partials))
			for _, part := range partials {
				shardPartials = append(shardPartials, part.facets[name])
			}
			result.Facets[name] = facet.Merge(fr.Spec, shardPartials, s.defaultFacetSize)
		}
	}

	result.Took = time.Since(startTime).Milliseconds()
	s.logger.Debug("search executed",
		zap.String("index", s.settings.Name),
		zap.String("query_id", result.QueryID),
		zap.Int("total_hits", result.TotalHits),
		zap.Int("facets", len(req.Facets)),
		zap.Duration("took", time.Since(startTime)))
	return result, nil
}

// searchShard evaluates the request on one read-locked shard.
func (p *plan) searchShard(sh *shard.Shard, q query.Query, req Request, window int) shardResult {
	matches := p.eval(sh, q)

	hitDocs := matches.docs
	if req.PostFilter != nil {
		hitDocs = roaring.And(matches.docs, p.eval(sh, req.PostFilter).docs)
	}

	out := shardResult{total: int(hitDocs.GetCardinality())}
	if window > 0 {
		out.hits = make([]scoredDoc, 0, out.total)
		it := hitDocs.Iterator()
		for it.HasNext() {
			docID := it.Next()
			doc, ok := sh.Store.ByInternalID(docID)
			if !ok {
				continue
			}
			out.hits = append(out.hits, scoredDoc{id: doc.ID, score: matches.score(docID), source: doc.Fields})
		}
		sortHits(out.hits)
		if len(out.hits) > window {
			out.hits = out.hits[:window]
		}
	}

	if len(req.Facets) > 0 {
		out.facets = make(map[string]facet.Partial, len(req.Facets))
		for name, fr := range req.Facets {
			candidates := matches.docs
			if fr.Global {
				candidates = sh.Store.Live
			}
			if fr.Filter != nil {
				candidates = roaring.And(candidates, p.eval(sh, fr.Filter).docs)
			}
			out.facets[name] = facet.Collect(fr.Spec, sh.Index, candidates)
		}
	}
	return out
}
