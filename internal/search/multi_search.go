package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gcbaptista/go-facet-search/internal/errors"
)

// MultiSearch executes multiple named search queries in parallel.
// The first failing query cancels the others and its error is returned.
func (s *Service) MultiSearch(ctx context.Context, multiQuery MultiRequest) (*MultiResult, error) {
	startTime := time.Now()

	if len(multiQuery.Queries) == 0 {
		return nil, errors.NewValidationError("queries", "at least one query is required")
	}

	seen := make(map[string]struct{}, len(multiQuery.Queries))
	for _, namedQuery := range multiQuery.Queries {
		if namedQuery.Name == "" {
			return nil, errors.NewValidationError("queries", "each query must have a non-empty name")
		}
		if _, dup := seen[namedQuery.Name]; dup {
			return nil, errors.NewValidationError("queries", "duplicate query name '"+namedQuery.Name+"'")
		}
		seen[namedQuery.Name] = struct{}{}
	}

	var mu sync.Mutex
	results := make(map[string]Result, len(multiQuery.Queries))

	g, gctx := errgroup.WithContext(ctx)
	for _, namedQuery := range multiQuery.Queries {
		g.Go(func() error {
			result, err := s.Search(gctx, namedQuery.Request)
			if err != nil {
				return fmt.Errorf("error executing query '%s': %w", namedQuery.Name, err)
			}
			mu.Lock()
			results[namedQuery.Name] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	processingTime := time.Since(startTime)

	return &MultiResult{
		Results:          results,
		TotalQueries:     len(multiQuery.Queries),
		ProcessingTimeMs: float64(processingTime.Nanoseconds()) / 1e6,
	}, nil
}
