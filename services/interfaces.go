// Package services declares the interfaces the HTTP layer programs against.
// internal/engine provides the implementations.
package services

import (
	"context"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/internal/indexing"
	"github.com/gcbaptista/go-facet-search/internal/search"
	"github.com/gcbaptista/go-facet-search/model"
)

// Indexer defines single-document operations on an index
type Indexer interface {
	PutDocument(doc model.Document) (indexing.IndexResult, error)
	GetDocument(id string) indexing.GetResult
	DeleteDocument(id string) (indexing.DeleteResult, error)
	DeleteAllDocuments() (int, error)
}

// BulkIndexer applies ordered batches of operations
type BulkIndexer interface {
	Bulk(ctx context.Context, ops []indexing.Operation) (*indexing.BulkResponse, error)
	BulkAsync(ops []indexing.Operation) (string, error) // Returns job ID
}

// Searcher defines operations for querying an index
type Searcher interface {
	Search(ctx context.Context, req search.Request) (search.Result, error)
}

// MultiSearcher runs several named searches in one request
type MultiSearcher interface {
	MultiSearch(ctx context.Context, req search.MultiRequest) (*search.MultiResult, error)
}

// Suggester returns term completions for a field
type Suggester interface {
	Suggest(ctx context.Context, req search.SuggestRequest) (search.SuggestResult, error)
}

// IndexStats summarizes the content of an index
type IndexStats struct {
	Name           string                      `json:"name"`
	DocumentCount  int                         `json:"document_count"`
	NumberOfShards int                         `json:"number_of_shards"`
	ShardDocCounts []int                       `json:"shard_doc_counts"`
	Mappings       map[string]config.FieldType `json:"mappings"`
}

// IndexAccessor combines every per-index operation
type IndexAccessor interface {
	Indexer
	BulkIndexer
	Searcher
	MultiSearcher
	Suggester
	Settings() config.IndexSettings
	Stats() IndexStats
}

// IndexManager manages the lifecycle of indexes
type IndexManager interface {
	CreateIndex(settings config.IndexSettings) error
	GetIndex(name string) (IndexAccessor, error)
	DeleteIndex(name string) error
	ListIndexes() []string
}

// JobManager defines operations for inspecting background jobs
type JobManager interface {
	GetJob(jobID string) (*model.Job, error)
	ListJobs(indexName string, status *model.JobStatus) []*model.Job
}

// HealthStatus is the traffic-light health of a node
type HealthStatus string

const (
	HealthGreen  HealthStatus = "green"  // started, every index open, no background work
	HealthYellow HealthStatus = "yellow" // serving while async jobs run or an index is closing
	HealthRed    HealthStatus = "red"    // not started or shut down
)

func (s HealthStatus) rank() int {
	switch s {
	case HealthGreen:
		return 2
	case HealthYellow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as healthy as want or better.
func (s HealthStatus) AtLeast(want HealthStatus) bool {
	return s.rank() >= want.rank()
}

// NodeHealth is the body of the health endpoint
type NodeHealth struct {
	Status      HealthStatus `json:"status"`
	NodeName    string       `json:"node_name"`
	Indexes     int          `json:"indexes"`
	OpenIndexes int          `json:"open_indexes"`
	ActiveJobs  int          `json:"active_jobs"`
}

// HealthReporter reports node health
type HealthReporter interface {
	Health() NodeHealth
}
