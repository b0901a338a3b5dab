// Package testing provides utilities and helpers for testing the search engine.
package testing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/internal/indexing"
	"github.com/gcbaptista/go-facet-search/internal/node"
	"github.com/gcbaptista/go-facet-search/internal/search"
	"github.com/gcbaptista/go-facet-search/model"
	"github.com/gcbaptista/go-facet-search/services"
)

// BeerSeed is the generator seed used by SeedBeers unless a test picks another.
const BeerSeed uint64 = 42

// StartNode starts a node on a free local port and closes it when the test ends.
// The node is at least yellow when StartNode returns.
func StartNode(t *testing.T, opts ...node.Option) *node.Node {
	t.Helper()

	cfg := config.DefaultNodeConfig()
	cfg.Node.Name = "test-" + t.Name()
	opts = append([]node.Option{node.WithLogger(zap.NewNop()), node.WithAddr("127.0.0.1:0")}, opts...)

	n, err := node.New(cfg, opts...)
	require.NoError(t, err, "Failed to create node")
	require.NoError(t, n.Start(), "Failed to start node")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.Close(ctx); err != nil {
			t.Logf("Warning: node did not close cleanly: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, n.WaitForStatus(ctx, services.HealthYellow), "Node never became ready")
	return n
}

// CreateTestIndex creates an index with the beer mapping and returns it.
func CreateTestIndex(t *testing.T, manager services.IndexManager, indexName string, shards int) services.IndexAccessor {
	t.Helper()

	settings := config.IndexSettings{
		Name:           indexName,
		NumberOfShards: shards,
		Mappings: map[string]config.FieldType{
			"brand":  config.FieldTypeText,
			"colour": config.FieldTypeText,
			"size":   config.FieldTypeNumber,
			"price":  config.FieldTypeNumber,
		},
	}
	require.NoError(t, manager.CreateIndex(settings), "Failed to create test index")

	idx, err := manager.GetIndex(indexName)
	require.NoError(t, err, "Failed to get test index")
	return idx
}

// GenerateBeers returns count reproducible beers.
func GenerateBeers(count int, seed uint64) []model.Beer {
	return model.NewBeerGenerator(seed).GenerateN(count)
}

// BeerOperations turns beers into bulk index operations with IDs beer-0, beer-1, ...
func BeerOperations(t *testing.T, beers []model.Beer) []indexing.Operation {
	t.Helper()

	ops := make([]indexing.Operation, 0, len(beers))
	for i, beer := range beers {
		fields, err := model.ToFields(beer)
		require.NoError(t, err, "Failed to convert beer")
		ops = append(ops, indexing.Operation{Kind: indexing.OpIndex, ID: fmt.Sprintf("beer-%d", i), Fields: fields})
	}
	return ops
}

// SeedBeers bulk-indexes count generated beers and returns them in ID order.
func SeedBeers(t *testing.T, idx services.IndexAccessor, count int, seed uint64) []model.Beer {
	t.Helper()

	beers := GenerateBeers(count, seed)
	res, err := idx.Bulk(context.Background(), BeerOperations(t, beers))
	require.NoError(t, err, "Failed to seed beers")
	require.False(t, res.HasFailures(), "Seeding reported failures: %v", res.Failures())
	return beers
}

// JobPollingOptions configures job polling behavior
type JobPollingOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	LogProgress  bool
}

// DefaultJobPollingOptions returns sensible defaults for job polling
func DefaultJobPollingOptions() JobPollingOptions {
	return JobPollingOptions{
		Timeout:      10 * time.Second,
		PollInterval: 20 * time.Millisecond,
		LogProgress:  false,
	}
}

// WaitForJobCompletion polls a job until it completes or times out
func WaitForJobCompletion(t *testing.T, jobManager services.JobManager, jobID string, opts JobPollingOptions) *model.Job {
	t.Helper()

	timeout := time.After(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			t.Fatalf("Job %s did not complete within %v timeout", jobID, opts.Timeout)
		case <-ticker.C:
			job, err := jobManager.GetJob(jobID)
			require.NoError(t, err, "Failed to get job status")

			switch job.Status {
			case model.JobStatusCompleted:
				return job
			case model.JobStatusFailed, model.JobStatusCancelled:
				t.Fatalf("Job %s ended as %s: %s", jobID, job.Status, job.Error)
			case model.JobStatusRunning:
				if opts.LogProgress && job.Progress != nil {
					t.Logf("Job %s progress: %d/%d - %s",
						jobID,
						job.Progress.Current,
						job.Progress.Total,
						job.Progress.Message)
				}
			}
		}
	}
}

// AssertJobCompleted verifies that a job completed successfully
func AssertJobCompleted(t *testing.T, job *model.Job, expectedType model.JobType, expectedIndex string) {
	t.Helper()
	assert.Equal(t, model.JobStatusCompleted, job.Status, "Job should be completed")
	assert.Equal(t, expectedType, job.Type, "Job type should match")
	assert.Equal(t, expectedIndex, job.IndexName, "Job index name should match")
	assert.NotNil(t, job.CompletedAt, "Job should have completion timestamp")
	assert.Empty(t, job.Error, "Job should not have error")
}

// SearchTestCase represents a test case for search operations
type SearchTestCase struct {
	Name          string
	Request       search.Request
	ExpectedTotal int
	Validate      func(t *testing.T, result search.Result)
}

// RunSearchTests runs a suite of search tests against an index
func RunSearchTests(t *testing.T, idx services.Searcher, tests []SearchTestCase) {
	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			result, err := idx.Search(context.Background(), tt.Request)
			require.NoError(t, err, "Search failed")
			assert.Equal(t, tt.ExpectedTotal, result.TotalHits, "Unexpected total hits")
			if tt.Validate != nil {
				tt.Validate(t, result)
			}
		})
	}
}

// DoJSON sends body (marshalled unless it is already a string or []byte) to handler
// and returns the recorded response.
func DoJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	case []byte:
		payload = b
	default:
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// DecodeJSON unmarshals a recorded response body into target.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response: %s", w.Body.String())
}
