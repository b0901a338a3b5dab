package indexing

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/model"
)

// OpKind is the kind of a bulk operation.
type OpKind string

const (
	OpIndex  OpKind = "index"
	OpDelete OpKind = "delete"
)

// Outcome is the result of one bulk item.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error"
)

// Operation is one item of a bulk request.
type Operation struct {
	Kind   OpKind
	ID     string       // optional for OpIndex
	Fields model.Fields // OpIndex only
	// Err marks an item rejected while decoding; it is reported as failed
	// without touching the index.
	Err error
}

// ItemResult reports what happened to one Operation.
type ItemResult struct {
	ID      string  `json:"_id"`
	Kind    OpKind  `json:"kind"`
	Outcome Outcome `json:"outcome"`
	Created bool    `json:"created,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// BulkResponse lists one ItemResult per Operation, in request order.
type BulkResponse struct {
	Took  int64        `json:"took"` // milliseconds
	Items []ItemResult `json:"items"`
}

// HasFailures reports whether any item failed. A delete of an unknown ID is
// reported as not_found and is not a failure.
func (r *BulkResponse) HasFailures() bool {
	for _, item := range r.Items {
		if item.Outcome == OutcomeError {
			return true
		}
	}
	return false
}

// Failures returns the failed items.
func (r *BulkResponse) Failures() []ItemResult {
	var failed []ItemResult
	for _, item := range r.Items {
		if item.Outcome == OutcomeError {
			failed = append(failed, item)
		}
	}
	return failed
}

// ProgressFunc is called after each applied item.
type ProgressFunc func(done, total int)

// Coordinator applies bulk requests to an index.
type Coordinator struct {
	service *Service
	logger  *zap.Logger
}

// NewCoordinator creates a Coordinator writing through service.
func NewCoordinator(service *Service) *Coordinator {
	return &Coordinator{service: service, logger: service.logger.Named("bulk")}
}

// Submit applies ops in order, one shard critical section per item, so other
// writers and searches interleave only between items. An item failure never
// aborts the batch. The batch as a whole fails only when the index is closed
// or ctx is done before the first item; items not applied because ctx ended
// mid-batch are reported as errors.
func (c *Coordinator) Submit(ctx context.Context, ops []Operation, progress ProgressFunc) (*BulkResponse, error) {
	startTime := time.Now()

	if err := c.service.CheckOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("bulk request cancelled: %w", err)
	}

	response := &BulkResponse{Items: make([]ItemResult, 0, len(ops))}
	for i, op := range ops {
		var item ItemResult
		if err := ctx.Err(); err != nil {
			item = ItemResult{ID: op.ID, Kind: op.Kind, Outcome: OutcomeError, Error: "bulk request cancelled: " + err.Error()}
		} else {
			item = c.apply(op)
		}
		response.Items = append(response.Items, item)
		c.service.metrics.BulkItem(c.service.name, string(item.Kind), string(item.Outcome))
		if progress != nil {
			progress(i+1, len(ops))
		}
	}

	response.Took = time.Since(startTime).Milliseconds()
	if response.HasFailures() {
		c.logger.Warn("bulk request had failures",
			zap.String("index", c.service.name),
			zap.Int("items", len(ops)),
			zap.Int("failed", len(response.Failures())))
	} else {
		c.logger.Debug("bulk request applied",
			zap.String("index", c.service.name),
			zap.Int("items", len(ops)),
			zap.Int64("took_ms", response.Took))
	}
	return response, nil
}

func (c *Coordinator) apply(op Operation) ItemResult {
	item := ItemResult{ID: op.ID, Kind: op.Kind}
	if op.Err != nil {
		return failed(item, op.Err)
	}
	switch op.Kind {
	case OpIndex:
		result, err := c.service.Put(model.NewDocument(op.ID, op.Fields))
		if err != nil {
			return failed(item, err)
		}
		item.ID = result.ID
		item.Created = result.Created
		item.Outcome = OutcomeOK
	case OpDelete:
		if op.ID == "" {
			return failed(item, errors.NewValidationError("_id", "delete requires a document ID"))
		}
		result, err := c.service.Delete(op.ID)
		if err != nil {
			return failed(item, err)
		}
		item.Outcome = OutcomeOK
		if !result.Found {
			item.Outcome = OutcomeNotFound
		}
	default:
		return failed(item, errors.NewValidationError("kind", fmt.Sprintf("unknown bulk operation '%s'", op.Kind)))
	}
	return item
}

func failed(item ItemResult, err error) ItemResult {
	item.Outcome = OutcomeError
	item.Error = err.Error()
	return item
}

