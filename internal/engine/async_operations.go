package engine

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/internal/indexing"
	"github.com/gcbaptista/go-facet-search/model"
)

// progressStep is how many bulk items pass between two progress updates.
const progressStep = 100

// BulkAsync runs a bulk request as a background job and returns the job ID.
// The job result is the full BulkResponse; the job fails only when the batch
// as a whole is rejected.
func (i *IndexInstance) BulkAsync(ops []indexing.Operation) (string, error) {
	if err := i.indexer.CheckOpen(); err != nil {
		return "", err
	}

	name := i.settings.Name
	jobID := i.jobs.CreateJob(model.JobTypeBulk, name, map[string]string{
		"operations": strconv.Itoa(len(ops)),
	})

	err := i.jobs.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) (interface{}, error) {
		i.jobs.UpdateJobProgress(job.ID, 0, len(ops), "queued items")
		res, err := i.bulk.Submit(ctx, ops, func(done, total int) {
			if done%progressStep == 0 || done == total {
				i.jobs.UpdateJobProgress(job.ID, done, total, "applying items")
			}
		})
		if err != nil {
			return nil, err
		}
		i.refreshShardGauge()
		if res.HasFailures() {
			i.logger.Warn("async bulk finished with item failures",
				zap.String("job_id", job.ID),
				zap.Int("failed", len(res.Failures())))
		}
		return res, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to start bulk job for index '%s': %w", name, err)
	}
	return jobID, nil
}
