package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-facet-search/model"
)

// GetJobHandler returns the status of an async job.
func (api *API) GetJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")
	job, err := api.jobs.GetJob(jobID)
	if err != nil {
		SendServiceError(c, ErrorCodeInternalError, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler lists the jobs of an index, optionally filtered by ?status=.
func (api *API) ListJobsHandler(c *gin.Context) {
	_, indexName, ok := api.index(c)
	if !ok {
		return
	}

	var statusFilter *model.JobStatus
	if raw := c.Query("status"); raw != "" {
		status := model.JobStatus(raw)
		switch status {
		case model.JobStatusPending, model.JobStatusRunning, model.JobStatusCompleted,
			model.JobStatusFailed, model.JobStatusCancelled:
		default:
			result := &ValidationResult{Valid: true}
			result.AddError("status", "Unknown job status '"+raw+"'")
			SendValidationError(c, result)
			return
		}
		statusFilter = &status
	}

	jobs := api.jobs.ListJobs(indexName, statusFilter)
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}
