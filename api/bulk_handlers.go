package api

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/internal/indexing"
	"github.com/gcbaptista/go-facet-search/internal/logger"
)

// bulkSummary is the synchronous _bulk response body.
type bulkSummary struct {
	Took   int64                 `json:"took"`
	Errors bool                  `json:"errors"`
	Items  []indexing.ItemResult `json:"items"`
}

// BulkHandler applies an NDJSON bulk body. With ?async=true the batch runs as
// a job and the response carries its ID. Item failures never fail the request.
func (api *API) BulkHandler(c *gin.Context) {
	idx, indexName, ok := api.index(c)
	if !ok {
		return
	}

	async := false
	if raw := c.Query("async"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			result := &ValidationResult{Valid: true}
			result.AddError("async", "async must be a boolean")
			SendValidationError(c, result)
			return
		}
		async = parsed
	}

	body, err := decodeBody(c.Request, api.maxBodyBytes)
	if err != nil {
		var unsupported *errUnsupportedEncoding
		if stderrors.As(err, &unsupported) {
			SendError(c, http.StatusUnsupportedMediaType, ErrorCodeUnsupportedEncoding, err.Error())
			return
		}
		SendServiceError(c, ErrorCodeInvalidRequest, err)
		return
	}
	defer body.Close()

	ops, err := ParseBulk(body)
	if err != nil {
		SendServiceError(c, ErrorCodeInvalidRequest, err)
		return
	}
	if len(ops) == 0 {
		result := &ValidationResult{Valid: true}
		result.AddError("body", "Bulk request contains no operations")
		SendValidationError(c, result)
		return
	}

	if async {
		jobID, err := idx.BulkAsync(ops)
		if err != nil {
			SendServiceError(c, ErrorCodeJobExecutionFailed, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{
			"status":     "accepted",
			"message":    "Bulk request for index '" + indexName + "' queued",
			"job_id":     jobID,
			"operations": len(ops),
		})
		return
	}

	res, err := idx.Bulk(c.Request.Context(), ops)
	if err != nil {
		SendServiceError(c, ErrorCodeIndexingFailed, err)
		return
	}
	if res.HasFailures() {
		logger.FromContext(c.Request.Context()).Debug("bulk request had item failures",
			zap.String("index", indexName),
			zap.Int("failed", len(res.Failures())))
	}
	c.JSON(http.StatusOK, bulkSummary{Took: res.Took, Errors: res.HasFailures(), Items: res.Items})
}
