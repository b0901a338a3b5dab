// Package api exposes the indexes of a node over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-facet-search/internal/metrics"
	"github.com/gcbaptista/go-facet-search/services"
)

const (
	defaultSearchSize = 10
	defaultMaxSize    = 10000
)

// Config carries the dependencies and limits of the HTTP layer.
type Config struct {
	Engine  services.IndexManager
	Jobs    services.JobManager
	Health  services.HealthReporter
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	DefaultSize    int     // search size when the body does not set one
	MaxSize        int     // upper bound of "size" in a single search
	MaxBodyBytes   int64   // 0 disables the body limit
	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
}

// API holds dependencies for API handlers, primarily the index manager.
type API struct {
	engine       services.IndexManager
	jobs         services.JobManager
	health       services.HealthReporter
	logger       *zap.Logger
	metrics      *metrics.Metrics
	defaultSize  int
	maxSize      int
	maxBodyBytes int64
}

// NewAPI creates a new API handler structure.
func NewAPI(cfg Config) *API {
	api := &API{
		engine:       cfg.Engine,
		jobs:         cfg.Jobs,
		health:       cfg.Health,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		defaultSize:  cfg.DefaultSize,
		maxSize:      cfg.MaxSize,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	if api.logger == nil {
		api.logger = zap.NewNop()
	}
	if api.defaultSize <= 0 {
		api.defaultSize = defaultSearchSize
	}
	if api.maxSize <= 0 {
		api.maxSize = defaultMaxSize
	}
	return api
}

// SetupRoutes installs the middleware chain and every route on router.
func SetupRoutes(router *gin.Engine, cfg Config) {
	apiHandler := NewAPI(cfg)

	router.Use(
		RequestIDMiddleware(apiHandler.logger),
		LoggingMiddleware(),
		MetricsMiddleware(cfg.Metrics),
		CORSMiddleware(),
		RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst),
		RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)

	router.GET("/health", apiHandler.HealthCheckHandler)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Job management routes
	router.GET("/jobs/:jobId", apiHandler.GetJobHandler)

	// Index management routes
	indexRoutes := router.Group("/indexes")
	{
		indexRoutes.POST("", apiHandler.CreateIndexHandler)                     // Create a new index
		indexRoutes.GET("", apiHandler.ListIndexesHandler)                      // List all indexes
		indexRoutes.GET("/:indexName", apiHandler.GetIndexHandler)              // Get index settings
		indexRoutes.DELETE("/:indexName", apiHandler.DeleteIndexHandler)        // Delete an index
		indexRoutes.GET("/:indexName/stats", apiHandler.GetIndexStatsHandler)   // Get index statistics
		indexRoutes.GET("/:indexName/jobs", apiHandler.ListJobsHandler)         // List jobs for an index
		indexRoutes.POST("/:indexName/_bulk", apiHandler.BulkHandler)           // NDJSON bulk request
		indexRoutes.POST("/:indexName/_search", apiHandler.SearchHandler)       // Search with facets
		indexRoutes.POST("/:indexName/_msearch", apiHandler.MultiSearchHandler) // Named searches in parallel
		indexRoutes.POST("/:indexName/_suggest", apiHandler.SuggestHandler)     // Term suggestions

		// Document management routes per index
		docRoutes := indexRoutes.Group("/:indexName/documents")
		{
			docRoutes.POST("", apiHandler.CreateDocumentHandler)               // Index with a generated ID
			docRoutes.DELETE("", apiHandler.DeleteAllDocumentsHandler)         // Delete all documents
			docRoutes.PUT("/:documentId", apiHandler.PutDocumentHandler)       // Index or replace by ID
			docRoutes.GET("/:documentId", apiHandler.GetDocumentHandler)       // Get specific document
			docRoutes.DELETE("/:documentId", apiHandler.DeleteDocumentHandler) // Delete specific document
		}
	}
}

// HealthCheckHandler reports node health. A red node answers 503.
func (api *API) HealthCheckHandler(c *gin.Context) {
	if api.health == nil {
		c.JSON(http.StatusOK, services.NodeHealth{Status: services.HealthGreen})
		return
	}
	health := api.health.Health()
	status := http.StatusOK
	if health.Status == services.HealthRed {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

// index resolves the :indexName parameter, sending the error response on failure.
func (api *API) index(c *gin.Context) (services.IndexAccessor, string, bool) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return nil, indexName, false
	}
	idx, err := api.engine.GetIndex(indexName)
	if err != nil {
		SendServiceError(c, ErrorCodeInternalError, err)
		return nil, indexName, false
	}
	return idx, indexName, true
}
