package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-facet-search/config"
)

// CreateIndexHandler handles the request to create a new index.
// Request Body: config.IndexSettings
func (api *API) CreateIndexHandler(c *gin.Context) {
	var settings config.IndexSettings
	if result := ValidateJSONBinding(c, &settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if result := ValidateIndexSettings(&settings); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	if err := api.engine.CreateIndex(settings); err != nil {
		SendServiceError(c, ErrorCodeInternalError, err)
		return
	}

	idx, err := api.engine.GetIndex(settings.Name)
	if err != nil {
		SendServiceError(c, ErrorCodeInternalError, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Index '" + settings.Name + "' created successfully",
		"settings": idx.Settings(),
	})
}

// ListIndexesHandler lists the names of every index.
func (api *API) ListIndexesHandler(c *gin.Context) {
	names := api.engine.ListIndexes()
	c.JSON(http.StatusOK, gin.H{"indexes": names, "count": len(names)})
}

// GetIndexHandler returns the settings of an index.
func (api *API) GetIndexHandler(c *gin.Context) {
	idx, _, ok := api.index(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, idx.Settings())
}

// DeleteIndexHandler removes an index and every document in it.
func (api *API) DeleteIndexHandler(c *gin.Context) {
	indexName := c.Param("indexName")
	if result := ValidateIndexName(indexName); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if err := api.engine.DeleteIndex(indexName); err != nil {
		SendServiceError(c, ErrorCodeInternalError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Index '" + indexName + "' deleted successfully"})
}

// GetIndexStatsHandler returns document counts and the current mapping of an index.
func (api *API) GetIndexStatsHandler(c *gin.Context) {
	idx, _, ok := api.index(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, idx.Stats())
}
