package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-facet-search/internal/search"
)

// defaultSuggestEdits applies when a suggest body omits max_edits.
const defaultSuggestEdits = 2

// SearchHandler evaluates a JSON DSL search request against an index.
func (api *API) SearchHandler(c *gin.Context) {
	idx, indexName, ok := api.index(c)
	if !ok {
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		SendServiceError(c, ErrorCodeInvalidRequest, err)
		return
	}
	req, err := search.ParseRequest(data, api.defaultSize)
	if err != nil {
		SendServiceError(c, ErrorCodeInvalidQuery, err)
		return
	}
	if result := ValidateSearchWindow(req, api.maxSize); result.HasErrors() {
		SendValidationError(c, result)
		return
	}

	start := time.Now()
	result, err := idx.Search(c.Request.Context(), req)
	api.metrics.ObserveSearch(indexName, result.TotalHits, time.Since(start), err)
	if err != nil {
		SendServiceError(c, ErrorCodeSearchFailed, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MultiSearchHandler runs several named searches against an index in parallel.
func (api *API) MultiSearchHandler(c *gin.Context) {
	idx, indexName, ok := api.index(c)
	if !ok {
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		SendServiceError(c, ErrorCodeInvalidRequest, err)
		return
	}
	multi, err := search.ParseMultiRequest(data, api.defaultSize)
	if err != nil {
		SendServiceError(c, ErrorCodeInvalidQuery, err)
		return
	}
	for _, named := range multi.Queries {
		if result := ValidateSearchWindow(named.Request, api.maxSize); result.HasErrors() {
			for i := range result.Errors {
				result.Errors[i].Field = named.Name + "." + result.Errors[i].Field
			}
			SendValidationError(c, result)
			return
		}
	}

	start := time.Now()
	result, err := idx.MultiSearch(c.Request.Context(), multi)
	if err != nil {
		api.metrics.ObserveSearch(indexName, 0, time.Since(start), err)
		SendServiceError(c, ErrorCodeSearchFailed, err)
		return
	}
	for _, r := range result.Results {
		api.metrics.ObserveSearch(indexName, r.TotalHits, time.Duration(r.Took)*time.Millisecond, nil)
	}
	c.JSON(http.StatusOK, result)
}

type suggestBody struct {
	Field    string `json:"field"`
	Text     string `json:"text"`
	Size     int    `json:"size"`
	MaxEdits *int   `json:"max_edits"`
}

// SuggestHandler returns completions and close matches for a term of one field.
func (api *API) SuggestHandler(c *gin.Context) {
	idx, _, ok := api.index(c)
	if !ok {
		return
	}

	var body suggestBody
	if result := ValidateJSONBinding(c, &body); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	req := search.SuggestRequest{Field: body.Field, Text: body.Text, Size: body.Size, MaxEdits: defaultSuggestEdits}
	if body.MaxEdits != nil {
		req.MaxEdits = *body.MaxEdits
	}

	result, err := idx.Suggest(c.Request.Context(), req)
	if err != nil {
		SendServiceError(c, ErrorCodeSearchFailed, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
