package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-facet-search/model"
)

// PutDocumentHandler indexes the request body under the ID in the path,
// replacing any previous document with that ID.
func (api *API) PutDocumentHandler(c *gin.Context) {
	documentID := c.Param("documentId")
	if result := ValidateDocumentID(documentID); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	api.indexDocument(c, documentID)
}

// CreateDocumentHandler indexes the request body under a generated ID.
func (api *API) CreateDocumentHandler(c *gin.Context) {
	api.indexDocument(c, "")
}

func (api *API) indexDocument(c *gin.Context, documentID string) {
	idx, _, ok := api.index(c)
	if !ok {
		return
	}

	var fields model.Fields
	if result := ValidateJSONBinding(c, &fields); result.HasErrors() {
		SendValidationError(c, result)
		return
	}
	if fields == nil {
		result := &ValidationResult{Valid: true}
		result.AddError("request_body", "Document must be a JSON object")
		SendValidationError(c, result)
		return
	}

	res, err := idx.PutDocument(model.NewDocument(documentID, fields))
	if err != nil {
		SendServiceError(c, ErrorCodeIndexingFailed, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}

// GetDocumentHandler returns one document with its source.
func (api *API) GetDocumentHandler(c *gin.Context) {
	idx, indexName, ok := api.index(c)
	if !ok {
		return
	}
	documentID := c.Param("documentId")

	res := idx.GetDocument(documentID)
	if !res.Found {
		SendDocumentNotFoundError(c, documentID, indexName)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"_id":     res.ID,
		"found":   true,
		"_source": res.Document.Fields,
	})
}

// DeleteDocumentHandler removes one document. An unknown ID answers 404 with found=false.
func (api *API) DeleteDocumentHandler(c *gin.Context) {
	idx, _, ok := api.index(c)
	if !ok {
		return
	}

	res, err := idx.DeleteDocument(c.Param("documentId"))
	if err != nil {
		SendServiceError(c, ErrorCodeIndexingFailed, err)
		return
	}
	status := http.StatusOK
	if !res.Found {
		status = http.StatusNotFound
	}
	c.JSON(status, res)
}

// DeleteAllDocumentsHandler empties an index. Its mapping is kept.
func (api *API) DeleteAllDocumentsHandler(c *gin.Context) {
	idx, indexName, ok := api.index(c)
	if !ok {
		return
	}

	removed, err := idx.DeleteAllDocuments()
	if err != nil {
		SendServiceError(c, ErrorCodeIndexingFailed, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "All documents deleted from index '" + indexName + "'",
		"deleted": removed,
	})
}
