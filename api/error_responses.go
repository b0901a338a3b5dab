package api

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-facet-search/internal/errors"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrorCodeIndexNotFound       ErrorCode = "INDEX_NOT_FOUND"
	ErrorCodeDocumentNotFound    ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrorCodeJobNotFound         ErrorCode = "JOB_NOT_FOUND"
	ErrorCodeIndexExists         ErrorCode = "INDEX_ALREADY_EXISTS"
	ErrorCodeIndexClosed         ErrorCode = "INDEX_CLOSED"
	ErrorCodeInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidJSON         ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidQuery        ErrorCode = "INVALID_QUERY"
	ErrorCodeMappingConflict     ErrorCode = "MAPPING_CONFLICT"
	ErrorCodePayloadTooLarge     ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrorCodeUnsupportedEncoding ErrorCode = "UNSUPPORTED_CONTENT_ENCODING"
	ErrorCodeRateLimited         ErrorCode = "RATE_LIMITED"

	// Server Error Codes (5xx)
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeIndexingFailed     ErrorCode = "INDEXING_FAILED"
	ErrorCodeSearchFailed       ErrorCode = "SEARCH_FAILED"
	ErrorCodeJobExecutionFailed ErrorCode = "JOB_EXECUTION_FAILED"
)

// ErrorDetail provides additional context for an error
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError represents a standardized API error response
type APIError struct {
	Error     string        `json:"error"`
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	Details   []ErrorDetail `json:"details,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIErrorResponse creates a standardized error response
func APIErrorResponse(code ErrorCode, message string, details ...ErrorDetail) *APIError {
	return &APIError{
		Error:     "Request failed",
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now(),
	}
}

// SendError sends a standardized error response
func SendError(c *gin.Context, statusCode int, code ErrorCode, message string, details ...ErrorDetail) {
	errorResponse := APIErrorResponse(code, message, details...)
	errorResponse.RequestID = c.GetString(requestIDKey)
	c.AbortWithStatusJSON(statusCode, errorResponse)
}

// SendStructuredValidationError sends a validation error with structured details
func SendStructuredValidationError(c *gin.Context, result *ValidationResult) {
	details := make([]ErrorDetail, len(result.Errors))
	for i, err := range result.Errors {
		details[i] = ErrorDetail{
			Field:   err.Field,
			Message: err.Message,
			Code:    "VALIDATION_ERROR",
		}
	}

	SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, "Request validation failed", details...)
}

// SendIndexNotFoundError sends a standardized index not found error
func SendIndexNotFoundError(c *gin.Context, indexName string) {
	SendError(c, http.StatusNotFound, ErrorCodeIndexNotFound,
		"Index '"+indexName+"' not found")
}

// SendDocumentNotFoundError sends a standardized document not found error
func SendDocumentNotFoundError(c *gin.Context, documentID, indexName string) {
	SendError(c, http.StatusNotFound, ErrorCodeDocumentNotFound,
		errors.NewDocumentNotFoundError(documentID, indexName).Error())
}

// SendJobNotFoundError sends a standardized job not found error
func SendJobNotFoundError(c *gin.Context, jobID string) {
	SendError(c, http.StatusNotFound, ErrorCodeJobNotFound,
		"Job '"+jobID+"' not found")
}

// SendInvalidJSONError sends a standardized invalid JSON error
func SendInvalidJSONError(c *gin.Context, err error) {
	SendError(c, http.StatusBadRequest, ErrorCodeInvalidJSON,
		"Invalid JSON in request body: "+err.Error())
}

// SendInternalError sends a standardized internal server error
func SendInternalError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeInternalError,
		"Internal error during "+operation+": "+err.Error())
}

// SendJobExecutionError sends a standardized job execution error
func SendJobExecutionError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeJobExecutionFailed,
		"Failed to start "+operation+" job: "+err.Error())
}

// SendServiceError maps an error returned by the engine to a response.
// fallback is the code used when the error is not one of the typed errors.
func SendServiceError(c *gin.Context, fallback ErrorCode, err error) {
	var (
		notFound    *errors.IndexNotFoundError
		exists      *errors.IndexAlreadyExistsError
		jobNotFound *errors.JobNotFoundError
		validation  *errors.ValidationError
		invalid     *errors.InvalidQueryError
		mapping     *errors.MappingError
		tooLarge    *http.MaxBytesError
	)
	switch {
	case stderrors.As(err, &notFound):
		SendIndexNotFoundError(c, notFound.IndexName)
	case stderrors.As(err, &exists):
		SendError(c, http.StatusConflict, ErrorCodeIndexExists, exists.Error())
	case stderrors.As(err, &jobNotFound):
		SendJobNotFoundError(c, jobNotFound.JobID)
	case stderrors.As(err, &validation):
		SendError(c, http.StatusBadRequest, ErrorCodeValidationFailed, validation.Error(),
			ErrorDetail{Field: validation.Field, Message: validation.Message, Code: "VALIDATION_ERROR"})
	case stderrors.As(err, &invalid):
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidQuery, err.Error(),
			ErrorDetail{Field: invalid.Field, Message: invalid.Reason})
	case stderrors.As(err, &mapping):
		SendError(c, http.StatusBadRequest, ErrorCodeMappingConflict, mapping.Error(),
			ErrorDetail{Field: mapping.Field, Message: mapping.Error()})
	case stderrors.As(err, &tooLarge):
		SendError(c, http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge, err.Error())
	case stderrors.Is(err, errors.ErrIndexClosed):
		SendError(c, http.StatusConflict, ErrorCodeIndexClosed, err.Error())
	default:
		SendError(c, http.StatusInternalServerError, fallback, err.Error())
	}
}
