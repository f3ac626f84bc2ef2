package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorCode represents standardized error codes for the API
type ErrorCode string

const (
	// Client Error Codes (4xx)
	ErrorCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrorCodeEntityNotFound          ErrorCode = "ENTITY_NOT_FOUND"
	ErrorCodeEntityExists            ErrorCode = "ENTITY_ALREADY_EXISTS"
	ErrorCodeDocumentNotAttached     ErrorCode = "DOCUMENT_NOT_ATTACHED"
	ErrorCodeDocumentAlreadyAttached ErrorCode = "DOCUMENT_ALREADY_ATTACHED"
	ErrorCodeJobNotFound             ErrorCode = "JOB_NOT_FOUND"
	ErrorCodeInvalidRequest          ErrorCode = "INVALID_REQUEST"
	ErrorCodeInvalidJSON             ErrorCode = "INVALID_JSON"

	// Server Error Codes (5xx)
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeScanFailed         ErrorCode = "SCAN_FAILED"
	ErrorCodePersistenceFailed  ErrorCode = "PERSISTENCE_FAILED"
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

	// Add request ID if available
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			errorResponse.RequestID = id
		}
	}

	c.JSON(statusCode, errorResponse)
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

// SendEntityNotFoundError sends a standardized entity not found error
func SendEntityNotFoundError(c *gin.Context, entityID string) {
	SendError(c, http.StatusNotFound, ErrorCodeEntityNotFound,
		"Entity '"+entityID+"' not found in catalog")
}

// SendEntityExistsError sends a standardized entity already exists error
func SendEntityExistsError(c *gin.Context, entityID string) {
	SendError(c, http.StatusConflict, ErrorCodeEntityExists,
		"Entity '"+entityID+"' already exists; use PUT to replace it")
}

// SendDocumentNotAttachedError sends a standardized document not attached error
func SendDocumentNotAttachedError(c *gin.Context, documentID string) {
	SendError(c, http.StatusNotFound, ErrorCodeDocumentNotAttached,
		"Document '"+documentID+"' is not attached")
}

// SendDocumentAlreadyAttachedError sends a standardized document already attached error
func SendDocumentAlreadyAttachedError(c *gin.Context, documentID string) {
	SendError(c, http.StatusConflict, ErrorCodeDocumentAlreadyAttached,
		"Document '"+documentID+"' is already attached")
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

// SendPersistenceError sends a standardized persistence error
func SendPersistenceError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodePersistenceFailed,
		"Persistence failed ("+operation+"): "+err.Error())
}

// SendJobExecutionError sends a standardized job execution error
func SendJobExecutionError(c *gin.Context, operation string, err error) {
	SendError(c, http.StatusInternalServerError, ErrorCodeJobExecutionFailed,
		"Failed to start "+operation+" job: "+err.Error())
}
