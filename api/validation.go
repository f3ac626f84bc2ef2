// Package-level validation utilities for API request handling.
package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of validation operations
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// AddError adds a validation error to the result
func (vr *ValidationResult) AddError(field, message string) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// HasErrors returns true if there are validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// ValidateEntityRequest validates an entity create/replace payload. The
// display name is required at the API boundary even though the catalog store
// tolerates drafts without one; HTTP clients get immediate feedback instead
// of a silently skipped index entry.
func ValidateEntityRequest(req *EntityRequest) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if req == nil {
		result.AddError("entity", "Entity payload is required")
		return result
	}

	if req.ID == "" {
		result.AddError("id", "Entity ID is required")
	} else if strings.TrimSpace(req.ID) != req.ID {
		result.AddError("id", "Entity ID cannot have leading or trailing whitespace")
	}

	if strings.TrimSpace(req.DisplayName) == "" {
		result.AddError("display_name", "Display name is required and cannot be whitespace-only")
	}

	for i, tag := range req.Tags {
		if strings.TrimSpace(tag) == "" {
			result.AddError("tags", "Tag at index "+strconv.Itoa(i)+" is empty or whitespace-only")
		}
	}

	return result
}

// ValidateDocumentID validates a document ID
func ValidateDocumentID(documentID string) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if documentID == "" {
		result.AddError("document_id", "Document ID is required")
		return result
	}

	if strings.TrimSpace(documentID) != documentID {
		result.AddError("document_id", "Document ID cannot have leading or trailing whitespace")
		return result
	}

	return result
}

// SendValidationError sends a standardized validation error response
func SendValidationError(c *gin.Context, result *ValidationResult) {
	SendStructuredValidationError(c, result)
}
