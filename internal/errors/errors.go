package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrDocumentNotAttached is returned when an operation references a document the engine is not attached to
	ErrDocumentNotAttached = errors.New("document not attached")

	// ErrDocumentAlreadyAttached is returned when attaching a document twice
	ErrDocumentAlreadyAttached = errors.New("document already attached")

	// ErrEntityNotFound is returned when a catalog entity is not found
	ErrEntityNotFound = errors.New("entity not found")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrStaleScan is returned when a completed scan's revision has been superseded by a newer edit
	ErrStaleScan = errors.New("stale scan result")

	// ErrStaleApply is returned when an apply batch was aborted because document offsets raced the scan
	ErrStaleApply = errors.New("stale apply aborted")
)

// DocumentNotAttachedError represents a document not attached error with context
type DocumentNotAttachedError struct {
	DocumentID string
}

func (e *DocumentNotAttachedError) Error() string {
	return fmt.Sprintf("document '%s' is not attached to the engine", e.DocumentID)
}

func (e *DocumentNotAttachedError) Is(target error) bool {
	return target == ErrDocumentNotAttached
}

// NewDocumentNotAttachedError creates a new DocumentNotAttachedError
func NewDocumentNotAttachedError(documentID string) *DocumentNotAttachedError {
	return &DocumentNotAttachedError{DocumentID: documentID}
}

// DocumentAlreadyAttachedError represents a double-attach error with context
type DocumentAlreadyAttachedError struct {
	DocumentID string
}

func (e *DocumentAlreadyAttachedError) Error() string {
	return fmt.Sprintf("document '%s' is already attached to the engine", e.DocumentID)
}

func (e *DocumentAlreadyAttachedError) Is(target error) bool {
	return target == ErrDocumentAlreadyAttached
}

// NewDocumentAlreadyAttachedError creates a new DocumentAlreadyAttachedError
func NewDocumentAlreadyAttachedError(documentID string) *DocumentAlreadyAttachedError {
	return &DocumentAlreadyAttachedError{DocumentID: documentID}
}

// EntityNotFoundError represents an entity not found error with context
type EntityNotFoundError struct {
	EntityID string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity with ID '%s' not found in catalog", e.EntityID)
}

func (e *EntityNotFoundError) Is(target error) bool {
	return target == ErrEntityNotFound
}

// NewEntityNotFoundError creates a new EntityNotFoundError
func NewEntityNotFoundError(entityID string) *EntityNotFoundError {
	return &EntityNotFoundError{EntityID: entityID}
}

// JobNotFoundError represents a job not found error with context
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job with ID '%s' not found", e.JobID)
}

func (e *JobNotFoundError) Is(target error) bool {
	return target == ErrJobNotFound
}

// NewJobNotFoundError creates a new JobNotFoundError
func NewJobNotFoundError(jobID string) *JobNotFoundError {
	return &JobNotFoundError{JobID: jobID}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StaleScanError represents a scan result whose revision was superseded
type StaleScanError struct {
	DocumentID      string
	ScanRevision    uint64
	CurrentRevision uint64
}

func (e *StaleScanError) Error() string {
	return fmt.Sprintf("scan for document '%s' is stale: scanned at revision %d, current revision %d",
		e.DocumentID, e.ScanRevision, e.CurrentRevision)
}

func (e *StaleScanError) Is(target error) bool {
	return target == ErrStaleScan
}

// NewStaleScanError creates a new StaleScanError
func NewStaleScanError(documentID string, scanRevision, currentRevision uint64) *StaleScanError {
	return &StaleScanError{DocumentID: documentID, ScanRevision: scanRevision, CurrentRevision: currentRevision}
}

// StaleApplyError represents an apply batch aborted mid-flight because the
// document's offsets no longer matched the scanned snapshot
type StaleApplyError struct {
	DocumentID string
	Cause      error
}

func (e *StaleApplyError) Error() string {
	return fmt.Sprintf("apply batch for document '%s' aborted: %v", e.DocumentID, e.Cause)
}

func (e *StaleApplyError) Is(target error) bool {
	return target == ErrStaleApply
}

func (e *StaleApplyError) Unwrap() error {
	return e.Cause
}

// NewStaleApplyError creates a new StaleApplyError
func NewStaleApplyError(documentID string, cause error) *StaleApplyError {
	return &StaleApplyError{DocumentID: documentID, Cause: cause}
}
