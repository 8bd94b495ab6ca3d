// Package errors provides standardized error handling for the RFP workflow,
// including the BPMN error mapping used when stages run as Zeebe workers.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSelectionInvalid ErrorCode = "SELECTION_INVALID"
	ErrCodeNoSelection      ErrorCode = "NO_SELECTION"

	ErrCodeGenerationFailed  ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"

	ErrCodeDataUnavailable   ErrorCode = "DATA_UNAVAILABLE"
	ErrCodeCatalogLoadFailed ErrorCode = "CATALOG_LOAD_FAILED"

	ErrCodeSessionStoreFailed    ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeOpportunityScanFailed ErrorCode = "OPPORTUNITY_SCAN_FAILED"

	ErrCodeCompilationFailed ErrorCode = "COMPILATION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewSelectionInvalidError creates a non-retryable selection error. The
// router recovers from it locally by asking the user to clarify.
func NewSelectionInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSelectionInvalid,
		Message:   "Could not resolve the selected opportunity",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoSelectionError creates a non-retryable precondition error for stages
// that require a selected opportunity.
func NewNoSelectionError(stage string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoSelection,
		Message:   "No opportunity selected",
		Details:   fmt.Sprintf("stage: %s", stage),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationFailedError creates a retryable language-model call error.
func NewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "Language-model generation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationTimeoutError creates a retryable language-model timeout error.
func NewGenerationTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationTimeout,
		Message:   "Language-model call timed out",
		Details:   "call exceeded the configured timeout",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDataUnavailableError creates a non-retryable degraded-data error.
// Matchers and pricing return well-typed empty results instead of raising it;
// it only surfaces in the workflow summary.
func NewDataUnavailableError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataUnavailable,
		Message:   "Catalog or pricing data unavailable",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogLoadFailedError creates a retryable snapshot load error.
func NewCatalogLoadFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogLoadFailed,
		Message:   "Catalog snapshot load failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreFailedError creates a retryable session persistence error.
func NewSessionStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Session store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewOpportunityScanFailedError creates a retryable opportunity source error.
func NewOpportunityScanFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeOpportunityScanFailed,
		Message:   "Opportunity scan failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompilationFailedError creates a non-retryable (within this turn)
// compilation error; the next user turn re-attempts from the same state.
func NewCompilationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompilationFailed,
		Message:   "Final response compilation failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
// The codes are identical on both sides.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeSelectionInvalid:      "SELECTION_INVALID",
	ErrCodeNoSelection:           "NO_SELECTION",
	ErrCodeGenerationFailed:      "GENERATION_FAILED",
	ErrCodeGenerationTimeout:     "GENERATION_TIMEOUT",
	ErrCodeDataUnavailable:       "DATA_UNAVAILABLE",
	ErrCodeCatalogLoadFailed:     "CATALOG_LOAD_FAILED",
	ErrCodeSessionStoreFailed:    "SESSION_STORE_FAILED",
	ErrCodeOpportunityScanFailed: "OPPORTUNITY_SCAN_FAILED",
	ErrCodeCompilationFailed:     "COMPILATION_FAILED",
}

// GetRetryCount returns the recommended retry count for BPMN boundary events.
// The core never retries on its own; retries are an engine/caller decision.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCatalogLoadFailed,
		ErrCodeSessionStoreFailed,
		ErrCodeOpportunityScanFailed:
		return 3 // Retryable technical errors

	case ErrCodeGenerationFailed:
		return 2

	case ErrCodeGenerationTimeout:
		return 1

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SELECTION"):
		return "ROUTING"
	case strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "COMPILATION"):
		return "AI"
	case strings.Contains(codeStr, "CATALOG") || strings.Contains(codeStr, "DATA"):
		return "DATA"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "OPPORTUNITY"):
		return "STORAGE"
	default:
		return "OTHER"
	}
}
