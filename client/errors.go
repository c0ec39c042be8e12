package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the MEDIATE API that callers commonly branch on.
const (
	CodeUnderModeration = "under_moderation"
	CodeAlreadyResolved = "already_resolved"
	CodeNotModerator    = "not_moderator"
	CodeStoreFailure    = "store_failure"
	CodeMasterPending   = "master_pending"
)

// APIError represents a structured error response from the MEDIATE API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Notice     string `json:"notice,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Notice
	}
	if e.RequestID != "" {
		return fmt.Sprintf("mediate: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, msg, e.RequestID)
	}
	return fmt.Sprintf("mediate: %d %s: %s", e.StatusCode, e.Code, msg)
}

func asAPIError(err error) (*APIError, bool) {
	var e *APIError
	ok := errors.As(err, &e)
	return e, ok
}

func hasStatus(err error, status int) bool {
	e, ok := asAPIError(err)
	return ok && e.StatusCode == status
}

func hasCode(err error, code string) bool {
	e, ok := asAPIError(err)
	return ok && e.Code == code
}

// IsNotFound returns true if the error is a 404 not found.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsConflict returns true if the error is a 409 conflict.
func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

// IsForbidden returns true if the error is a 403.
func IsForbidden(err error) bool { return hasStatus(err, http.StatusForbidden) }

// IsRateLimited returns true if the error is a 429 rate limit.
func IsRateLimited(err error) bool { return hasStatus(err, http.StatusTooManyRequests) }

// IsUnderModeration reports whether a change was refused because the target
// already has a pending moderation record.
func IsUnderModeration(err error) bool { return hasCode(err, CodeUnderModeration) }

// IsAlreadyResolved reports whether a decision targeted a record that is no
// longer pending.
func IsAlreadyResolved(err error) bool { return hasCode(err, CodeAlreadyResolved) }

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	return apiErr
}
