package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Envelope is the common part of every API response.
type Envelope struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIError is a rejected request: a non-2xx status or an envelope with success=false.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
	RequestID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s (status %d, endpoint: %s, request: %s)", e.Message, e.StatusCode, e.Endpoint, e.RequestID)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

func newAPIError(status int, r request, requestID string, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Message:    errorMessage(status, body),
		Endpoint:   r.method + " " + r.path,
		RequestID:  requestID,
	}
}

// errorMessage prefers the envelope's error or message field over the raw body.
func errorMessage(status int, body []byte) string {
	var env Envelope
	if json.Unmarshal(body, &env) == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}

// checkEnvelope fails a 2xx body whose envelope says success=false.
// Bodies without a success field are accepted.
func checkEnvelope(body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	if env.Success != nil && !*env.Success {
		return errors.New(errorMessage(http.StatusOK, body))
	}
	return nil
}

// BatchResult is the typed outcome of a batch update or delete.
type BatchResult struct {
	UpdatedIDs []int  `json:"updatedIds,omitempty"`
	FailedIDs  []int  `json:"failedIds,omitempty"`
	Message    string `json:"message,omitempty"`
}

// BatchError reports a batch the server applied only in part. The whole batch
// is treated as failed.
type BatchError struct {
	Endpoint  string
	FailedIDs []int
	Message   string
}

func (e *BatchError) Error() string {
	msg := fmt.Sprintf("batch %s failed for ids %v", e.Endpoint, e.FailedIDs)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (b BatchResult) err(endpoint string) error {
	if len(b.FailedIDs) == 0 {
		return nil
	}
	return &BatchError{Endpoint: endpoint, FailedIDs: b.FailedIDs, Message: b.Message}
}
