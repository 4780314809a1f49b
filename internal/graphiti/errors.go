package graphiti

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPError represents an HTTP error response
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if len(e.Body) > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, string(e.Body))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

func newHTTPError(resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
	}
}

// Failure kinds reported by Classify. Graphiti forwards embedding and LLM
// failures from its OpenAI backend, so quota and key problems surface here.
const (
	FailureNone            = ""
	FailureQuotaExceeded   = "quota_exceeded"
	FailureInvalidKey      = "invalid_key"
	FailureConnectionError = "connection_error"
	FailureUpstream        = "upstream_error"
)

// Classify maps a client error to a failure kind for status reporting.
func Classify(err error) string {
	if err == nil {
		return FailureNone
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		body := string(httpErr.Body)
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests, strings.Contains(body, "insufficient_quota"):
			return FailureQuotaExceeded
		case httpErr.StatusCode == http.StatusUnauthorized, strings.Contains(body, "invalid_api_key"):
			return FailureInvalidKey
		}
		// Graphiti answered, so the transport is fine
		return FailureUpstream
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "insufficient_quota"):
		return FailureQuotaExceeded
	case strings.Contains(msg, "invalid_api_key"):
		return FailureInvalidKey
	}
	return FailureConnectionError
}

// IsQuotaError reports whether err was caused by exhausted LLM quota or a
// rejected API key.
func IsQuotaError(err error) bool {
	kind := Classify(err)
	return kind == FailureQuotaExceeded || kind == FailureInvalidKey
}
