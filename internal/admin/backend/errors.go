package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("backend: %s %s returned %d: %s", e.Method, e.Endpoint, e.StatusCode, msg)
}

// NotFound reports whether the backend did not know the resource.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Retryable reports whether repeating the request may succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func errorFromResponse(method, endpoint string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	statusErr := &StatusError{Method: method, Endpoint: endpoint, StatusCode: resp.StatusCode}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err == nil {
			statusErr.Message = strings.TrimSpace(payload.Message)
			if statusErr.Message == "" {
				statusErr.Message = strings.TrimSpace(payload.Error)
			}
		}
		if statusErr.Message == "" {
			statusErr.Message = strings.TrimSpace(string(body))
		}
	}
	return statusErr
}

// mapNotFound wraps err with sentinel when the backend answered 404.
func mapNotFound(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.NotFound() {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}
