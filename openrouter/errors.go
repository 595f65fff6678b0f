package openrouter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrMissingAPIKey is returned before any network attempt when the client
// was constructed without a credential.
var ErrMissingAPIKey = errors.New("openrouter: API key is not set")

// StatusError reports a non-2xx upstream response. Status carries the HTTP
// status code so callers can classify the failure without inspecting a
// response object that may no longer exist.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openrouter: HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("openrouter: HTTP %d", e.Status)
}

// RateLimited reports whether the upstream signalled too many requests.
func (e *StatusError) RateLimited() bool {
	return e.Status == http.StatusTooManyRequests
}

// isRetryable classifies a transport failure for the retry loop. Only a
// rate-limit signal qualifies; every other failure surfaces immediately.
func isRetryable(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.RateLimited()
}

// parseAPIError folds an OpenAI-style error envelope into a StatusError,
// degrading to a trimmed body excerpt when the envelope is absent.
func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return &StatusError{Status: resp.StatusCode}
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return &StatusError{Status: resp.StatusCode, Message: envelope.Error.Message}
	}

	excerpt := strings.TrimSpace(string(body))
	if len(excerpt) > 500 {
		excerpt = excerpt[:500]
	}
	return &StatusError{Status: resp.StatusCode, Message: excerpt}
}
