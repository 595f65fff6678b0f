// OpenRouter API client.
//
// Information Hiding:
// - API endpoint and authentication headers
// - Wire format of streaming and non-streaming completions
// - Rate-limit retry and backoff policy

package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public OpenRouter API endpoint.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

const (
	defaultRetries = 3
	contentType    = "application/json"

	// OpenRouter attribution headers.
	refererHeader = "https://github.com/richinex/orpipe"
	titleHeader   = "orpipe"
)

var doneSentinel = []byte("[DONE]")

// Client talks to the OpenRouter API. Safe for concurrent use; per-request
// state (the reasoning interleaver) lives on the call stack, never on the
// client.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	retries     int
	backoffBase time.Duration
}

// NewClient creates an OpenRouter client. An empty baseURL selects the
// public endpoint.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{},
		retries:     defaultRetries,
		backoffBase: time.Second,
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// Models fetches the upstream model catalog.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: fetch models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, parseAPIError(resp)
	}

	var list modelList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("openrouter: decode model list: %w", err)
	}
	return list.Data, nil
}

// GetCompletion performs a non-streaming chat completion and returns the
// transcript text, with reasoning wrapped in think markers when present.
// An upstream result without choices yields an empty string.
func (c *Client) GetCompletion(ctx context.Context, req ChatRequest) (string, error) {
	req.Stream = false

	resp, err := c.postCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result chatChunk
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("openrouter: decode completion: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message == nil {
		return "", nil
	}

	msg := result.Choices[0].Message
	return wrapReasoning(msg.Reasoning, msg.Content), nil
}

// StreamCompletion performs a streaming chat completion, sending each output
// fragment to chunks in arrival order. Reasoning tokens are bracketed by
// think markers and the pair is always balanced, even when the stream ends
// or fails while reasoning is still open. Malformed frames are skipped.
//
// The caller owns chunks and controls pacing: each send blocks until the
// fragment is consumed or ctx is cancelled, so an unbuffered channel gives
// single-fragment backpressure. Fragments already delivered before a
// mid-stream failure are never replayed; the failure is returned after the
// open reasoning block (if any) has been closed.
func (c *Client) StreamCompletion(ctx context.Context, req ChatRequest, chunks chan<- string) error {
	req.Stream = true

	resp, err := c.postCompletion(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var state interleaver
	scanner := newSSEScanner(resp.Body)
	for {
		data, err := scanner.Next()
		if err != nil {
			// Balance the reasoning block before surfacing anything else.
			if sendErr := sendAll(ctx, chunks, state.consume(Event{Done: true})); sendErr != nil {
				return sendErr
			}
			if errors.Is(err, io.EOF) {
				// Some models close the connection without a [DONE] sentinel.
				return nil
			}
			return fmt.Errorf("openrouter: read stream: %w", err)
		}

		if bytes.Equal(bytes.TrimSpace(data), doneSentinel) {
			return sendAll(ctx, chunks, state.consume(Event{Done: true}))
		}

		ev, ok := decodeEvent(data)
		if !ok {
			continue
		}
		if err := sendAll(ctx, chunks, state.consume(ev)); err != nil {
			return err
		}
	}
}

// postCompletion issues the completion request, retrying rate-limited
// attempts with exponential backoff (1s, 2s, ... between attempts). Any
// other failure, or exhaustion of the attempt budget, surfaces immediately.
// On success the caller owns the response body.
func (c *Client) postCompletion(ctx context.Context, req ChatRequest) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt - 1)):
			}
		}

		resp, err := c.post(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("openrouter: rate limited after %d attempts: %w", c.retries, lastErr)
}

// backoff returns the wait after the given failed attempt (0-based).
func (c *Client) backoff(failed int) time.Duration {
	return c.backoffBase << failed
}

func (c *Client) post(ctx context.Context, payload ChatRequest) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/chat/completions", payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseAPIError(resp)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("openrouter: marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: construct request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("HTTP-Referer", refererHeader)
	req.Header.Set("X-Title", titleHeader)
	return req, nil
}

func sendAll(ctx context.Context, chunks chan<- string, fragments []string) error {
	for _, fragment := range fragments {
		select {
		case chunks <- fragment:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
