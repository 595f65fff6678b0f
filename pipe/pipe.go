// Package pipe adapts the OpenRouter client to a host chat surface.
//
// Information Hiding:
// - Model catalog caching and filtering policy
// - Routing-prefix handling on model identifiers
// - Conversion of transport failures into transcript text
//
// The pipe is the component boundary towards the host: whatever happens
// underneath, the host receives either valid transcript text or a
// descriptive "Error: ..." string, never a raw transport fault.

package pipe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/richinex/orpipe/config"
	"github.com/richinex/orpipe/openrouter"
)

// catalogTTL is how long a fetched model catalog stays fresh.
const catalogTTL = 5 * time.Minute

// Request is the inbound chat request as the host supplies it. The model
// identifier may still carry a routing-namespace prefix. Sampling parameters
// are pointers so that absent values are not forwarded upstream.
type Request struct {
	Model            string                   `json:"model"`
	Messages         []openrouter.ChatMessage `json:"messages"`
	Stream           bool                     `json:"stream"`
	Temperature      *float64                 `json:"temperature,omitempty"`
	TopP             *float64                 `json:"top_p,omitempty"`
	MaxTokens        *int                     `json:"max_tokens,omitempty"`
	PresencePenalty  *float64                 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64                 `json:"frequency_penalty,omitempty"`
}

// Completer is the upstream surface the pipe drives. *openrouter.Client
// satisfies it; tests substitute fakes.
type Completer interface {
	Models(ctx context.Context) ([]openrouter.Model, error)
	GetCompletion(ctx context.Context, req openrouter.ChatRequest) (string, error)
	StreamCompletion(ctx context.Context, req openrouter.ChatRequest, chunks chan<- string) error
}

// Pipe exposes OpenRouter models to a host application.
type Pipe struct {
	settings config.Settings
	client   Completer

	mu        sync.Mutex
	catalog   []openrouter.Model
	fetchedAt time.Time

	now func() time.Time
}

// New creates a pipe from settings.
func New(settings config.Settings) *Pipe {
	return &Pipe{
		settings: settings,
		client:   openrouter.NewClient(settings.BaseURL, settings.APIKey),
		now:      time.Now,
	}
}

// Models returns the available models, formatted for display. Results are
// cached for a fixed TTL; FREE_ONLY filtering and the display prefix are
// applied at fetch time. A fetch failure yields a single sentinel entry
// describing the error, and is not cached.
func (p *Pipe) Models(ctx context.Context) []openrouter.Model {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.catalog != nil && p.now().Sub(p.fetchedAt) < catalogTTL {
		return append([]openrouter.Model(nil), p.catalog...)
	}

	fetched, err := p.client.Models(ctx)
	if err != nil {
		return []openrouter.Model{{ID: "error", Name: "Error: " + err.Error()}}
	}

	formatted := make([]openrouter.Model, 0, len(fetched))
	for _, m := range fetched {
		if p.settings.FreeOnly && !strings.Contains(strings.ToLower(m.ID), "free") {
			continue
		}
		name := m.DisplayName()
		if p.settings.ModelPrefix != "" {
			name = p.settings.ModelPrefix + name
		}
		formatted = append(formatted, openrouter.Model{ID: m.ID, Name: name})
	}

	p.catalog = formatted
	p.fetchedAt = p.now()
	return append([]openrouter.Model(nil), formatted...)
}

// Completion runs a non-streaming request and returns transcript text.
// Failures are rendered as a descriptive error string.
func (p *Pipe) Completion(ctx context.Context, req Request) string {
	payload, err := p.buildPayload(req, false)
	if err != nil {
		return errorText(err)
	}

	out, err := p.client.GetCompletion(ctx, payload)
	if err != nil {
		return errorText(err)
	}
	return out
}

// Stream runs a streaming request in the background and returns the fragment
// channel. The channel is unbuffered, so the consumer paces the upstream read
// one fragment at a time. Failures surface as a trailing "Error: ..."
// fragment — fragments already delivered stay delivered. The channel is
// always closed.
func (p *Pipe) Stream(ctx context.Context, req Request) <-chan string {
	chunks := make(chan string)
	go func() {
		defer close(chunks)

		payload, err := p.buildPayload(req, true)
		if err != nil {
			sendText(ctx, chunks, errorText(err))
			return
		}

		err = p.client.StreamCompletion(ctx, payload, chunks)
		if err != nil && !errors.Is(err, context.Canceled) {
			sendText(ctx, chunks, errorText(err))
		}
	}()
	return chunks
}

// buildPayload validates the host request and normalizes it into the
// outbound form, forwarding only recognized sampling parameters.
func (p *Pipe) buildPayload(req Request, stream bool) (openrouter.ChatRequest, error) {
	if req.Model == "" {
		return openrouter.ChatRequest{}, missingKey("model")
	}
	if len(req.Messages) == 0 {
		return openrouter.ChatRequest{}, missingKey("messages")
	}

	return openrouter.ChatRequest{
		Model:            stripModelPrefix(req.Model),
		Messages:         req.Messages,
		Stream:           stream,
		IncludeReasoning: p.settings.IncludeReasoning,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		MaxTokens:        req.MaxTokens,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
	}, nil
}

// stripModelPrefix removes a routing-namespace prefix from a model id:
// "openrouter.deepseek/deepseek-r1" becomes "deepseek/deepseek-r1".
func stripModelPrefix(id string) string {
	if _, rest, ok := strings.Cut(id, "."); ok {
		return rest
	}
	return id
}

// inputError reports a malformed host request. It is never retried and
// never reaches the network.
type inputError struct {
	msg string
}

func (e *inputError) Error() string {
	return e.msg
}

func missingKey(key string) error {
	return &inputError{msg: fmt.Sprintf("Missing required key in request: %s", key)}
}

// errorText renders any failure as host-facing transcript text.
func errorText(err error) string {
	var ie *inputError
	if errors.As(err, &ie) {
		return "Error: " + ie.msg
	}
	return "Error: Request failed: " + err.Error()
}

func sendText(ctx context.Context, chunks chan<- string, text string) {
	select {
	case chunks <- text:
	case <-ctx.Done():
	}
}
