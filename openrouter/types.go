// Package openrouter provides shared data models for the OpenRouter client.
package openrouter

import "encoding/json"

// ChatMessage represents a chat message with role and content.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// ChatRequest is the normalized outbound completion payload. The model
// identifier is provider-native (any routing prefix already stripped).
// Sampling parameters are pointers so that unset values are omitted from
// the wire payload instead of being sent as zeros.
type ChatRequest struct {
	Model            string        `json:"model"`
	Messages         []ChatMessage `json:"messages"`
	Stream           bool          `json:"stream"`
	IncludeReasoning bool          `json:"include_reasoning,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
}

// Model is one entry of the upstream model catalog.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DisplayName returns the human-readable name, falling back to the id.
func (m Model) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	if m.ID != "" {
		return m.ID
	}
	return "Unknown Model"
}

type modelList struct {
	Data []Model `json:"data"`
}

// Event is one decoded unit of upstream progress: an optional reasoning
// fragment, an optional content fragment, or the stream-end sentinel.
type Event struct {
	Reasoning string
	Content   string
	Done      bool
}

// Wire shapes. Streaming chunks carry an incremental delta, non-streaming
// results a full message; both expose the same content/reasoning fields.
type chatChunk struct {
	Choices []wireChoice `json:"choices"`
}

type wireChoice struct {
	Delta   *wireMessage `json:"delta"`
	Message *wireMessage `json:"message"`
}

type wireMessage struct {
	Content   string `json:"content"`
	Reasoning string `json:"reasoning"`
}

// decodeEvent normalizes one wire frame into a canonical Event, regardless of
// whether the provider used delta-style or full-message-style fields. Frames
// that fail to parse or carry no usable choice report ok == false; the caller
// skips them without aborting the stream.
func decodeEvent(data []byte) (ev Event, ok bool) {
	var chunk chatChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return Event{}, false
	}
	if len(chunk.Choices) == 0 {
		return Event{}, false
	}

	choice := chunk.Choices[0]
	if choice.Delta == nil && choice.Message == nil {
		return Event{}, false
	}
	if choice.Delta != nil {
		ev.Reasoning = choice.Delta.Reasoning
		ev.Content = choice.Delta.Content
	}
	if choice.Message != nil {
		if ev.Reasoning == "" {
			ev.Reasoning = choice.Message.Reasoning
		}
		if ev.Content == "" {
			ev.Content = choice.Message.Content
		}
	}
	return ev, true
}
