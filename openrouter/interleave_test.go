package openrouter

import (
	"strings"
	"testing"
)

func collect(events []Event) string {
	var st interleaver
	var sb strings.Builder
	for _, ev := range events {
		for _, frag := range st.consume(ev) {
			sb.WriteString(frag)
		}
	}
	return sb.String()
}

func TestInterleaverReasoningBeforeContent(t *testing.T) {
	got := collect([]Event{
		{Reasoning: "Let me think"},
		{Reasoning: " more"},
		{Content: "Answer: 4"},
		{Done: true},
	})

	want := "<think>\nLet me think more\n</think>\n\nAnswer: 4"
	if got != want {
		t.Errorf("transcript mismatch:\ngot  %q\nwant %q", got, want)
	}
}

func TestInterleaverContentOnlyHasNoMarkers(t *testing.T) {
	got := collect([]Event{
		{Content: "Hello"},
		{Content: " world"},
		{Done: true},
	})

	if got != "Hello world" {
		t.Errorf("got %q, want %q", got, "Hello world")
	}
	if strings.Contains(got, "<think>") || strings.Contains(got, "</think>") {
		t.Errorf("content-only transcript must not contain markers: %q", got)
	}
}

func TestInterleaverTerminalClosesOpenBlock(t *testing.T) {
	got := collect([]Event{
		{Reasoning: "thinking"},
		{Reasoning: " still thinking"},
		{Done: true},
	})

	want := "<think>\nthinking still thinking\n</think>\n\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if strings.Count(got, "<think>\n") != 1 || strings.Count(got, "\n</think>\n\n") != 1 {
		t.Errorf("expected exactly one open/close pair, got %q", got)
	}
}

func TestInterleaverAlternatingRunsBracketEachRun(t *testing.T) {
	got := collect([]Event{
		{Reasoning: "first"},
		{Content: "one"},
		{Reasoning: "second"},
		{Content: "two"},
		{Done: true},
	})

	want := "<think>\nfirst\n</think>\n\none<think>\nsecond\n</think>\n\ntwo"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if n := strings.Count(got, "<think>\n"); n != 2 {
		t.Errorf("expected 2 opening markers, got %d", n)
	}
}

func TestInterleaverDoesNotRepeatClosingMarker(t *testing.T) {
	got := collect([]Event{
		{Reasoning: "r"},
		{Content: "a"},
		{Content: "b"},
		{Done: true},
	})

	want := "<think>\nr\n</think>\n\nab"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInterleaverHandlesBothFieldsInOneEvent(t *testing.T) {
	got := collect([]Event{
		{Reasoning: "why", Content: "because"},
		{Done: true},
	})

	want := "<think>\nwhy\n</think>\n\nbecause"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInterleaverTerminalOutsideReasoningEmitsNothing(t *testing.T) {
	var st interleaver
	st.consume(Event{Content: "done already"})
	if frags := st.consume(Event{Done: true}); len(frags) != 0 {
		t.Errorf("terminal event outside reasoning emitted %q", frags)
	}
}

func TestWrapReasoning(t *testing.T) {
	tests := []struct {
		name      string
		reasoning string
		content   string
		want      string
	}{
		{"both", "steps", "answer", "<think>\nsteps\n</think>\n\nanswer"},
		{"reasoning only", "steps", "", "<think>\nsteps\n</think>\n\n"},
		{"content only", "", "Hi", "Hi"},
		{"neither", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapReasoning(tt.reasoning, tt.content); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapReasoningIsStateless(t *testing.T) {
	first := wrapReasoning("r", "c")
	second := wrapReasoning("r", "c")
	if first != second {
		t.Errorf("repeated calls diverged: %q vs %q", first, second)
	}
}
