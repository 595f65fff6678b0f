package openrouter

import "testing"

func TestDecodeEventDeltaStyle(t *testing.T) {
	ev, ok := decodeEvent([]byte(`{"choices":[{"delta":{"reasoning":"hmm","content":"hi"}}]}`))
	if !ok {
		t.Fatal("expected frame to decode")
	}
	if ev.Reasoning != "hmm" || ev.Content != "hi" {
		t.Errorf("got %+v", ev)
	}
}

func TestDecodeEventMessageStyle(t *testing.T) {
	ev, ok := decodeEvent([]byte(`{"choices":[{"message":{"reasoning":"hmm","content":"hi"}}]}`))
	if !ok {
		t.Fatal("expected frame to decode")
	}
	if ev.Reasoning != "hmm" || ev.Content != "hi" {
		t.Errorf("got %+v", ev)
	}
}

func TestDecodeEventMessageFillsMissingDeltaFields(t *testing.T) {
	ev, ok := decodeEvent([]byte(`{"choices":[{"delta":{"content":"hi"},"message":{"reasoning":"hmm"}}]}`))
	if !ok {
		t.Fatal("expected frame to decode")
	}
	if ev.Reasoning != "hmm" || ev.Content != "hi" {
		t.Errorf("got %+v", ev)
	}
}

func TestDecodeEventRejectsUnusableFrames(t *testing.T) {
	frames := []string{
		`not json`,
		`{"choices":[]}`,
		`{"choices":[{}]}`,
		`{}`,
	}
	for _, frame := range frames {
		if _, ok := decodeEvent([]byte(frame)); ok {
			t.Errorf("frame %q should be skipped", frame)
		}
	}
}

func TestDecodeEventNullContent(t *testing.T) {
	ev, ok := decodeEvent([]byte(`{"choices":[{"delta":{"content":null,"reasoning":"r"}}]}`))
	if !ok {
		t.Fatal("expected frame to decode")
	}
	if ev.Content != "" || ev.Reasoning != "r" {
		t.Errorf("got %+v", ev)
	}
}

func TestModelDisplayName(t *testing.T) {
	if got := (Model{ID: "x/y", Name: "X Y"}).DisplayName(); got != "X Y" {
		t.Errorf("got %q", got)
	}
	if got := (Model{ID: "x/y"}).DisplayName(); got != "x/y" {
		t.Errorf("got %q", got)
	}
	if got := (Model{}).DisplayName(); got != "Unknown Model" {
		t.Errorf("got %q", got)
	}
}
