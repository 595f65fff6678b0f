package storage

import (
	"context"
	"testing"

	"github.com/richinex/orpipe/openrouter"
)

func TestInMemoryStorageRoundTrip(t *testing.T) {
	s := NewInMemoryStorage()
	ctx := context.Background()

	history := []openrouter.ChatMessage{
		{Role: "user", Content: "q"},
		{Role: "assistant", Content: "a"},
	}
	if err := s.Save(ctx, "s", history); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded[1].Content != "a" {
		t.Errorf("unexpected history %+v", loaded)
	}

	// Mutating the returned slice must not affect stored state.
	loaded[0].Content = "mutated"
	again, _ := s.Load(ctx, "s")
	if again[0].Content != "q" {
		t.Error("Load returned aliased storage")
	}
}

func TestInMemoryStorageMissingSession(t *testing.T) {
	s := NewInMemoryStorage()

	loaded, err := s.Load(context.Background(), "none")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil || len(loaded) != 0 {
		t.Errorf("expected empty slice, got %v", loaded)
	}

	exists, err := s.Exists(context.Background(), "none")
	if err != nil || exists {
		t.Errorf("expected missing session, got %v %v", exists, err)
	}
}
