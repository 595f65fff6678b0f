package storage

import (
	"context"
	"testing"

	"github.com/richinex/orpipe/openrouter"
)

func TestSqliteStorageSaveAndLoad(t *testing.T) {
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	ctx := context.Background()

	messages := []openrouter.ChatMessage{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "<think>\ngreeting detected\n</think>\n\nHi there"},
	}

	if err := storage.Save(ctx, "test-session", messages); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := storage.Load(ctx, "test-session")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(loaded))
	}
	if loaded[0].Content != "Hello" {
		t.Errorf("expected 'Hello', got %q", loaded[0].Content)
	}
	// Reasoning markers are part of the transcript and must round-trip verbatim.
	if loaded[1].Content != messages[1].Content {
		t.Errorf("marker bytes corrupted: %q", loaded[1].Content)
	}
}

func TestSqliteStorageLoadNonexistentSession(t *testing.T) {
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	loaded, err := storage.Load(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty slice, got %d messages", len(loaded))
	}
}

func TestSqliteStorageSaveReplacesHistory(t *testing.T) {
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	ctx := context.Background()

	first := []openrouter.ChatMessage{{Role: "user", Content: "one"}}
	grown := []openrouter.ChatMessage{
		{Role: "user", Content: "one"},
		{Role: "assistant", Content: "two"},
	}

	if err := storage.Save(ctx, "s", first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := storage.Save(ctx, "s", grown); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := storage.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded[1].Content != "two" {
		t.Errorf("unexpected history %+v", loaded)
	}
}

func TestSqliteStorageDeleteAndExists(t *testing.T) {
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	ctx := context.Background()

	if err := storage.Save(ctx, "s", []openrouter.ChatMessage{{Role: "user", Content: "x"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	exists, err := storage.Exists(ctx, "s")
	if err != nil || !exists {
		t.Fatalf("expected session to exist, got %v %v", exists, err)
	}

	if err := storage.Delete(ctx, "s"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err = storage.Exists(ctx, "s")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("session should be gone after delete")
	}

	loaded, err := storage.Load(ctx, "s")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("deleted session still has %d messages", len(loaded))
	}
}

func TestSqliteStorageListSessions(t *testing.T) {
	storage, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer storage.Close()

	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := storage.Save(ctx, id, []openrouter.ChatMessage{{Role: "user", Content: id}}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	sessions, err := storage.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("expected 2 sessions, got %v", sessions)
	}
}
