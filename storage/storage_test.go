package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/richinex/ixion/llm"
)

// stores returns each backend under test, with cleanup registered.
func stores(t *testing.T) map[string]CheckpointStore {
	t.Helper()
	sqlite, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]CheckpointStore{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func sampleTranscript() []llm.ChatMessage {
	return []llm.ChatMessage{
		llm.SystemMessage("You are helpful."),
		llm.UserMessage("What is 2 + 2?"),
		{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{ID: "c1", Name: "calculator", Arguments: json.RawMessage(`{"expression":"2 + 2"}`)},
			},
		},
		llm.ToolResultMessage("c1", "4"),
		llm.AssistantMessage("2 + 2 is 4."),
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			original := sampleTranscript()
			if err := store.Save(ctx, "t1", original); err != nil {
				t.Fatalf("save failed: %v", err)
			}

			loaded, err := store.Load(ctx, "t1")
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if len(loaded) != len(original) {
				t.Fatalf("expected %d messages, got %d", len(original), len(loaded))
			}
			for i := range original {
				if loaded[i].Role != original[i].Role || loaded[i].Content != original[i].Content {
					t.Errorf("message %d mismatch: %+v vs %+v", i, loaded[i], original[i])
				}
			}
			if len(loaded[2].ToolCalls) != 1 || loaded[2].ToolCalls[0].Name != "calculator" {
				t.Errorf("tool calls not preserved: %+v", loaded[2].ToolCalls)
			}
			if loaded[3].ToolCallID != "c1" {
				t.Errorf("tool call id not preserved: %q", loaded[3].ToolCallID)
			}
		})
	}
}

func TestSaveReplacesTranscript(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, "t1", sampleTranscript()); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			short := []llm.ChatMessage{llm.UserMessage("fresh start")}
			if err := store.Save(ctx, "t1", short); err != nil {
				t.Fatalf("second save failed: %v", err)
			}
			loaded, err := store.Load(ctx, "t1")
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			if len(loaded) != 1 || loaded[0].Content != "fresh start" {
				t.Errorf("save should replace, got %+v", loaded)
			}
		})
	}
}

func TestLoadMissingThread(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			loaded, err := store.Load(ctx, "nope")
			if err != nil {
				t.Fatalf("load of missing thread should not error: %v", err)
			}
			if len(loaded) != 0 {
				t.Errorf("expected empty transcript, got %d messages", len(loaded))
			}
		})
	}
}

func TestExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := store.Exists(ctx, "t1")
			if err != nil || ok {
				t.Fatalf("fresh store should not have t1: ok=%v err=%v", ok, err)
			}

			if err := store.Save(ctx, "t1", sampleTranscript()); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			ok, err = store.Exists(ctx, "t1")
			if err != nil || !ok {
				t.Fatalf("t1 should exist after save: ok=%v err=%v", ok, err)
			}

			if err := store.Delete(ctx, "t1"); err != nil {
				t.Fatalf("delete failed: %v", err)
			}
			ok, err = store.Exists(ctx, "t1")
			if err != nil || ok {
				t.Errorf("t1 should be gone after delete: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestListThreads(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"a", "b", "c"} {
				if err := store.Save(ctx, id, sampleTranscript()); err != nil {
					t.Fatalf("save %s failed: %v", id, err)
				}
			}
			ids, err := store.ListThreads(ctx)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(ids) != 3 {
				t.Errorf("expected 3 threads, got %v", ids)
			}
		})
	}
}

func TestMemoryStoreIsolatesCaller(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	original := sampleTranscript()
	if err := store.Save(ctx, "t1", original); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Mutating the saved slice must not reach the checkpoint.
	original[0].Content = "tampered"
	loaded, _ := store.Load(ctx, "t1")
	if loaded[0].Content != "You are helpful." {
		t.Errorf("checkpoint shares memory with caller: %q", loaded[0].Content)
	}

	// Neither must mutating a loaded copy.
	loaded[1].Content = "tampered too"
	again, _ := store.Load(ctx, "t1")
	if again[1].Content != "What is 2 + 2?" {
		t.Errorf("loads share memory: %q", again[1].Content)
	}
}
