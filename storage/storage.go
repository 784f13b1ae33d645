// Conversation checkpoint persistence.
//
// Information Hiding:
// - Backend choice (memory vs sqlite) hidden behind CheckpointStore
// - Schema and serialization details hidden
// - Connection management hidden
package storage

import (
	"context"

	"github.com/richinex/ixion/llm"
)

// CheckpointStore persists conversation transcripts keyed by thread ID,
// so a run can resume where the previous one left off.
type CheckpointStore interface {
	// Save replaces the stored transcript for the thread.
	Save(ctx context.Context, threadID string, messages []llm.ChatMessage) error

	// Load returns the stored transcript, or an empty slice when the
	// thread has no checkpoint.
	Load(ctx context.Context, threadID string) ([]llm.ChatMessage, error)

	// Delete removes the thread's checkpoint.
	Delete(ctx context.Context, threadID string) error

	// Exists reports whether the thread has a checkpoint.
	Exists(ctx context.Context, threadID string) (bool, error)

	// ListThreads returns all thread IDs with a checkpoint.
	ListThreads(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}
