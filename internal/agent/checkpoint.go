package agent

import (
	"context"
	"sync"
)

// Checkpointer persists the latest conversation state per thread so a
// multi-turn call resumes exactly where it left off. Get returns (nil, nil)
// when no checkpoint exists for the thread.
type Checkpointer interface {
	Get(ctx context.Context, threadID string) (*State, error)
	Put(ctx context.Context, threadID string, state *State) error
}

// MemoryCheckpointer keeps checkpoints in process memory. Entries live for
// the process lifetime; nothing deletes them.
type MemoryCheckpointer struct {
	mu          sync.RWMutex
	checkpoints map[string]*State
}

// NewMemoryCheckpointer creates an empty in-memory checkpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{checkpoints: make(map[string]*State)}
}

// Get returns a copy of the last persisted state for the thread.
func (c *MemoryCheckpointer) Get(_ context.Context, threadID string) (*State, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.checkpoints[threadID]
	if !ok {
		return nil, nil
	}
	return state.Clone(), nil
}

// Put overwrites the thread's checkpoint with a snapshot of the state.
func (c *MemoryCheckpointer) Put(_ context.Context, threadID string, state *State) error {
	c.mu.Lock()
	c.checkpoints[threadID] = state.Clone()
	c.mu.Unlock()
	return nil
}
