package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	checkpointKeyPrefix = "agent:checkpoint:"
	checkpointTTL       = 24 * time.Hour
)

// RedisCheckpointer persists conversation state in Redis so checkpoints
// survive restarts and can be shared across instances.
type RedisCheckpointer struct {
	rdb *redis.Client
}

// NewRedisCheckpointer creates a checkpointer backed by Redis.
func NewRedisCheckpointer(rdb *redis.Client) *RedisCheckpointer {
	return &RedisCheckpointer{rdb: rdb}
}

func checkpointKey(threadID string) string {
	return checkpointKeyPrefix + threadID
}

// Get returns the last persisted state for the thread, or nil when absent.
func (c *RedisCheckpointer) Get(ctx context.Context, threadID string) (*State, error) {
	data, err := c.rdb.Get(ctx, checkpointKey(threadID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("agent: checkpoint get: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("agent: checkpoint unmarshal: %w", err)
	}
	return &state, nil
}

// Put overwrites the thread's checkpoint.
func (c *RedisCheckpointer) Put(ctx context.Context, threadID string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("agent: checkpoint marshal: %w", err)
	}
	return c.rdb.Set(ctx, checkpointKey(threadID), data, checkpointTTL).Err()
}
