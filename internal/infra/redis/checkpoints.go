package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/wikibot/internal/resilience/paginate"
)

// checkpointTTL bounds how long an abandoned run's checkpoint lingers.
const checkpointTTL = 24 * time.Hour

// CheckpointStore persists continuation checkpoints so an aggregation
// run aborted mid-way can be resumed from its last good page.
type CheckpointStore struct {
	rdb  *redis.Client
	site string
}

// NewCheckpointStore creates a checkpoint store namespaced by site.
func NewCheckpointStore(client *Client, site string) *CheckpointStore {
	return &CheckpointStore{rdb: client.rdb, site: site}
}

func (s *CheckpointStore) key(runKey string) string {
	return fmt.Sprintf("continuation:%s:%s", s.site, runKey)
}

// Save stores the checkpoint for runKey, replacing any previous one.
func (s *CheckpointStore) Save(ctx context.Context, runKey string, cp paginate.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(runKey), data, checkpointTTL).Err(); err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}
	return nil
}

// Load retrieves the checkpoint for runKey. Returns (nil, nil) when
// none exists.
func (s *CheckpointStore) Load(ctx context.Context, runKey string) (*paginate.Checkpoint, error) {
	data, err := s.rdb.Get(ctx, s.key(runKey)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	var cp paginate.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

// Clear removes the checkpoint for runKey.
func (s *CheckpointStore) Clear(ctx context.Context, runKey string) error {
	if err := s.rdb.Del(ctx, s.key(runKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
