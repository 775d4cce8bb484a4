package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/careloop/careloop/internal/channel"
	"github.com/redis/go-redis/v9"
)

const transcriptTTL = 7 * 24 * time.Hour

// Store keeps per-session conversation transcripts in redis, one list
// entry per finalized turn.
type Store struct {
	redis *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func transcriptKey(sessionID string) string {
	return "transcript:" + sessionID
}

// AppendTurn pushes a finalized turn onto the session transcript and
// refreshes its TTL.
func (s *Store) AppendTurn(ctx context.Context, sessionID string, turn channel.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}

	key := transcriptKey(sessionID)
	pipe := s.redis.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, transcriptTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// List returns the session transcript in turn order. A session with no
// recorded turns returns an empty transcript, not an error.
func (s *Store) List(ctx context.Context, sessionID string) ([]channel.Turn, error) {
	entries, err := s.redis.LRange(ctx, transcriptKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	turns := make([]channel.Turn, 0, len(entries))
	for _, entry := range entries {
		var turn channel.Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.redis.Del(ctx, transcriptKey(sessionID)).Err()
}
