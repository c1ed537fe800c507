package services

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"orderdesk/internal/models"
)

// ChatCache keeps the most recent messages of a room in Redis so a
// joining session gets its history replay without a table scan. The
// database stays authoritative; callers fall back to it when the
// cache is cold.
type ChatCache struct {
	client *redis.Client
	limit  int64
}

func NewChatCache(client *redis.Client, limit int64) *ChatCache {
	return &ChatCache{client: client, limit: limit}
}

// Limit is the cap on cached messages per room. A cache read that hits
// the cap may be truncated and callers should fall back to the store.
func (c *ChatCache) Limit() int64 { return c.limit }

func (c *ChatCache) AddMessage(ctx context.Context, roomID string, msg models.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := "chatroom:" + roomID + ":messages"
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, c.limit-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *ChatCache) GetHistory(ctx context.Context, roomID string) ([]models.Message, error) {
	key := "chatroom:" + roomID + ":messages"
	vals, err := c.client.LRange(ctx, key, 0, c.limit-1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	res := make([]models.Message, 0, len(vals))
	for i := len(vals) - 1; i >= 0; i-- {
		var m models.Message
		if e := json.Unmarshal([]byte(vals[i]), &m); e == nil {
			res = append(res, m)
		}
	}
	return res, nil
}

// Invalidate drops a room's cached history, used when the room closes.
func (c *ChatCache) Invalidate(ctx context.Context, roomID string) error {
	return c.client.Del(ctx, "chatroom:"+roomID+":messages").Err()
}
