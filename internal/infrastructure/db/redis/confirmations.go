package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/syncroweb/launchpad/internal/core/domain"
	"github.com/syncroweb/launchpad/internal/core/ports"
)

// ConfirmationStore keeps pending member removals until they are confirmed
// or expire. Key format: removal:<token>
type ConfirmationStore struct {
	client *redis.Client
}

// NewConfirmationStore creates a ConfirmationStore wrapping the given Redis client.
func NewConfirmationStore(client *redis.Client) *ConfirmationStore {
	return &ConfirmationStore{client: client}
}

// Save stores req under its token for ttl.
func (s *ConfirmationStore) Save(ctx context.Context, req ports.RemovalRequest, ttl time.Duration) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode removal request: %w", err)
	}
	if err := s.client.Set(ctx, s.key(req.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save removal request: %w", err)
	}
	return nil
}

// takeOwnScript deletes and returns the request only for the actor that
// created it: 0 means missing, 1 means owned by someone else.
var takeOwnScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return 0
end
if cjson.decode(raw).actor_id ~= ARGV[1] then
  return 1
end
redis.call('DEL', KEYS[1])
return raw
`)

// Take consumes the request in one script, so a token is confirmed at most
// once and only by its creator.
func (s *ConfirmationStore) Take(ctx context.Context, token, actorID string) (*ports.RemovalRequest, error) {
	res, err := takeOwnScript.Run(ctx, s.client, []string{s.key(token)}, actorID).Result()
	if err != nil {
		return nil, fmt.Errorf("take removal request: %w", err)
	}

	switch v := res.(type) {
	case string:
		var req ports.RemovalRequest
		if err := json.Unmarshal([]byte(v), &req); err != nil {
			return nil, fmt.Errorf("decode removal request: %w", err)
		}
		return &req, nil
	case int64:
		if v == 1 {
			return nil, domain.ErrForbidden
		}
		return nil, domain.ErrConfirmationNotFound
	default:
		return nil, fmt.Errorf("take removal request: unexpected reply %T", res)
	}
}

func (s *ConfirmationStore) key(token string) string {
	return "removal:" + token
}
