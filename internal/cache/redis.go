package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cliprelay/backend/internal/models"
)

// Register TTLs. Position entries are rewritten about once a second by the
// player, so a short TTL just clears leftovers after playback stops. Seek
// entries older than their TTL must never be acted on (a reloading player
// could otherwise replay a stale seek).
const (
	PositionTTL = 30 * time.Second
	SeekTTL     = 5 * time.Second
)

// SyncStore holds the two ephemeral last-value registers of a playback
// session: position (keyed by the active request id) and seek (keyed by the
// player token). Last writer wins; readers tolerate staleness up to the
// polling interval.
type SyncStore interface {
	SetPosition(requestID uuid.UUID, pos models.Position) error
	GetPosition(requestID uuid.UUID) (models.Position, bool, error)
	RequestSeek(token string, seekTime float64) error
	// ConsumeSeek atomically reads and clears the pending seek for a token.
	ConsumeSeek(token string) (float64, bool, error)
	Close() error
}

type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient creates a new Redis client
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		ctx:    ctx,
	}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Position register

func positionKey(requestID uuid.UUID) string {
	return fmt.Sprintf("position:%s", requestID.String())
}

// SetPosition overwrites the position register for the active request
func (r *RedisClient) SetPosition(requestID uuid.UUID, pos models.Position) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	return r.client.Set(r.ctx, positionKey(requestID), data, PositionTTL).Err()
}

// GetPosition reads the position register; ok is false when nothing has
// been reported for this request yet
func (r *RedisClient) GetPosition(requestID uuid.UUID) (models.Position, bool, error) {
	data, err := r.client.Get(r.ctx, positionKey(requestID)).Result()
	if err == redis.Nil {
		return models.Position{}, false, nil
	}
	if err != nil {
		return models.Position{}, false, err
	}

	var pos models.Position
	if err := json.Unmarshal([]byte(data), &pos); err != nil {
		return models.Position{}, false, err
	}
	return pos, true, nil
}

// Seek register

func seekKey(token string) string {
	return fmt.Sprintf("seek:%s", token)
}

// RequestSeek overwrites the pending seek for a player token
func (r *RedisClient) RequestSeek(token string, seekTime float64) error {
	return r.client.Set(r.ctx, seekKey(token), seekTime, SeekTTL).Err()
}

// ConsumeSeek reads and clears the pending seek in one round trip; the TTL
// on the key already discards entries the player missed
func (r *RedisClient) ConsumeSeek(token string) (float64, bool, error) {
	val, err := r.client.GetDel(r.ctx, seekKey(token)).Float64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// AllowAction implements a Redis-backed token-bucket limiter per key.
// Returns true if the action is allowed, false if rate-limited.
func (r *RedisClient) AllowAction(key string, rate int, burst int) (bool, error) {
	key = fmt.Sprintf("rl:%s", key)
	// Lua script: manage tokens and last timestamp
	script := `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local vals = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(vals[1])
local last = tonumber(vals[2])
if tokens == nil then tokens = burst end
if last == nil then last = now end
local delta = math.max(0, now - last)
local new_tokens = math.min(burst, tokens + (delta * rate / 1000))
if new_tokens >= 1 then
	new_tokens = new_tokens - 1
	redis.call('HMSET', key, 'tokens', new_tokens, 'last', now)
	redis.call('PEXPIRE', key, 60000)
	return 1
else
	redis.call('HMSET', key, 'tokens', new_tokens, 'last', now)
	redis.call('PEXPIRE', key, 60000)
	return 0
end
`

	now := time.Now().UnixNano() / int64(time.Millisecond)
	res, err := r.client.Eval(r.ctx, script, []string{key}, rate, burst, now).Result()
	if err != nil {
		return false, err
	}
	// Eval returns int64 (1 or 0)
	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case int:
		return v == 1, nil
	default:
		return false, fmt.Errorf("unexpected result from rate limiter: %T %v", res, res)
	}
}
