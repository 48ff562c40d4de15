package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	setValidStatusNotFound int64 = 0
	setValidStatusUpdated  int64 = 1
	setValidStatusCorrupt  int64 = -1
)

// setValidScript rewrites the validity byte of an encoded record in place
// and keeps the remaining TTL of the key.
const setValidScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
if #data < 2 or string.byte(data, 1) ~= tonumber(ARGV[2]) then
  return -1
end

local updated = string.sub(data, 1, 1) .. string.char(tonumber(ARGV[1])) .. string.sub(data, 3)

local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
  redis.call("SET", KEYS[1], updated, "PX", ttl)
else
  redis.call("SET", KEYS[1], updated)
end
return 1
`

var setValidLua = redis.NewScript(setValidScript)

// RedisStore is a Redis-backed session store.
//
// Records are kept for the configured retention; a zero retention keeps
// them until deleted out of band.
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	opts      options
}

// NewRedisStore creates a [RedisStore]. prefix namespaces the keys.
func NewRedisStore(client redis.UniversalClient, prefix string, retention time.Duration, opts ...Option) *RedisStore {
	if prefix == "" {
		prefix = "sess"
	}
	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		retention: retention,
		opts:      buildOptions(opts),
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":" + id
}

// Create persists a new session under a fresh id.
//
//	Performance: 1 Redis SET.
func (s *RedisStore) Create(ctx context.Context, p Params) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        id,
		UserID:    p.UserID,
		UserAgent: p.UserAgent,
		Valid:     p.Valid,
		CreatedAt: s.opts.now().UTC().Truncate(time.Millisecond),
	}

	data, err := Encode(sess)
	if err != nil {
		return nil, err
	}

	_, err = withRetry(ctx, s.opts.retry, func() (struct{}, error) {
		if err := s.redis.Set(ctx, s.key(id), data, s.retention).Err(); err != nil {
			return struct{}{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// Get loads a session by id.
//
//	Performance: 1 Redis GET.
func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := withRetry(ctx, s.opts.retry, func() ([]byte, error) {
		data, err := s.redis.Get(ctx, s.key(id)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.ID = id
	return sess, nil
}

// SetValid atomically updates the validity flag.
//
//	Performance: 1 Lua script (GET + PTTL + SET).
func (s *RedisStore) SetValid(ctx context.Context, id string, valid bool) error {
	flag := 0
	if valid {
		flag = 1
	}

	status, err := withRetry(ctx, s.opts.retry, func() (int64, error) {
		status, err := setValidLua.Run(ctx, s.redis, []string{s.key(id)}, flag, sessionFormatVersionCurrent).Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return status, nil
	})
	if err != nil {
		return err
	}

	switch status {
	case setValidStatusUpdated:
		return nil
	case setValidStatusNotFound:
		return ErrNotFound
	case setValidStatusCorrupt:
		return ErrCorrupt
	default:
		return fmt.Errorf("%w: unexpected script status %d", ErrUnavailable, status)
	}
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
