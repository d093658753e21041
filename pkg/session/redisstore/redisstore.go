package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// indexScript adds a session to a user index and stretches the index TTL to
// cover it. The TTL never shrinks, so sibling sessions stay reachable.
var indexScript = redis.NewScript(`
redis.call('SADD', KEYS[1], ARGV[1])
local ttl = tonumber(ARGV[2])
if redis.call('PTTL', KEYS[1]) < ttl then
	redis.call('PEXPIRE', KEYS[1], ttl)
end
return 1
`)

// Store keeps sessions in Redis as JSON under prefix+id with a native TTL.
// Sessions bound to a user are also listed in the set prefix+"user:"+userID.
type Store struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures the Redis store.
type Option func(*Store)

// WithPrefix sets the key prefix.
// Default: "sess:".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock overrides the time source used to turn TTLs into expiry times.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Redis-backed session store.
// The client should be obtained from pkg/redis.Open or pkg/redis.OpenConfig.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: config.DefaultRedisPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads a session. ExpiresAt is derived from the key's remaining TTL.
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	key := s.key(id)

	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		get = p.Get(ctx, key)
		pttl = p.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	data, err := get.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	sess, err := decode(data)
	if err != nil {
		return nil, err
	}

	if ttl := pttl.Val(); ttl > 0 {
		sess.ExpiresAt = s.now().Add(ttl)
	}

	return sess, nil
}

// Save writes the session with the given TTL and updates the user index.
func (s *Store) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redisstore: encode session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.key(sess.ID), data, ttl)
		if sess.IsAuthenticated() {
			s.index(ctx, p, *sess.UserID, sess.ID, ttl)
		}
		return nil
	})
	return err
}

// Delete removes a session. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Touch resets the key's TTL so that it expires at expiresAt and stretches
// the owner's user index to match.
func (s *Store) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, id)
	}

	key := s.key(id)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return session.ErrNotFound
		}
		return err
	}
	sess, err := decode(data)
	if err != nil {
		return err
	}

	var expire *redis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		expire = p.PExpire(ctx, key, ttl)
		if sess.IsAuthenticated() {
			s.index(ctx, p, *sess.UserID, id, ttl)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !expire.Val() {
		return session.ErrNotFound
	}
	return nil
}

// DeleteByUserID removes every live session still bound to userID.
// Index entries of sessions that expired or changed hands are dropped.
func (s *Store) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	userKey := s.userKey(userID)

	ids, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}

	var owned []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		sess, err := decode([]byte(raw))
		if err != nil || !sess.IsAuthenticated() || *sess.UserID != userID {
			continue
		}
		owned = append(owned, keys[i])
	}

	var deleted *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if len(owned) > 0 {
			deleted = p.Del(ctx, owned...)
		}
		p.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if deleted == nil {
		return 0, nil
	}
	return deleted.Val(), nil
}

func (s *Store) index(ctx context.Context, p redis.Pipeliner, userID, id string, ttl time.Duration) {
	indexScript.Eval(ctx, p, []string{s.userKey(userID)}, id, ttl.Milliseconds())
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) userKey(userID string) string {
	return s.prefix + "user:" + userID
}

func decode(data []byte) (*session.Session, error) {
	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("redisstore: decode session: %w", err)
	}
	return &sess, nil
}

var (
	_ session.Store     = (*Store)(nil)
	_ session.UserIndex = (*Store)(nil)
)
