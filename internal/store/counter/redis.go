package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/rafaelcs/userhub/backend/internal/domain"
	"github.com/rafaelcs/userhub/backend/internal/store"
)

// RedisStore keeps counters as plain string keys, matching the
// login_count:/session:/last_login: layout.
type RedisStore struct {
	client *redis.Client
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore dials Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts Options) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Client exposes the underlying connection for health probes and shutdown.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Upsert(ctx context.Context, userID string, c domain.Counters) error {
	session := c.Session
	if session == "" {
		session = domain.SessionOffline
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, loginCountPrefix+userID, strconv.FormatInt(c.LoginCount, 10), 0)
	pipe.Set(ctx, sessionPrefix+userID, session, 0)
	if c.LastLogin != "" {
		pipe.Set(ctx, lastLoginPrefix+userID, c.LastLogin, 0)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return store.NewError(store.Counter, fmt.Sprintf("upsert %s", userID), err)
	}
	return nil
}

func (s *RedisStore) FetchOne(ctx context.Context, userID string) (domain.Counters, error) {
	var c domain.Counters

	count, err := s.LoginCount(ctx, userID)
	if err != nil {
		return domain.Counters{}, err
	}
	c.LoginCount = count

	session, err := s.client.Get(ctx, sessionPrefix+userID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Counters{}, store.NewError(store.Counter, fmt.Sprintf("fetch session %s", userID), err)
	}
	if session == "" {
		session = domain.SessionOffline
	}
	c.Session = session

	lastLogin, err := s.client.Get(ctx, lastLoginPrefix+userID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Counters{}, store.NewError(store.Counter, fmt.Sprintf("fetch last login %s", userID), err)
	}
	c.LastLogin = lastLogin

	return c, nil
}

func (s *RedisStore) FetchAll(ctx context.Context) (map[string]domain.Counters, error) {
	out := make(map[string]domain.Counters)

	iter := s.client.Scan(ctx, 0, loginCountPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		userID := strings.TrimPrefix(iter.Val(), loginCountPrefix)
		c, err := s.FetchOne(ctx, userID)
		if err != nil {
			return nil, err
		}
		out[userID] = c
	}
	if err := iter.Err(); err != nil {
		return nil, store.NewError(store.Counter, "scan keys", err)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	err := s.client.Del(ctx,
		loginCountPrefix+userID,
		sessionPrefix+userID,
		lastLoginPrefix+userID,
	).Err()
	if err != nil {
		return store.NewError(store.Counter, fmt.Sprintf("delete %s", userID), err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, userID string) (bool, error) {
	n, err := s.client.Exists(ctx, loginCountPrefix+userID).Result()
	if err != nil {
		return false, store.NewError(store.Counter, fmt.Sprintf("exists %s", userID), err)
	}
	return n > 0, nil
}

func (s *RedisStore) IncrementLogin(ctx context.Context, userID string) (int64, error) {
	val, err := s.client.Incr(ctx, loginCountPrefix+userID).Result()
	if err != nil {
		return 0, store.NewError(store.Counter, fmt.Sprintf("increment login %s", userID), err)
	}
	return val, nil
}

func (s *RedisStore) LoginCount(ctx context.Context, userID string) (int64, error) {
	raw, err := s.client.Get(ctx, loginCountPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, store.NewError(store.Counter, fmt.Sprintf("fetch login count %s", userID), err)
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, store.NewError(store.Counter, fmt.Sprintf("parse login count %s", userID), err)
	}
	return count, nil
}

func (s *RedisStore) SetSession(ctx context.Context, userID, state string) error {
	err := s.client.Set(ctx, sessionPrefix+userID, state, 0).Err()
	return store.NewError(store.Counter, fmt.Sprintf("set session %s", userID), err)
}

func (s *RedisStore) TouchLastLogin(ctx context.Context, userID, timestamp string) error {
	err := s.client.Set(ctx, lastLoginPrefix+userID, timestamp, 0).Err()
	return store.NewError(store.Counter, fmt.Sprintf("touch last login %s", userID), err)
}
