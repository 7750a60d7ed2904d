package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSessions is the session directory: opaque uuid tokens mapped to
// identities with a TTL. The role always comes from here, never from the
// client.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisSessions) Issue(ctx context.Context, identity *Identity) (string, error) {
	token := uuid.New().String()

	data, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("marshal identity failed: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(token), string(data), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set failed: %w", err)
	}

	return token, nil
}

func (s *RedisSessions) Resolve(ctx context.Context, token string) (*Identity, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var identity Identity
	if err2 := json.Unmarshal(data, &identity); err2 != nil {
		return nil, fmt.Errorf("unmarshal identity failed: %w", err2)
	}

	return &identity, nil
}

func (s *RedisSessions) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}
