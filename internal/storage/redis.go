package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/learning"
)

// RedisProfileStore keeps one JSON document per user.
type RedisProfileStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisProfileStore(client redis.Cmdable, prefix string) *RedisProfileStore {
	return &RedisProfileStore{client: client, prefix: prefix}
}

func (s *RedisProfileStore) key(userID string) string {
	return s.prefix + "profile:" + userID
}

func (s *RedisProfileStore) LoadProfile(ctx context.Context, userID string) (*domain.UserLearningProfile, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, learning.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get profile %s: %w", userID, err)
	}
	return learning.DecodeProfile(userID, data)
}

func (s *RedisProfileStore) SaveProfile(ctx context.Context, p *domain.UserLearningProfile) error {
	data, err := learning.EncodeProfile(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.UserID, err)
	}
	if err := s.client.Set(ctx, s.key(p.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set profile %s: %w", p.UserID, err)
	}
	return nil
}
