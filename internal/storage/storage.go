// Package storage provides durable backends for learning profiles and
// prediction models: Redis and S3 for profiles, DynamoDB for models.
package storage

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/adaptive-core/internal/config"
	"github.com/ignite/adaptive-core/internal/learning"
	"github.com/ignite/adaptive-core/internal/pkg/logger"
)

// Clients are the connections a backend may need. Only the ones the
// configured backends use must be set.
type Clients struct {
	Redis       redis.Cmdable
	RedisPrefix string
	S3          S3API
	DynamoDB    DynamoAPI
}

// Stores is the pair of backends selected by configuration.
type Stores struct {
	Profiles learning.ProfileStore
	Models   learning.ModelStore
}

// New selects the profile and model backends named in cfg.
func New(cfg config.StorageConfig, c Clients) (*Stores, error) {
	var s Stores

	switch cfg.ProfileBackend {
	case "", "memory":
		s.Profiles = learning.NewMemoryProfileStore()
	case "redis":
		if c.Redis == nil {
			return nil, errors.New("storage: profile_backend redis requires a redis connection")
		}
		s.Profiles = NewRedisProfileStore(c.Redis, c.RedisPrefix)
	case "s3":
		if c.S3 == nil || cfg.S3Bucket == "" {
			return nil, errors.New("storage: profile_backend s3 requires an S3 client and s3_bucket")
		}
		s.Profiles = NewS3ProfileStore(c.S3, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return nil, fmt.Errorf("storage: unknown profile_backend %q", cfg.ProfileBackend)
	}

	switch cfg.ModelBackend {
	case "", "memory":
		s.Models = learning.NewMemoryModelStore()
	case "dynamodb":
		if c.DynamoDB == nil || cfg.DynamoDBTable == "" {
			return nil, errors.New("storage: model_backend dynamodb requires a DynamoDB client and dynamodb_table")
		}
		s.Models = NewDynamoModelStore(c.DynamoDB, cfg.DynamoDBTable)
	default:
		return nil, fmt.Errorf("storage: unknown model_backend %q", cfg.ModelBackend)
	}

	logger.Info("learning storage configured",
		"profile_backend", cfg.ProfileBackend,
		"model_backend", cfg.ModelBackend)
	return &s, nil
}
