// internal/database/connections.go
// Cache backend bootstrap. The compstate directory is the only source of
// truth; Redis is purely a query cache for the serving layer.

package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Config contains connection settings for the cache backend
type Config struct {
	Redis RedisConfig
}

// RedisConfig contains Redis-specific settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Connections holds the live cache connections
type Connections struct {
	Redis *redis.Client
}

// Initialize connects the cache backend and verifies it with a ping.
func Initialize(ctx context.Context, cfg Config, logger *logrus.Logger) (*Connections, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	logger.WithField("addr", cfg.Redis.Addr).Info("Connected to redis")

	return &Connections{Redis: client}, nil
}

// Close releases all connections
func (c *Connections) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
