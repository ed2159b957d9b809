// Package redis builds the go-redis client and a token-guarded generation lock.
package redis

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	infracontext "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/context"
)

// Config holds Redis connection configuration.
type Config struct {
	Address  string `default:"localhost:6379" env:"REDIS_ADDRESS"`
	Password string `default:""               env:"REDIS_PASSWORD"`
	DB       int    `default:"0"              env:"REDIS_DB"`
}

// ErrEmptyAddress is returned when Redis address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// NewClient creates a Redis client and verifies the connection.
func NewClient(cfg Config) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := infracontext.WithPingTimeout()
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}
