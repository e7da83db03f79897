package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ManuelReschke/GridFox/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"
)

// Redis logical databases.
const (
	QueueDB       = 0
	IdempotencyDB = 1
)

// Config holds the Redis/Dragonfly connection settings.
type Config struct {
	Host     string
	Port     int
	Password string
}

func ConfigFromEnv() Config {
	return Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     env.GetEnvInt("CACHE_PORT", 6379),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, strconv.Itoa(c.Port))
}

// NewClient opens a client on the queue database.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       QueueDB,
	})
}

// Ping reports whether the cache answers within two seconds.
func Ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] could not connect to cache: %v", err)
		return err
	}
	log.Infof("[Cache] connected to cache: %s", pong)
	return nil
}

// NewIdempotencyStorage returns a fiber.Storage for the idempotency
// middleware, kept apart from queue keys in its own database.
func NewIdempotencyStorage(cfg Config) fiber.Storage {
	return redisstorage.New(redisstorage.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: IdempotencyDB,
		Reset:    false,
	})
}
