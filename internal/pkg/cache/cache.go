package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
)

// Redis logical databases. The app client uses 0.
const (
	DBSessions = 1
	DBOAuth    = 2
	DBLimiter  = 3
	DBStats    = 4
)

var client *redis.Client

// SetupCache initializes the connection to the Redis server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		fiberlog.Warnf("Could not connect to redis cache: %v", err)
	} else {
		fiberlog.Infof("Successfully connected to redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Ping checks the connection, used by the health endpoint.
func Ping(ctx context.Context) error {
	return GetClient().Ping(ctx).Err()
}

// NewStorage returns a fiber.Storage on the given logical database of the
// same Redis server the cache client points to.
func NewStorage(database int) *redisstorage.Storage {
	opts := GetClient().Options()
	host, port := "127.0.0.1", 6379
	if opts.Addr != "" {
		if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
			host = h
			if parsed, e := strconv.Atoi(p); e == nil {
				port = parsed
			}
		} else {
			host = opts.Addr
		}
	}

	return redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Username: opts.Username,
		Password: opts.Password,
		Database: database,
		Reset:    false,
	})
}
