package redis

import (
	"context"
	"errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"os"
	"strconv"
	"time"
)

// ErrCacheMiss is returned by Get when the key does not exist
var ErrCacheMiss = errors.New("cache miss")

type IRedis interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Enabled() bool
	Close() error
}

type redisClient struct {
	client *redis.Client
	log    *logrus.Logger
}

// New connects to REDIS_ADDRESS. Without an address, the returned cache is a no-op.
// A failed ping is logged and not fatal, go-redis reconnects on use.
func New(log *logrus.Logger) IRedis {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		log.Warn("REDIS_ADDRESS not set, prediction cache disabled")
		return noop{}
	}

	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fields := logrus.Fields{"address": redisAddr}
	if _, err := client.Ping(ctx).Result(); err != nil {
		fields["error"] = err.Error()
		log.WithFields(fields).Error("Failed to connect to Redis")
	} else {
		log.WithFields(fields).Info("Successfully connected to Redis")
	}

	return &redisClient{client: client, log: log}
}

func (r *redisClient) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		r.log.WithFields(logrus.Fields{
			"key":   key,
			"error": err.Error(),
		}).Error("Error setting cache entry")
		return err
	}
	return nil
}

func (r *redisClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	} else if err != nil {
		r.log.WithFields(logrus.Fields{
			"key":   key,
			"error": err.Error(),
		}).Error("Error getting cache entry")
		return nil, err
	}
	return val, nil
}

func (r *redisClient) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisClient) Enabled() bool {
	return true
}

func (r *redisClient) Close() error {
	return r.client.Close()
}

type noop struct{}

func (noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (noop) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (noop) Delete(context.Context, string) error { return nil }

func (noop) Enabled() bool { return false }

func (noop) Close() error { return nil }
