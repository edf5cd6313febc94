package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"article-api/internal/domain"
)

const (
	generationKey = "articles:generation"
	listKeyPrefix = "articles:list:"
)

func listKey(generation int64) string {
	return listKeyPrefix + strconv.FormatInt(generation, 10)
}

// Redis caches the resolved article listing as a single JSON value. Every
// invalidation bumps a generation counter and listings are stored under the
// generation they were read at, so a listing read before a write can never
// be served after it.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect parses url, pings the server and returns a ready cache.
func Connect(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return New(client, ttl), nil
}

func New(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// GetArticles returns the current generation together with the listing
// cached for it. ok is false on a cache miss.
func (r *Redis) GetArticles(ctx context.Context) ([]domain.ArticleWithAuthor, int64, bool, error) {
	generation, err := r.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	data, err := r.client.Get(ctx, listKey(generation)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, generation, false, nil
		}
		return nil, generation, false, err
	}

	var articles []domain.ArticleWithAuthor
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, generation, false, fmt.Errorf("decode cached articles: %w", err)
	}
	return articles, generation, true, nil
}

// SetArticles stores articles under generation. A listing for a generation
// that has since been invalidated is written but never read.
func (r *Redis) SetArticles(ctx context.Context, generation int64, articles []domain.ArticleWithAuthor) error {
	data, err := json.Marshal(articles)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, listKey(generation), data, r.ttl).Err()
}

func (r *Redis) InvalidateArticles(ctx context.Context) error {
	next, err := r.client.Incr(ctx, generationKey).Result()
	if err != nil {
		return err
	}
	return r.client.Del(ctx, listKey(next-1)).Err()
}

func (r *Redis) generation(ctx context.Context) (int64, error) {
	generation, err := r.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cache generation: %w", err)
	}
	return generation, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
