package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/emrgen/propagate/internal/model"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func documentKey(path string) string {
	return "document:" + path
}

var _ DocumentCache = (*RedisDocumentCache)(nil)

type RedisDocumentCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDocumentCache(client *redis.Client, ttl time.Duration) *RedisDocumentCache {
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisDocumentCache{client: client, ttl: ttl}
}

func (r *RedisDocumentCache) GetDocument(ctx context.Context, path string) (*model.Document, error) {
	res := r.client.Get(ctx, documentKey(path))
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return nil, nil
		}
		return nil, res.Err()
	}

	buf, err := res.Bytes()
	if err != nil {
		return nil, err
	}

	doc := &model.Document{}
	if err := json.Unmarshal(buf, doc); err != nil {
		// a corrupt entry is dropped and treated as a miss
		logrus.Warnf("dropping corrupt cache entry for %s: %v", path, err)
		_ = r.client.Del(ctx, documentKey(path)).Err()
		return nil, nil
	}

	return doc, nil
}

func (r *RedisDocumentCache) SetDocument(ctx context.Context, doc *model.Document) error {
	marshal, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, documentKey(doc.Path), marshal, r.ttl).Err()
}

func (r *RedisDocumentCache) DeleteDocument(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}

	keys := make([]string, 0, len(paths))
	for _, path := range paths {
		keys = append(keys, documentKey(path))
	}

	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		return p.Del(ctx, keys...).Err()
	})

	return err
}
