package queue

import (
	"context"
	"time"

	"github.com/emrgen/propagate/internal/compress"
	"github.com/emrgen/propagate/internal/model"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var DocumentChangeQueue = "document:change:queue"

var _ ChangeQueue = (*RedisQueue)(nil)

// RedisQueue is a change queue on a redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
	codec  codec
	// poll bounds each blocking pop so a cancelled subscriber returns promptly
	poll time.Duration
}

func NewRedisQueue(client *redis.Client, key string, compress compress.Compress) *RedisQueue {
	if key == "" {
		key = DocumentChangeQueue
	}
	return &RedisQueue{
		client: client,
		key:    key,
		codec:  codec{compress: compress},
		poll:   time.Second,
	}
}

func (q *RedisQueue) Publish(ctx context.Context, change *model.Change) error {
	payload, err := q.codec.encode(change)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.key, payload).Err()
}

func (q *RedisQueue) Subscribe(ctx context.Context) (<-chan *model.Change, error) {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	changes := make(chan *model.Change)
	go func() {
		defer close(changes)
		for ctx.Err() == nil {
			res, err := q.client.BLPop(ctx, q.poll, q.key).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				if ctx.Err() == nil {
					logrus.Errorf("error reading %s: %v", q.key, err)
					time.Sleep(q.poll)
				}
				continue
			}

			// res holds the key followed by the value
			change, err := q.codec.decode([]byte(res[1]))
			if err != nil {
				logrus.Errorf("dropping malformed change from %s: %v", q.key, err)
				continue
			}

			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	return changes, nil
}

func (q *RedisQueue) Close() error {
	return nil
}
