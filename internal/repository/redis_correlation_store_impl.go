package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/jnst/egisz-callback-relay/internal/model"
)

// RedisCorrelationStoreImpl implements CorrelationStore with plain Redis
// string keys of the form "<channel>:<key>".
type RedisCorrelationStoreImpl struct {
	redisClient rueidis.Client
}

// NewRedisCorrelationStoreImpl creates a new Redis-backed CorrelationStore.
func NewRedisCorrelationStoreImpl(redisClient rueidis.Client) CorrelationStore {
	return &RedisCorrelationStoreImpl{
		redisClient: redisClient,
	}
}

// Get reads the registration stored for key.
func (s *RedisCorrelationStoreImpl) Get(ctx context.Context, key, channel string) (*model.CorrelationRecord, error) {
	cmd := s.redisClient.B().Get().Key(channelKey(channel, key)).Build()

	body, err := s.redisClient.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, model.ErrRecordNotFound
		}

		return nil, fmt.Errorf("failed to get correlation record: %w", err)
	}

	return &model.CorrelationRecord{
		Key:     key,
		Channel: channel,
		Body:    body,
	}, nil
}

// Put writes the registration, with PX expiry when ttl is positive.
func (s *RedisCorrelationStoreImpl) Put(ctx context.Context, record *model.CorrelationRecord, ttl time.Duration) error {
	set := s.redisClient.B().Set().Key(channelKey(record.Channel, record.Key)).Value(rueidis.BinaryString(record.Body))

	var cmd rueidis.Completed
	if ttl > 0 {
		cmd = set.Px(ttl).Build()
	} else {
		cmd = set.Build()
	}

	if err := s.redisClient.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to put correlation record: %w", err)
	}

	return nil
}

func channelKey(channel, key string) string {
	return channel + ":" + key
}
