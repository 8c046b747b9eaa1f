package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/jnst/egisz-callback-relay/internal/model"
)

// NATSCorrelationStoreImpl implements CorrelationStore on JetStream KeyValue,
// one bucket per channel.
type NATSCorrelationStoreImpl struct {
	js        jetstream.JetStream
	bucketTTL time.Duration

	mu      sync.Mutex
	buckets map[string]jetstream.KeyValue
}

// NewNATSCorrelationStoreImpl creates a JetStream-backed CorrelationStore.
// Buckets are created on first use with bucketTTL as their max age.
func NewNATSCorrelationStoreImpl(js jetstream.JetStream, bucketTTL time.Duration) CorrelationStore {
	return &NATSCorrelationStoreImpl{
		js:        js,
		bucketTTL: bucketTTL,
		buckets:   make(map[string]jetstream.KeyValue),
	}
}

// Get reads the registration for key from the channel bucket.
func (s *NATSCorrelationStoreImpl) Get(ctx context.Context, key, channel string) (*model.CorrelationRecord, error) {
	kv, err := s.bucket(ctx, channel)
	if err != nil {
		return nil, err
	}

	entry, err := kv.Get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, model.ErrRecordNotFound
		}

		return nil, fmt.Errorf("failed to get correlation record: %w", err)
	}

	return &model.CorrelationRecord{
		Key:     key,
		Channel: channel,
		Body:    entry.Value(),
	}, nil
}

// Put writes the registration. Expiry comes from the bucket TTL, so ttl is ignored.
func (s *NATSCorrelationStoreImpl) Put(ctx context.Context, record *model.CorrelationRecord, _ time.Duration) error {
	kv, err := s.bucket(ctx, record.Channel)
	if err != nil {
		return err
	}

	if _, err := kv.Put(ctx, kvKey(record.Key), record.Body); err != nil {
		return fmt.Errorf("failed to put correlation record: %w", err)
	}

	return nil
}

func (s *NATSCorrelationStoreImpl) bucket(ctx context.Context, channel string) (jetstream.KeyValue, error) {
	name := bucketName(channel)

	s.mu.Lock()
	defer s.mu.Unlock()

	if kv, ok := s.buckets[name]; ok {
		return kv, nil
	}

	kv, err := s.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "callback registrations for " + channel,
		TTL:         s.bucketTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", name, err)
	}

	s.buckets[name] = kv

	return kv, nil
}

// bucketName maps a channel onto the bucket alphabet [a-zA-Z0-9_-]. Every
// other byte, and '_' itself, is written as _XX so distinct channels never
// share a bucket.
func bucketName(channel string) string {
	var b strings.Builder
	for i := 0; i < len(channel); i++ {
		c := channel[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02X", c)
		}
	}

	return b.String()
}

// kvKey encodes opaque notification ids into valid KV keys.
func kvKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
