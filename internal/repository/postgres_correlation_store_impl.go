package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jnst/egisz-callback-relay/internal/model"
)

const (
	getRegistrationQuery = `
SELECT body FROM callback_registrations
WHERE channel = $1 AND message_id = $2 AND (expires_at IS NULL OR expires_at > now())`

	putRegistrationQuery = `
INSERT INTO callback_registrations (channel, message_id, body, expires_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (channel, message_id)
DO UPDATE SET body = EXCLUDED.body, expires_at = EXCLUDED.expires_at, created_at = now()`
)

// PostgresCorrelationStoreImpl implements CorrelationStore using PostgreSQL.
type PostgresCorrelationStoreImpl struct {
	pool *pgxpool.Pool
}

// NewPostgresCorrelationStoreImpl creates a new Postgres-backed CorrelationStore.
func NewPostgresCorrelationStoreImpl(pool *pgxpool.Pool) CorrelationStore {
	return &PostgresCorrelationStoreImpl{pool: pool}
}

// Get reads an unexpired registration.
func (r *PostgresCorrelationStoreImpl) Get(ctx context.Context, key, channel string) (*model.CorrelationRecord, error) {
	var body []byte
	if err := r.pool.QueryRow(ctx, getRegistrationQuery, channel, key).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

// Put upserts a registration.
func (r *PostgresCorrelationStoreImpl) Put(ctx context.Context, record *model.CorrelationRecord, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	if _, err := r.pool.Exec(ctx, putRegistrationQuery, record.Channel, record.Key, record.Body, expiresAt); err != nil {
		return fmt.Errorf("failed to put correlation record: %w", err)
	}

	return nil
}
