// Package repository provides data access interfaces and implementations.
package repository

import (
	"context"
	"time"

	"github.com/jnst/egisz-callback-relay/internal/model"
)

// CorrelationReader looks up callback registrations by notification id.
type CorrelationReader interface {
	// Get returns the record stored under key in channel, or model.ErrRecordNotFound.
	Get(ctx context.Context, key, channel string) (*model.CorrelationRecord, error)
}

// CorrelationWriter stores callback registrations.
type CorrelationWriter interface {
	// Put stores record, replacing any previous value. A zero ttl never expires.
	Put(ctx context.Context, record *model.CorrelationRecord, ttl time.Duration) error
}

// CorrelationStore is a correlation backend that can both read and write.
type CorrelationStore interface {
	CorrelationReader
	CorrelationWriter
}
