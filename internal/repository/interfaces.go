package repository

import (
	"context"

	"go-flower-classifier/internal/classification"
)

// ClassificationRepository is the persistence gateway for classification
// records. Records are written whole and never partially updated; the only
// mutation after insert is full deletion.
type ClassificationRepository interface {
	// Insert stores a new record, including its image bytes
	Insert(ctx context.Context, record *classification.Record) error

	// Get returns the record for the id, or ErrNotFound
	Get(ctx context.Context, id string) (*classification.Record, error)

	// ListAll returns every stored record, newest first. Used by the
	// aggregation read side; no pagination contract at this layer.
	ListAll(ctx context.Context) ([]*classification.Record, error)

	// Delete removes the record, or returns ErrNotFound
	Delete(ctx context.Context, id string) error

	// Ping reports whether the underlying store is reachable
	Ping(ctx context.Context) error
}
