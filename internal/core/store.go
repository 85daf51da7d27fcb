package core

import (
	"context"

	"github.com/crammerlabs/crammer/internal/models"
)

// VectorStore abstracts the remote vector index so higher layers never depend
// on a specific backend (Pinecone, pgvector, ...). The store is the sole owner
// of persisted records; the pipeline keeps no durable local copy.
type VectorStore interface {
	// Upsert writes records, overwriting existing ids. Returns the number of
	// records the backend accepted.
	Upsert(ctx context.Context, records []models.VectorRecord) (int, error)

	// DeleteAll removes every record in the index.
	DeleteAll(ctx context.Context) error

	// Stats returns the current total record count. Backends may report this
	// with a lag of a few seconds after writes.
	Stats(ctx context.Context) (*models.IndexStats, error)

	// Query returns up to topK nearest records with their stored metadata.
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]models.QueryMatch, error)
}
