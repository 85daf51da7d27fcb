// Package db provides the pgvector-backed VectorStore used when
// VECTOR_BACKEND=pgvector. Unlike the Pinecone backend its stats are
// read-your-writes, so the pipeline's verification passes on the first poll.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/crammerlabs/crammer/internal/core"
	"github.com/crammerlabs/crammer/internal/models"
)

var _ core.VectorStore = (*PgVectorStore)(nil)

type PgVectorStore struct {
	db  *sql.DB
	dim int
	log *zap.Logger
}

func NewPgVectorStore(ctx context.Context, databaseURL string, dim int, log *zap.Logger) (*PgVectorStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, sqlDB, dim); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &PgVectorStore{db: sqlDB, dim: dim, log: log}, nil
}

func (s *PgVectorStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Upsert writes records in one transaction, overwriting on id conflict.
func (s *PgVectorStore) Upsert(ctx context.Context, records []models.VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}

	const q = `
		INSERT INTO index_records
			(id, embedding, text, source, chunk_index, chunk_length)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			embedding    = EXCLUDED.embedding,
			text         = EXCLUDED.text,
			source       = EXCLUDED.source,
			chunk_index  = EXCLUDED.chunk_index,
			chunk_length = EXCLUDED.chunk_length
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		vec := pgvector.NewVector(r.Values)
		if _, err := stmt.ExecContext(ctx,
			r.ID, vec, r.Metadata.Text, r.Metadata.Source, r.Metadata.ChunkIndex, r.Metadata.ChunkLength,
		); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *PgVectorStore) DeleteAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM index_records`)
	return err
}

func (s *PgVectorStore) Stats(ctx context.Context) (*models.IndexStats, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM index_records`).Scan(&count); err != nil {
		return nil, err
	}
	return &models.IndexStats{TotalVectorCount: count, Dimension: s.dim}, nil
}

// Query returns the topK nearest records by cosine distance.
func (s *PgVectorStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]models.QueryMatch, error) {
	const q = `
		SELECT id, text, source, chunk_index, chunk_length, 1 - (embedding <=> $1) AS score
		FROM index_records
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	vec := pgvector.NewVector(vector)
	rows, err := s.db.QueryContext(ctx, q, vec, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QueryMatch
	for rows.Next() {
		var m models.QueryMatch
		if err := rows.Scan(
			&m.ID, &m.Metadata.Text, &m.Metadata.Source, &m.Metadata.ChunkIndex, &m.Metadata.ChunkLength, &m.Score,
		); err != nil {
			return nil, err
		}
		if !includeMetadata {
			m.Metadata = models.RecordMetadata{}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
