package ingestion_engine

import "time"

// IngestConfig tunes the pipeline.
//
// ChunkSize:      characters per chunk (boundary snapping may slightly exceed it).
// ChunkOverlap:   characters shared between consecutive chunks.
// BatchSize:      chunks embedded/upserted per remote call (the embedding
//                 model caps this at 96).
// VerifyAttempts: stats polls after upload/clear before giving up.
// VerifyInterval: sleep between polls; the remote stats endpoint lags writes
//                 by a few seconds.
// VerifyStrict:   when true, exhausting the polls without confirming the
//                 expected count is an error instead of a best-effort report.
type IngestConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	BatchSize      int
	VerifyAttempts int
	VerifyInterval time.Duration
	VerifyStrict   bool
}

func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		ChunkSize:      1000,
		ChunkOverlap:   200,
		BatchSize:      96,
		VerifyAttempts: 10,
		VerifyInterval: 2 * time.Second,
	}
}

func (c *IngestConfig) withDefaults() *IngestConfig {
	d := DefaultIngestConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.ChunkSize <= 0 {
		out.ChunkSize = d.ChunkSize
	}
	if out.ChunkOverlap < 0 || out.ChunkOverlap >= out.ChunkSize {
		out.ChunkOverlap = d.ChunkOverlap
	}
	if out.BatchSize <= 0 || out.BatchSize > d.BatchSize {
		out.BatchSize = d.BatchSize
	}
	if out.VerifyAttempts <= 0 {
		out.VerifyAttempts = d.VerifyAttempts
	}
	if out.VerifyInterval <= 0 {
		out.VerifyInterval = d.VerifyInterval
	}
	return &out
}
