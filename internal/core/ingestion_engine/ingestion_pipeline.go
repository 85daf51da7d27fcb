package ingestion_engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crammerlabs/crammer/internal/core"
	"github.com/crammerlabs/crammer/internal/models"
)

var _ Ingestor = (*DocumentIngestor)(nil)

// DocumentIngestor orchestrates one ingestion run:
// optional clear -> extract -> chunk -> embed+upsert in batches -> verify.
//
// Batches fail soft: a failed embed or upsert is recorded in the report and
// the loop moves on to the next batch. Only configuration problems and a
// total upload failure (index still empty after a non-empty attempt) surface
// as errors.
type DocumentIngestor struct {
	store     core.VectorStore
	embedder  core.EmbeddingProvider
	extractor core.DocumentExtractor
	cfg       *IngestConfig
	indexName string
	log       *zap.Logger
}

func NewDocumentIngestor(store core.VectorStore, emb core.EmbeddingProvider, ext core.DocumentExtractor, cfg *IngestConfig, indexName string, log *zap.Logger) *DocumentIngestor {
	return &DocumentIngestor{
		store:     store,
		embedder:  emb,
		extractor: ext,
		cfg:       cfg.withDefaults(),
		indexName: indexName,
		log:       log,
	}
}

// ProcessFiles runs the pipeline to completion for one upload request.
// The returned report is populated even when err is non-nil.
func (i *DocumentIngestor) ProcessFiles(ctx context.Context, files []models.UploadedFile, clearExisting bool) (*models.IngestReport, error) {
	log := i.log.With(zap.String("run_id", uuid.NewString()))
	log.Info("ingestion started",
		zap.Int("files", len(files)), zap.Bool("clear_existing", clearExisting))

	report := &models.IngestReport{
		FilesProcessed:         len(files),
		IndexName:              i.indexName,
		PreviousVectorsCleared: clearExisting,
	}

	if clearExisting {
		if err := i.Clear(ctx); err != nil {
			// Stale vectors may remain; accepted degraded state.
			log.Warn("clearing index failed, continuing", zap.Error(err))
		}
	}

	extracted, err := i.extractor.ExtractText(ctx, files)
	if err != nil {
		return report, fmt.Errorf("extract: %w", err)
	}
	if len(extracted.Text) == 0 {
		log.Info("no text extracted, nothing to ingest")
		report.Message = "No text could be extracted from the files"
		return report, nil
	}
	log.Info("text extracted", zap.Int("characters", len(extracted.Text)),
		zap.Int("files_skipped", len(extracted.Skipped)))

	chunks := splitText(extracted.Text, i.cfg.ChunkSize, i.cfg.ChunkOverlap)
	report.ChunksCreated = len(chunks)
	if len(chunks) == 0 {
		log.Info("no chunks created, nothing to ingest")
		report.Message = "Failed to create chunks"
		return report, nil
	}
	log.Info("text chunked", zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", i.cfg.ChunkSize), zap.Int("overlap", i.cfg.ChunkOverlap))

	before := i.currentCount(ctx, log)

	report.VectorsUploaded, report.Batches = i.embedAndUpsert(ctx, log, extracted, chunks)

	total, confirmed := i.verifyUpload(ctx, log, before, report.VectorsUploaded)
	report.TotalVectorsInIndex = total

	if total == 0 {
		// Distinct from partial shortfall: nothing landed at all.
		return report, fmt.Errorf(
			"no vectors in index after uploading %d chunks; check the API key, index name and permissions",
			len(chunks))
	}
	if !confirmed && i.cfg.VerifyStrict {
		return report, fmt.Errorf(
			"upload not confirmed: %d of %d new vectors visible after %d checks",
			total-before, report.VectorsUploaded, i.cfg.VerifyAttempts)
	}

	if report.VectorsUploaded < len(chunks) {
		report.Message = fmt.Sprintf("Processed with partial upload: %d/%d chunks stored",
			report.VectorsUploaded, len(chunks))
	} else {
		report.Message = "Files processed successfully!"
	}

	log.Info("ingestion complete",
		zap.Int("chunks_created", report.ChunksCreated),
		zap.Int("vectors_uploaded", report.VectorsUploaded),
		zap.Int("total_vectors_in_index", report.TotalVectorsInIndex))
	return report, nil
}

// embedAndUpsert walks the chunks in fixed-size batches. Each batch embeds
// then upserts independently; a failure marks the batch and the loop
// continues.
func (i *DocumentIngestor) embedAndUpsert(ctx context.Context, log *zap.Logger, extracted *core.ExtractResult, chunks []chunk) (int, []models.BatchResult) {
	var uploaded int
	var results []models.BatchResult

	totalBatches := (len(chunks) + i.cfg.BatchSize - 1) / i.cfg.BatchSize

	for start := 0; start < len(chunks); start += i.cfg.BatchSize {
		end := start + i.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		result := models.BatchResult{Batch: len(results) + 1, Size: len(batch)}

		log.Info("processing batch",
			zap.Int("batch", result.Batch), zap.Int("of", totalBatches), zap.Int("size", result.Size))

		texts := make([]string, len(batch))
		for j := range batch {
			texts[j] = batch[j].Text
		}

		vecs, err := i.embedder.EmbedTexts(ctx, texts, core.RolePassage)
		if err != nil {
			result.Err = err.Error()
			log.Warn("batch embed failed, skipping batch",
				zap.Int("batch", result.Batch), zap.Error(err))
			results = append(results, result)
			continue
		}
		if len(vecs) != len(batch) {
			result.Err = fmt.Sprintf("embed size mismatch: got %d want %d", len(vecs), len(batch))
			log.Warn("batch embed mismatch, skipping batch", zap.Int("batch", result.Batch))
			results = append(results, result)
			continue
		}

		records := make([]models.VectorRecord, len(batch))
		for j, c := range batch {
			source := extracted.SourceAt(c.Start)
			records[j] = models.VectorRecord{
				ID:     fmt.Sprintf("%s-%d", source, c.Pos),
				Values: vecs[j],
				Metadata: models.RecordMetadata{
					Text:        c.Text,
					Source:      source,
					ChunkIndex:  c.Pos,
					ChunkLength: len(c.Text),
				},
			}
		}

		n, err := i.store.Upsert(ctx, records)
		if err != nil {
			result.Err = err.Error()
			log.Warn("batch upsert failed, skipping batch",
				zap.Int("batch", result.Batch), zap.Error(err))
			results = append(results, result)
			continue
		}

		result.Uploaded = n
		uploaded += n
		results = append(results, result)
	}

	return uploaded, results
}

// verifyUpload polls stats until the observed delta reaches the uploaded
// count or the attempts run out. Returns the last observed total and whether
// the delta was confirmed.
func (i *DocumentIngestor) verifyUpload(ctx context.Context, log *zap.Logger, before, uploaded int) (int, bool) {
	total := before
	if st, err := i.store.Stats(ctx); err == nil {
		total = st.TotalVectorCount
	}
	if uploaded == 0 {
		return total, false
	}
	if total-before >= uploaded {
		return total, true
	}

	for attempt := 1; attempt <= i.cfg.VerifyAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return total, false
		case <-time.After(i.cfg.VerifyInterval):
		}

		st, err := i.store.Stats(ctx)
		if err != nil {
			log.Warn("stats check failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		total = st.TotalVectorCount
		log.Info("verifying upload", zap.Int("attempt", attempt),
			zap.Int("total", total), zap.Int("new", total-before))

		if total-before >= uploaded {
			return total, true
		}
	}
	return total, false
}

// Clear deletes every record and re-checks emptiness with bounded polling,
// since the stats endpoint lags deletes by a few seconds.
func (i *DocumentIngestor) Clear(ctx context.Context) error {
	st, err := i.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats before clear: %w", err)
	}
	if st.TotalVectorCount == 0 {
		return nil
	}

	i.log.Info("clearing index", zap.Int("vectors", st.TotalVectorCount))
	if err := i.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}

	remaining := st.TotalVectorCount
	for attempt := 1; attempt <= i.cfg.VerifyAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(i.cfg.VerifyInterval):
		}

		st, err := i.store.Stats(ctx)
		if err != nil {
			i.log.Warn("stats check failed after clear", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		remaining = st.TotalVectorCount
		if remaining == 0 {
			return nil
		}
	}
	return fmt.Errorf("index still reports %d vectors after clear", remaining)
}

func (i *DocumentIngestor) currentCount(ctx context.Context, log *zap.Logger) int {
	st, err := i.store.Stats(ctx)
	if err != nil {
		log.Warn("stats check failed before upload", zap.Error(err))
		return 0
	}
	return st.TotalVectorCount
}
