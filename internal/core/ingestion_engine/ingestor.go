package ingestion_engine

import (
	"context"

	"github.com/crammerlabs/crammer/internal/models"
)

// Ingestor runs one upload request through the full pipeline.
type Ingestor interface {
	ProcessFiles(ctx context.Context, files []models.UploadedFile, clearExisting bool) (*models.IngestReport, error)
	Clear(ctx context.Context) error
}
