package handlers

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/crammerlabs/crammer/internal/core/ingestion_engine"
	"github.com/crammerlabs/crammer/internal/models"
)

// uploadTimeout bounds one full ingestion run, including verification polls.
const uploadTimeout = 5 * time.Minute

type DocumentHandler struct {
	ingestor ingestion_engine.Ingestor
	log      *zap.Logger
}

func NewDocumentHandler(ing ingestion_engine.Ingestor, log *zap.Logger) *DocumentHandler {
	return &DocumentHandler{ingestor: ing, log: log}
}

// UploadMultiple accepts a multipart file list, runs the ingestion pipeline
// and returns the terminal report.
func (h *DocumentHandler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	if len(fileHeaders) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	clearExisting := true
	if v := r.FormValue("clear_existing"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			clearExisting = parsed
		}
	}

	files := make([]models.UploadedFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			h.log.Warn("cannot open uploaded file", zap.String("file", fh.Filename), zap.Error(err))
			continue
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			h.log.Warn("cannot read uploaded file", zap.String("file", fh.Filename), zap.Error(err))
			continue
		}
		files = append(files, models.UploadedFile{
			Name:        filepath.Base(fh.Filename),
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "none of the uploaded files could be read")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	report, err := h.ingestor.ProcessFiles(ctx, files, clearExisting)
	if err != nil {
		h.log.Error("ingestion failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message":                "Error storing vectors: " + err.Error(),
			"files_processed":        report.FilesProcessed,
			"chunks_created":         report.ChunksCreated,
			"total_vectors_in_index": report.TotalVectorsInIndex,
			"index_name":             report.IndexName,
			"error":                  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ClearIndex deletes every vector in the index and verifies emptiness.
func (h *DocumentHandler) ClearIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), uploadTimeout)
	defer cancel()

	if err := h.ingestor.Clear(ctx); err != nil {
		h.log.Error("clear failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "All documents cleared from knowledge base",
	})
}
