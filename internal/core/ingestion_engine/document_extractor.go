package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/crammerlabs/crammer/internal/core"
	"github.com/crammerlabs/crammer/internal/models"
)

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.DocumentExtractor. PDFs are read page by
// page so a single bad page never loses the whole file; plain text passes
// through untouched; every other format goes through docconv's generic
// partitioning.
type DocconvExtractor struct {
	log *zap.Logger
}

func NewDocconvExtractor(log *zap.Logger) *DocconvExtractor {
	return &DocconvExtractor{log: log}
}

// ExtractText concatenates per-file text in input order, separated by
// newlines. A file that fails to parse is logged and skipped; extraction
// never aborts for the remaining files.
func (e *DocconvExtractor) ExtractText(ctx context.Context, files []models.UploadedFile) (*core.ExtractResult, error) {
	res := &core.ExtractResult{}
	var b strings.Builder

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := e.extractOne(f)
		if err != nil {
			e.log.Warn("skipping unreadable file",
				zap.String("file", f.Name), zap.Error(err))
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}
		if text == "" {
			e.log.Warn("file yielded no text", zap.String("file", f.Name))
			res.Skipped = append(res.Skipped, f.Name)
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		start := b.Len()
		b.WriteString(text)
		res.Spans = append(res.Spans, core.FileSpan{Source: f.Name, Start: start, End: b.Len()})

		e.log.Info("extracted file",
			zap.String("file", f.Name), zap.Int("characters", len(text)))
	}

	res.Text = b.String()
	return res, nil
}

func (e *DocconvExtractor) extractOne(f models.UploadedFile) (string, error) {
	mime := contentType(f)
	switch {
	case mime == "application/pdf":
		return e.extractPDF(f)
	case strings.HasPrefix(mime, "text/"):
		// Plain text and markdown need no partitioning.
		return string(f.Data), nil
	default:
		res, err := docconv.Convert(bytes.NewReader(f.Data), mime, false)
		if err != nil {
			return "", fmt.Errorf("docconv: %w", err)
		}
		return res.Body, nil
	}
}

// extractPDF walks pages sequentially, skipping pages whose text extraction
// fails. Only a file with zero readable pages is treated as an error.
func (e *DocconvExtractor) extractPDF(f models.UploadedFile) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(f.Data), int64(len(f.Data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	pages := r.NumPage()
	for n := 1; n <= pages; n++ {
		text, err := pageText(r, n)
		if err != nil {
			e.log.Warn("skipping pdf page",
				zap.String("file", f.Name), zap.Int("page", n), zap.Error(err))
			continue
		}
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	if b.Len() == 0 && pages > 0 {
		return "", fmt.Errorf("no readable pages out of %d", pages)
	}
	return b.String(), nil
}

// pageText isolates a single page read. The pdf library panics on some
// malformed content streams, so the recover turns that into a page error.
func pageText(r *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("page %d: %v", n, p)
		}
	}()

	p := r.Page(n)
	if p.V.IsNull() {
		return "", fmt.Errorf("page %d missing", n)
	}
	return p.GetPlainText(nil)
}

func contentType(f models.UploadedFile) string {
	if f.ContentType != "" && f.ContentType != "application/octet-stream" {
		return f.ContentType
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".pdf":
		return "application/pdf"
	case ".txt", ".md":
		return "text/plain"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	default:
		return docconv.MimeTypeByExtension(f.Name)
	}
}
