package core

import (
	"context"

	"github.com/crammerlabs/crammer/internal/models"
)

// FileSpan records which byte range of the concatenated text a single file
// contributed.
type FileSpan struct {
	Source string
	Start  int
	End    int
}

// ExtractResult is the concatenated plain text of all readable files, in
// input order, plus per-file spans so chunks can be traced back to a source.
type ExtractResult struct {
	Text    string
	Spans   []FileSpan
	Skipped []string // filenames that failed extraction and were skipped
}

// SourceAt returns the filename whose span contains the given offset.
func (r *ExtractResult) SourceAt(offset int) string {
	for _, s := range r.Spans {
		if offset >= s.Start && offset < s.End {
			return s.Source
		}
	}
	if n := len(r.Spans); n > 0 {
		return r.Spans[n-1].Source
	}
	return "unknown"
}

// DocumentExtractor converts uploaded files into one concatenated text
// stream. Per-file failures are skipped, never fatal for the remaining files.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, files []models.UploadedFile) (*ExtractResult, error)
}
