package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crammerlabs/crammer/internal/core"
	"github.com/crammerlabs/crammer/internal/models"
)

type fakeStore struct {
	records     map[string]models.VectorRecord
	upsertCalls int
	statsCalls  int
	deleteCalls int

	upsertErr   error
	statsErr    error
	deleteErr   error
	frozenCount *int // when set, Stats reports this instead of len(records)
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]models.VectorRecord{}}
}

func (s *fakeStore) Upsert(_ context.Context, records []models.VectorRecord) (int, error) {
	s.upsertCalls++
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return len(records), nil
}

func (s *fakeStore) DeleteAll(context.Context) error {
	s.deleteCalls++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.records = map[string]models.VectorRecord{}
	return nil
}

func (s *fakeStore) Stats(context.Context) (*models.IndexStats, error) {
	s.statsCalls++
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	count := len(s.records)
	if s.frozenCount != nil {
		count = *s.frozenCount
	}
	return &models.IndexStats{TotalVectorCount: count, Dimension: 4}, nil
}

func (s *fakeStore) Query(context.Context, []float32, int, bool) ([]models.QueryMatch, error) {
	return nil, nil
}

type fakeEmbedder struct {
	calls    int
	failOn   map[int]bool // 1-based call numbers that should fail
	embedErr error
}

func (e *fakeEmbedder) EmbedTexts(_ context.Context, texts []string, _ core.EmbedRole) ([][]float32, error) {
	e.calls++
	if e.failOn[e.calls] {
		return nil, fmt.Errorf("embed call %d failed", e.calls)
	}
	if e.embedErr != nil {
		return nil, e.embedErr
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 2, 3, 4}
	}
	return vecs, nil
}

type fakeExtractor struct {
	result *core.ExtractResult
	err    error
}

func (e *fakeExtractor) ExtractText(context.Context, []models.UploadedFile) (*core.ExtractResult, error) {
	return e.result, e.err
}

func singleFileResult(name, text string) *core.ExtractResult {
	return &core.ExtractResult{
		Text:  text,
		Spans: []core.FileSpan{{Source: name, Start: 0, End: len(text)}},
	}
}

func testConfig() *IngestConfig {
	return &IngestConfig{
		ChunkSize:      10,
		ChunkOverlap:   0,
		VerifyAttempts: 2,
		VerifyInterval: time.Millisecond,
	}
}

func newTestIngestor(store *fakeStore, emb *fakeEmbedder, ext *fakeExtractor, cfg *IngestConfig) *DocumentIngestor {
	return NewDocumentIngestor(store, emb, ext, cfg, "test-index", zap.NewNop())
}

func TestProcessFilesBatchesAtCeiling(t *testing.T) {
	// 2500 chars at size 10 / overlap 0 yields 250 chunks, which must be
	// sent as batches of 96, 96 and 58.
	store := newFakeStore()
	emb := &fakeEmbedder{}
	ext := &fakeExtractor{result: singleFileResult("notes.txt", strings.Repeat("a", 2500))}
	ing := newTestIngestor(store, emb, ext, testConfig())

	report, err := ing.ProcessFiles(context.Background(), nil, false)
	require.NoError(t, err)

	assert.Equal(t, 250, report.ChunksCreated)
	assert.Equal(t, 250, report.VectorsUploaded)
	require.Len(t, report.Batches, 3)
	assert.Equal(t, []int{96, 96, 58}, []int{report.Batches[0].Size, report.Batches[1].Size, report.Batches[2].Size})
	assert.Equal(t, 3, store.upsertCalls)
	assert.Equal(t, 250, report.TotalVectorsInIndex)
	assert.Equal(t, "Files processed successfully!", report.Message)
}

func TestProcessFilesSmallFileEndToEnd(t *testing.T) {
	// One 2500-char file with default chunking lands as a single embed batch
	// of 4 vectors.
	store := newFakeStore()
	emb := &fakeEmbedder{}
	ext := &fakeExtractor{result: singleFileResult("notes.txt", strings.Repeat("a", 2500))}
	cfg := &IngestConfig{ChunkSize: 1000, ChunkOverlap: 200, VerifyAttempts: 1, VerifyInterval: time.Millisecond}
	ing := newTestIngestor(store, emb, ext, cfg)

	report, err := ing.ProcessFiles(context.Background(), nil, false)
	require.NoError(t, err)

	assert.Equal(t, 4, report.ChunksCreated)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 4, report.VectorsUploaded)
	assert.Equal(t, 4, report.TotalVectorsInIndex)
}

func TestProcessFilesPartialBatchFailure(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{failOn: map[int]bool{2: true}}
	ext := &fakeExtractor{result: singleFileResult("notes.txt", strings.Repeat("a", 2500))}
	ing := newTestIngestor(store, emb, ext, testConfig())

	report, err := ing.ProcessFiles(context.Background(), nil, false)
	require.NoError(t, err, "one failed batch must not fail the run")

	assert.Equal(t, 154, report.VectorsUploaded) // 96 + 58
	require.Len(t, report.Batches, 3)
	assert.Empty(t, report.Batches[0].Err)
	assert.Contains(t, report.Batches[1].Err, "embed call 2 failed")
	assert.Empty(t, report.Batches[2].Err)
	assert.Equal(t, "Processed with partial upload: 154/250 chunks stored", report.Message)
}

func TestProcessFilesNoText(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{}
	ext := &fakeExtractor{result: &core.ExtractResult{}}
	ing := newTestIngestor(store, emb, ext, testConfig())

	report, err := ing.ProcessFiles(context.Background(), nil, false)
	require.NoError(t, err)

	assert.Equal(t, "No text could be extracted from the files", report.Message)
	assert.Zero(t, report.ChunksCreated)
	assert.Zero(t, emb.calls)
	assert.Zero(t, store.upsertCalls)
}

func TestProcessFilesExtractError(t *testing.T) {
	ext := &fakeExtractor{err: errors.New("boom")}
	ing := newTestIngestor(newFakeStore(), &fakeEmbedder{}, ext, testConfig())

	report, err := ing.ProcessFiles(context.Background(), nil, false)
	require.Error(t, err)
	require.NotNil(t, report)
}

func TestProcessFilesTotalFailure(t *testing.T) {
	// Every upsert fails and the index stays empty: this is the one batch
	// condition that escalates to an error.
	store := newFakeStore()
	store.upsertErr = errors.New("forbidden")
	emb := &fakeEmbedder{}
	ext := &fakeExtractor{result: singleFileResult("notes.txt", strings.Repeat("a", 100))}
	ing := newTestIngestor(store, emb, ext, testConfig())

	report, err := ing.ProcessFiles(context.Background(), nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vectors in index")
	assert.Zero(t, report.VectorsUploaded)
	assert.Zero(t, report.TotalVectorsInIndex)
}

func TestProcessFilesUpsertIsIdempotent(t *testing.T) {
	// Re-ingesting the same content produces the same record IDs, so the
	// index must not grow on the second run.
	store := newFakeStore()
	emb := &fakeEmbedder{}
	ext := &fakeExtractor{result: singleFileResult("notes.txt", strings.Repeat("a", 100))}
	ing := newTestIngestor(store, emb, ext, testConfig())

	_, err := ing.ProcessFiles(context.Background(), nil, false)
	require.NoError(t, err)
	firstCount := len(store.records)
	require.Equal(t, 10, firstCount)

	_, err = ing.ProcessFiles(context.Background(), nil, false)
	require.NoError(t, err)
	assert.Equal(t, firstCount, len(store.records))

	_, ok := store.records["notes.txt-0"]
	assert.True(t, ok, "record IDs must be source name plus chunk position")
}

func TestProcessFilesRecordMetadata(t *testing.T) {
	store := newFakeStore()
	emb := &fakeEmbedder{}
	text := strings.Repeat("a", 25)
	ext := &fakeExtractor{result: singleFileResult("bio.txt", text)}
	ing := newTestIngestor(store, emb, ext, testConfig())

	_, err := ing.ProcessFiles(context.Background(), nil, false)
	require.NoError(t, err)

	rec, ok := store.records["bio.txt-1"]
	require.True(t, ok)
	assert.Equal(t, "bio.txt", rec.Metadata.Source)
	assert.Equal(t, 1, rec.Metadata.ChunkIndex)
	assert.Equal(t, text[10:20], rec.Metadata.Text)
	assert.Equal(t, 10, rec.Metadata.ChunkLength)
}

func TestProcessFilesMultiFileSourceAttribution(t *testing.T) {
	// Chunks are attributed to the file whose span contains their start
	// offset, not blanket-attributed to the first file.
	store := newFakeStore()
	emb := &fakeEmbedder{}
	a := strings.Repeat("a", 10)
	b := strings.Repeat("b", 9)
	ext := &fakeExtractor{result: &core.ExtractResult{
		Text: a + "\n" + b,
		Spans: []core.FileSpan{
			{Source: "a.txt", Start: 0, End: 10},
			{Source: "b.txt", Start: 11, End: 20},
		},
	}}
	ing := newTestIngestor(store, emb, ext, testConfig())

	_, err := ing.ProcessFiles(context.Background(), nil, false)
	require.NoError(t, err)

	require.Contains(t, store.records, "a.txt-0")
	require.Contains(t, store.records, "b.txt-1")
}

func TestProcessFilesClearFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	store.records["old-0"] = models.VectorRecord{ID: "old-0"}
	store.deleteErr = errors.New("delete endpoint down")
	emb := &fakeEmbedder{}
	ext := &fakeExtractor{result: singleFileResult("notes.txt", strings.Repeat("a", 30))}
	ing := newTestIngestor(store, emb, ext, testConfig())

	report, err := ing.ProcessFiles(context.Background(), nil, true)
	require.NoError(t, err, "a failed clear degrades, it does not abort ingestion")
	assert.True(t, report.PreviousVectorsCleared)
	assert.Positive(t, report.VectorsUploaded)
}

func TestProcessFilesStrictVerification(t *testing.T) {
	// Stats frozen at a nonzero count: uploads report success but never
	// become visible. Strict mode turns poll exhaustion into an error.
	frozen := 3
	store := newFakeStore()
	store.frozenCount = &frozen
	emb := &fakeEmbedder{}
	ext := &fakeExtractor{result: singleFileResult("notes.txt", strings.Repeat("a", 30))}

	cfg := testConfig()
	cfg.VerifyStrict = true
	ing := newTestIngestor(store, emb, ext, cfg)

	_, err := ing.ProcessFiles(context.Background(), nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload not confirmed")

	cfg.VerifyStrict = false
	ing = newTestIngestor(store, emb, ext, cfg)
	_, err = ing.ProcessFiles(context.Background(), nil, false)
	assert.NoError(t, err, "without strict mode unconfirmed uploads are best-effort")
}

func TestClearEmptyIndexIsNoop(t *testing.T) {
	store := newFakeStore()
	ing := newTestIngestor(store, &fakeEmbedder{}, &fakeExtractor{}, testConfig())

	require.NoError(t, ing.Clear(context.Background()))
	assert.Zero(t, store.deleteCalls)
}

func TestClearDeletesAndConfirms(t *testing.T) {
	store := newFakeStore()
	store.records["x-0"] = models.VectorRecord{ID: "x-0"}
	store.records["x-1"] = models.VectorRecord{ID: "x-1"}
	ing := newTestIngestor(store, &fakeEmbedder{}, &fakeExtractor{}, testConfig())

	require.NoError(t, ing.Clear(context.Background()))
	assert.Equal(t, 1, store.deleteCalls)
	assert.Empty(t, store.records)
}

func TestClearReportsLingeringVectors(t *testing.T) {
	frozen := 5
	store := newFakeStore()
	store.records["x-0"] = models.VectorRecord{ID: "x-0"}
	store.frozenCount = &frozen
	ing := newTestIngestor(store, &fakeEmbedder{}, &fakeExtractor{}, testConfig())

	err := ing.Clear(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still reports 5 vectors")
}
