package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crammerlabs/crammer/internal/core"
	"github.com/crammerlabs/crammer/internal/models"
	"github.com/crammerlabs/crammer/internal/services"
)

type fakeIngestor struct {
	report *models.IngestReport
	err    error

	gotFiles []models.UploadedFile
	gotClear bool
	clearErr error
}

func (f *fakeIngestor) ProcessFiles(_ context.Context, files []models.UploadedFile, clearExisting bool) (*models.IngestReport, error) {
	f.gotFiles = files
	f.gotClear = clearExisting
	return f.report, f.err
}

func (f *fakeIngestor) Clear(context.Context) error { return f.clearErr }

type fakeTutor struct {
	chatErr error
}

func (f *fakeTutor) Chat(_ context.Context, message string, _ []core.Message) (*services.ChatResult, error) {
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &services.ChatResult{Mode: "chat", Message: message, Response: "hi"}, nil
}

func (f *fakeTutor) Teach(_ context.Context, topic string) (*services.TeachResult, error) {
	return &services.TeachResult{Mode: "teaching", Topic: topic, Explanation: "lesson"}, nil
}

func (f *fakeTutor) AnswerQuestion(_ context.Context, question string) (*services.AnswerResult, error) {
	return &services.AnswerResult{Mode: "qa", Question: question, Answer: "42"}, nil
}

func (f *fakeTutor) GenerateFlashcards(_ context.Context, topic string, numCards int) (*services.FlashcardResult, error) {
	return &services.FlashcardResult{Mode: "flashcards", Topic: topic, NumCards: numCards, Flashcards: "Card 1"}, nil
}

func multipartBody(t *testing.T, clearExisting string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	if clearExisting != "" {
		require.NoError(t, w.WriteField("clear_existing", clearExisting))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestUploadMultiple(t *testing.T) {
	ing := &fakeIngestor{report: &models.IngestReport{
		Message:             "Files processed successfully!",
		FilesProcessed:      1,
		ChunksCreated:       4,
		TotalVectorsInIndex: 4,
		IndexName:           "test-index",
	}}
	h := NewDocumentHandler(ing, zap.NewNop())

	body, contentType := multipartBody(t, "false", map[string]string{"dir/notes.txt": "some study notes"})
	req := httptest.NewRequest(http.MethodPost, "/upload/multiple", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadMultiple(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "Files processed successfully!", got["message"])
	assert.Equal(t, float64(4), got["chunks_created"])
	assert.Equal(t, "test-index", got["index_name"])

	assert.False(t, ing.gotClear)
	require.Len(t, ing.gotFiles, 1)
	assert.Equal(t, "notes.txt", ing.gotFiles[0].Name, "path components must be stripped")
	assert.Equal(t, []byte("some study notes"), ing.gotFiles[0].Data)
}

func TestUploadMultipleClearDefaultsTrue(t *testing.T) {
	ing := &fakeIngestor{report: &models.IngestReport{}}
	h := NewDocumentHandler(ing, zap.NewNop())

	body, contentType := multipartBody(t, "", map[string]string{"a.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/upload/multiple", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadMultiple(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ing.gotClear)
}

func TestUploadMultipleNoFiles(t *testing.T) {
	h := NewDocumentHandler(&fakeIngestor{}, zap.NewNop())

	body, contentType := multipartBody(t, "true", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload/multiple", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadMultiple(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, false, got["success"])
	assert.Equal(t, "no files provided", got["error"])
}

func TestUploadMultipleIngestionError(t *testing.T) {
	ing := &fakeIngestor{
		report: &models.IngestReport{FilesProcessed: 1, ChunksCreated: 10, IndexName: "test-index"},
		err:    errors.New("no vectors in index after uploading 10 chunks"),
	}
	h := NewDocumentHandler(ing, zap.NewNop())

	body, contentType := multipartBody(t, "", map[string]string{"a.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/upload/multiple", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.UploadMultiple(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	got := decodeBody(t, rec)
	assert.Contains(t, got["message"], "Error storing vectors:")
	assert.Equal(t, float64(10), got["chunks_created"])
	assert.NotEmpty(t, got["error"])
}

func TestClearIndex(t *testing.T) {
	h := NewDocumentHandler(&fakeIngestor{}, zap.NewNop())
	rec := httptest.NewRecorder()

	h.ClearIndex(rec, httptest.NewRequest(http.MethodPost, "/clear", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "All documents cleared from knowledge base", got["message"])
}

func TestClearIndexFailure(t *testing.T) {
	h := NewDocumentHandler(&fakeIngestor{clearErr: errors.New("index still reports 5 vectors")}, zap.NewNop())
	rec := httptest.NewRecorder()

	h.ClearIndex(rec, httptest.NewRequest(http.MethodPost, "/clear", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestChatDefaultMode(t *testing.T) {
	h := NewChatHandler(&fakeTutor{}, zap.NewNop())

	rec := postJSON(t, h.Chat, "/chat/", `{"message":"hello"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, true, got["success"])
	data := got["data"].(map[string]any)
	assert.Equal(t, "chat", data["mode"])
	assert.Equal(t, "hi", data["response"])
}

func TestChatTeachMode(t *testing.T) {
	h := NewChatHandler(&fakeTutor{}, zap.NewNop())

	rec := postJSON(t, h.Chat, "/chat/", `{"message":"photosynthesis","mode":"teach"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "teaching", data["mode"])
	assert.Equal(t, "photosynthesis", data["topic"])
}

func TestChatAnswerMode(t *testing.T) {
	h := NewChatHandler(&fakeTutor{}, zap.NewNop())

	rec := postJSON(t, h.Chat, "/chat/", `{"message":"why?","mode":"answer"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "qa", data["mode"])
	assert.Equal(t, "42", data["answer"])
}

func TestChatUnknownMode(t *testing.T) {
	h := NewChatHandler(&fakeTutor{}, zap.NewNop())

	rec := postJSON(t, h.Chat, "/chat/", `{"message":"hi","mode":"sing"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatMissingMessage(t *testing.T) {
	h := NewChatHandler(&fakeTutor{}, zap.NewNop())

	rec := postJSON(t, h.Chat, "/chat/", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "message is required", decodeBody(t, rec)["error"])
}

func TestChatInvalidJSON(t *testing.T) {
	h := NewChatHandler(&fakeTutor{}, zap.NewNop())

	rec := postJSON(t, h.Chat, "/chat/", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatServiceError(t *testing.T) {
	h := NewChatHandler(&fakeTutor{chatErr: errors.New("model overloaded")}, zap.NewNop())

	rec := postJSON(t, h.Chat, "/chat/", `{"message":"hello"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func TestFlashcards(t *testing.T) {
	h := NewChatHandler(&fakeTutor{}, zap.NewNop())

	rec := postJSON(t, h.Flashcards, "/flashcards", `{"topic":"biology","num_cards":5}`)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "biology", data["topic"])
	assert.Equal(t, float64(5), data["num_cards"])
}

func TestFlashcardsMissingTopic(t *testing.T) {
	h := NewChatHandler(&fakeTutor{}, zap.NewNop())

	rec := postJSON(t, h.Flashcards, "/flashcards", `{"num_cards":5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "topic is required", decodeBody(t, rec)["error"])
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "healthy", got["status"])
	assert.Equal(t, true, got["rag_initialized"])
}

func TestWelcome(t *testing.T) {
	rec := httptest.NewRecorder()
	Welcome(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody(t, rec)
	assert.Equal(t, "Crammer API", got["service"])
	assert.Contains(t, got["endpoints"], "flashcards")
}