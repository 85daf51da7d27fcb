package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/crammerlabs/crammer/internal/core"
	"github.com/crammerlabs/crammer/internal/services"
)

// Tutor is the slice of TutorService the chat endpoints need; tests fake it.
type Tutor interface {
	Chat(ctx context.Context, message string, history []core.Message) (*services.ChatResult, error)
	Teach(ctx context.Context, topic string) (*services.TeachResult, error)
	AnswerQuestion(ctx context.Context, question string) (*services.AnswerResult, error)
	GenerateFlashcards(ctx context.Context, topic string, numCards int) (*services.FlashcardResult, error)
}

type ChatHandler struct {
	tutor Tutor
	log   *zap.Logger
}

func NewChatHandler(tutor Tutor, log *zap.Logger) *ChatHandler {
	return &ChatHandler{tutor: tutor, log: log}
}

type chatRequest struct {
	Message     string         `json:"message"`
	Mode        string         `json:"mode"`
	ChatHistory []core.Message `json:"chat_history"`
}

// Chat dispatches on the requested mode: "chat" (default, conversational with
// history), "teach" (structured explanation) or "answer" (direct QA).
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	var result any
	var err error
	switch req.Mode {
	case "teach":
		result, err = h.tutor.Teach(r.Context(), req.Message)
	case "answer":
		result, err = h.tutor.AnswerQuestion(r.Context(), req.Message)
	case "", "chat":
		var cr *services.ChatResult
		cr, err = h.tutor.Chat(r.Context(), req.Message, req.ChatHistory)
		result = cr
	default:
		respondError(w, http.StatusBadRequest, "unknown mode: "+req.Mode)
		return
	}
	if err != nil {
		h.log.Error("chat failed", zap.Error(err), zap.String("mode", req.Mode))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondData(w, result)
}

type flashcardRequest struct {
	Topic    string `json:"topic"`
	NumCards int    `json:"num_cards"`
}

func (h *ChatHandler) Flashcards(w http.ResponseWriter, r *http.Request) {
	var req flashcardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Topic == "" {
		respondError(w, http.StatusBadRequest, "topic is required")
		return
	}

	result, err := h.tutor.GenerateFlashcards(r.Context(), req.Topic, req.NumCards)
	if err != nil {
		h.log.Error("flashcard generation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.Info("flashcards generated",
		zap.String("topic", result.Topic), zap.Int("num_cards", result.NumCards))
	respondData(w, result)
}
