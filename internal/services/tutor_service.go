package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/crammerlabs/crammer/internal/core"
	"github.com/crammerlabs/crammer/internal/prompts"
)

// contextSeparator joins retrieved chunk texts; sources_used is the number of
// segments produced by splitting on it.
const contextSeparator = "\n\n"

// Default top-k per mode, matching how much context each one needs.
const (
	chatTopK      = 5
	teachTopK     = 5
	answerTopK    = 3
	flashcardTopK = 8
)

// TutorService grounds generated answers in retrieved passages. Retrieval
// failures degrade to an empty context rather than failing the request; an
// answer generated without context is a valid degraded mode.
type TutorService struct {
	embedder core.EmbeddingProvider
	store    core.VectorStore
	llm      core.LLMProvider
	log      *zap.Logger
}

func NewTutorService(emb core.EmbeddingProvider, store core.VectorStore, llm core.LLMProvider, log *zap.Logger) *TutorService {
	return &TutorService{embedder: emb, store: store, llm: llm, log: log}
}

type ChatResult struct {
	Mode        string `json:"mode"`
	Message     string `json:"message"`
	Response    string `json:"response"`
	SourcesUsed int    `json:"sources_used"`
}

type TeachResult struct {
	Mode        string `json:"mode"`
	Topic       string `json:"topic"`
	Explanation string `json:"explanation"`
	SourcesUsed int    `json:"sources_used"`
}

type AnswerResult struct {
	Mode        string `json:"mode"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	SourcesUsed int    `json:"sources_used"`
}

type FlashcardResult struct {
	Mode       string `json:"mode"`
	Topic      string `json:"topic"`
	NumCards   int    `json:"num_cards"`
	Flashcards string `json:"flashcards"`
}

// Chat answers a free-form message with the student's prior turns included.
func (s *TutorService) Chat(ctx context.Context, message string, history []core.Message) (*ChatResult, error) {
	contextText := s.retrieveContext(ctx, message, chatTopK)

	msgs := []core.Message{{Role: "system", Content: prompts.TutorSystem}}
	msgs = append(msgs, history...)
	msgs = append(msgs, core.Message{Role: "user", Content: prompts.Chat(contextText, message)})

	response, err := s.llm.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return &ChatResult{
		Mode:        "chat",
		Message:     message,
		Response:    response,
		SourcesUsed: countSources(contextText),
	}, nil
}

// Teach produces a structured explanation of a topic.
func (s *TutorService) Teach(ctx context.Context, topic string) (*TeachResult, error) {
	contextText := s.retrieveContext(ctx, topic, teachTopK)

	msgs := []core.Message{
		{Role: "system", Content: prompts.TutorSystem},
		{Role: "user", Content: prompts.Teaching(contextText, topic)},
	}
	explanation, err := s.llm.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return &TeachResult{
		Mode:        "teaching",
		Topic:       topic,
		Explanation: explanation,
		SourcesUsed: countSources(contextText),
	}, nil
}

// AnswerQuestion gives a direct answer to a specific question.
func (s *TutorService) AnswerQuestion(ctx context.Context, question string) (*AnswerResult, error) {
	contextText := s.retrieveContext(ctx, question, answerTopK)

	msgs := []core.Message{
		{Role: "system", Content: prompts.TutorSystem},
		{Role: "user", Content: prompts.QA(contextText, question)},
	}
	answer, err := s.llm.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return &AnswerResult{
		Mode:        "qa",
		Question:    question,
		Answer:      answer,
		SourcesUsed: countSources(contextText),
	}, nil
}

// GenerateFlashcards returns raw structured flashcard text; the caller
// renders it. The format is checked but malformed output is still returned.
func (s *TutorService) GenerateFlashcards(ctx context.Context, topic string, numCards int) (*FlashcardResult, error) {
	if numCards <= 0 {
		numCards = 10
	}
	contextText := s.retrieveContext(ctx, topic, flashcardTopK)

	msgs := []core.Message{
		{Role: "system", Content: prompts.FlashcardSystem},
		{Role: "user", Content: prompts.Flashcards(contextText, numCards)},
	}
	raw, err := s.llm.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}

	if !hasFlashcardFormat(raw) {
		s.log.Warn("flashcard response may not follow the expected format",
			zap.String("topic", topic), zap.Int("response_length", len(raw)))
	}

	return &FlashcardResult{
		Mode:       "flashcards",
		Topic:      topic,
		NumCards:   numCards,
		Flashcards: raw,
	}, nil
}

// retrieveContext embeds the query, fetches the top-k records and joins
// their stored text in rank order. Any failure returns an empty context.
func (s *TutorService) retrieveContext(ctx context.Context, query string, k int) string {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{query}, core.RoleQuery)
	if err != nil || len(vecs) == 0 {
		s.log.Warn("query embedding failed, answering without context", zap.Error(err))
		return ""
	}

	matches, err := s.store.Query(ctx, vecs[0], k, true)
	if err != nil {
		s.log.Warn("index query failed, answering without context", zap.Error(err))
		return ""
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Metadata.Text != "" {
			parts = append(parts, m.Metadata.Text)
		}
	}
	return strings.Join(parts, contextSeparator)
}

func countSources(contextText string) int {
	if contextText == "" {
		return 0
	}
	return len(strings.Split(contextText, contextSeparator))
}

func hasFlashcardFormat(s string) bool {
	return strings.Contains(s, "Card 1") &&
		strings.Contains(s, "Front:") &&
		strings.Contains(s, "Back:")
}
