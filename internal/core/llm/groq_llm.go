package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crammerlabs/crammer/internal/core"
)

const groqChatURL = "https://api.groq.com/openai/v1/chat/completions"

// GroqLLM generates text through the Groq chat-completions API.
type GroqLLM struct {
	apiKey     string
	model      string
	httpClient *http.Client
	url        string
}

func NewGroqLLM(apiKey, model string) (*GroqLLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq api key is empty")
	}
	if model == "" {
		model = "llama-3.1-8b-instant"
	}
	return &GroqLLM{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		url:        groqChatURL,
	}, nil
}

type groqRequest struct {
	Model       string         `json:"model"`
	Messages    []core.Message `json:"messages"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (g *GroqLLM) Generate(ctx context.Context, messages []core.Message) (string, error) {
	request := groqRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("marshal groq request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build groq request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read groq response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq returned %d: %s", resp.StatusCode, string(raw))
	}

	var decoded groqResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode groq response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("groq error: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

var _ core.LLMProvider = (*GroqLLM)(nil)
