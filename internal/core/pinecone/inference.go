package pinecone

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/crammerlabs/crammer/internal/core"
)

// MaxBatchSize is the embedding model's per-call input ceiling. Callers
// needing more must split into sequential batches themselves.
const MaxBatchSize = 96

// InferenceClient embeds texts through the Pinecone Inference API.
type InferenceClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
}

func NewInferenceClient(apiKey, model string) *InferenceClient {
	return &InferenceClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    controlPlaneURL,
	}
}

type embedRequest struct {
	Model      string          `json:"model"`
	Parameters embedParameters `json:"parameters"`
	Inputs     []embedInput    `json:"inputs"`
}

type embedParameters struct {
	InputType string `json:"input_type"` // "passage" or "query"
	Truncate  string `json:"truncate"`
}

type embedInput struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Values []float32 `json:"values"`
	} `json:"data"`
}

// EmbedTexts returns one vector per input, order-preserving. Batches above
// MaxBatchSize are rejected rather than silently truncated.
func (c *InferenceClient) EmbedTexts(ctx context.Context, texts []string, role core.EmbedRole) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("embed batch of %d exceeds limit of %d", len(texts), MaxBatchSize)
	}

	req := embedRequest{
		Model:      c.model,
		Parameters: embedParameters{InputType: string(role), Truncate: "END"},
		Inputs:     make([]embedInput, len(texts)),
	}
	for i, t := range texts {
		req.Inputs[i] = embedInput{Text: t}
	}

	var resp embedResponse
	if err := doJSON(ctx, c.httpClient, http.MethodPost, c.baseURL+"/embed", c.apiKey, req, &resp); err != nil {
		return nil, fmt.Errorf("inference embed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("inference embed: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Values) == 0 {
			return nil, fmt.Errorf("inference embed: empty vector at position %d", i)
		}
		out[i] = d.Values
	}
	return out, nil
}

var _ core.EmbeddingProvider = (*InferenceClient)(nil)
