package pinecone

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/crammerlabs/crammer/internal/core"
	"github.com/crammerlabs/crammer/internal/models"
)

// Index is the data-plane handle for one named Pinecone index.
type Index struct {
	name       string
	host       string
	apiKey     string
	httpClient *http.Client
}

// NewIndex resolves the index host via the control plane and returns a
// data-plane handle. Fails when the index does not exist.
func NewIndex(ctx context.Context, client *Client, name string) (*Index, error) {
	desc, err := client.DescribeIndex(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Index{
		name:       name,
		host:       "https://" + desc.Host,
		apiKey:     client.apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (i *Index) Name() string { return i.name }

type upsertVector struct {
	ID       string                `json:"id"`
	Values   []float32             `json:"values"`
	Metadata models.RecordMetadata `json:"metadata"`
}

type upsertRequest struct {
	Vectors []upsertVector `json:"vectors"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

func (i *Index) Upsert(ctx context.Context, records []models.VectorRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	req := upsertRequest{Vectors: make([]upsertVector, len(records))}
	for j, r := range records {
		req.Vectors[j] = upsertVector{ID: r.ID, Values: r.Values, Metadata: r.Metadata}
	}
	var resp upsertResponse
	if err := doJSON(ctx, i.httpClient, http.MethodPost, i.host+"/vectors/upsert", i.apiKey, req, &resp); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	return resp.UpsertedCount, nil
}

type deleteRequest struct {
	DeleteAll bool `json:"deleteAll"`
}

func (i *Index) DeleteAll(ctx context.Context) error {
	if err := doJSON(ctx, i.httpClient, http.MethodPost, i.host+"/vectors/delete", i.apiKey, deleteRequest{DeleteAll: true}, nil); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	return nil
}

type statsResponse struct {
	TotalVectorCount int `json:"totalVectorCount"`
	Dimension        int `json:"dimension"`
}

func (i *Index) Stats(ctx context.Context) (*models.IndexStats, error) {
	var resp statsResponse
	if err := doJSON(ctx, i.httpClient, http.MethodPost, i.host+"/describe_index_stats", i.apiKey, struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	return &models.IndexStats{TotalVectorCount: resp.TotalVectorCount, Dimension: resp.Dimension}, nil
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string                `json:"id"`
		Score    float32               `json:"score"`
		Metadata models.RecordMetadata `json:"metadata"`
	} `json:"matches"`
}

func (i *Index) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]models.QueryMatch, error) {
	req := queryRequest{Vector: vector, TopK: topK, IncludeMetadata: includeMetadata}
	var resp queryResponse
	if err := doJSON(ctx, i.httpClient, http.MethodPost, i.host+"/query", i.apiKey, req, &resp); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	out := make([]models.QueryMatch, len(resp.Matches))
	for j, m := range resp.Matches {
		out[j] = models.QueryMatch{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return out, nil
}

var _ core.VectorStore = (*Index)(nil)
