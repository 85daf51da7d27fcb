// Package pinecone wraps the Pinecone REST API: the control plane (index
// lookup), the inference embedding endpoint and the index data plane
// (upsert/query/stats/delete). Response shapes are decoded into explicit
// structs and validated at the boundary.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	controlPlaneURL = "https://api.pinecone.io"
	apiVersion      = "2025-01"
)

// Client talks to the Pinecone control plane.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    controlPlaneURL,
	}
}

// IndexDescription is the subset of the describe-index response we need.
type IndexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
}

// DescribeIndex resolves an index by name. A missing index or bad key
// surfaces here, at startup, rather than on the first upload.
func (c *Client) DescribeIndex(ctx context.Context, name string) (*IndexDescription, error) {
	var desc IndexDescription
	url := fmt.Sprintf("%s/indexes/%s", c.baseURL, name)
	if err := doJSON(ctx, c.httpClient, http.MethodGet, url, c.apiKey, nil, &desc); err != nil {
		return nil, fmt.Errorf("describe index %q: %w", name, err)
	}
	if desc.Host == "" {
		return nil, fmt.Errorf("describe index %q: response missing host", name)
	}
	return &desc, nil
}

// doJSON performs one JSON round trip. A non-2xx status becomes an error
// carrying the response body.
func doJSON(ctx context.Context, client *http.Client, method, url, apiKey string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Api-Key", apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-API-Version", apiVersion)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("pinecone returned %d: %s", resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
