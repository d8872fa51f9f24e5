package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ziadkadry99/docchat/internal/retry"
)

// Fields projected from the index.
const (
	fieldTitle = "title"
	fieldPath  = "metadata_storage_path"
	fieldChunk = "chunk"
)

// AzureConfig describes an Azure AI Search index queried with hybrid
// text and vector search.
type AzureConfig struct {
	Endpoint    string
	Index       string
	APIKey      string
	APIVersion  string
	VectorField string
	KNearest    int // candidate pool for the vector query
	Top         int // results returned after fusion
	Policy      retry.Policy
	HTTPClient  *http.Client
}

// StatusError is returned when the search service answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search service returned status %d: %s", e.StatusCode, e.Body)
}

// AzureRetriever implements Retriever against the Azure AI Search REST API.
type AzureRetriever struct {
	cfg    AzureConfig
	url    string
	client *http.Client
}

// NewAzureRetriever creates a retriever for the configured index.
func NewAzureRetriever(cfg AzureConfig) *AzureRetriever {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	u := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s",
		strings.TrimRight(cfg.Endpoint, "/"),
		url.PathEscape(cfg.Index),
		url.QueryEscape(cfg.APIVersion),
	)
	return &AzureRetriever{cfg: cfg, url: u, client: client}
}

type azureSearchRequest struct {
	Search        string             `json:"search"`
	VectorQueries []azureVectorQuery `json:"vectorQueries"`
	Select        string             `json:"select"`
	Top           int                `json:"top"`
}

// azureVectorQuery asks the service to vectorize the text itself.
type azureVectorQuery struct {
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	K      int    `json:"k"`
	Fields string `json:"fields"`
}

type azureSearchResponse struct {
	Value []struct {
		Score float64 `json:"@search.score"`
		Title string  `json:"title"`
		Path  string  `json:"metadata_storage_path"`
		Chunk string  `json:"chunk"`
	} `json:"value"`
}

// Search runs one hybrid query and returns the fused top results in the
// order the service ranked them.
func (r *AzureRetriever) Search(ctx context.Context, query string) ([]Document, error) {
	body, err := json.Marshal(azureSearchRequest{
		Search: query,
		VectorQueries: []azureVectorQuery{{
			Kind:   "text",
			Text:   query,
			K:      r.cfg.KNearest,
			Fields: r.cfg.VectorField,
		}},
		Select: strings.Join([]string{fieldTitle, fieldPath, fieldChunk}, ","),
		Top:    r.cfg.Top,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	var resp azureSearchResponse
	err = r.cfg.Policy.Do(ctx, isTransient, func(ctx context.Context) error {
		resp = azureSearchResponse{}
		return r.do(ctx, body, &resp)
	})
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(resp.Value))
	for _, v := range resp.Value {
		docs = append(docs, Document{Title: v.Title, Path: v.Path, Chunk: v.Chunk})
	}
	return docs, nil
}

func (r *AzureRetriever) do(ctx context.Context, body []byte, out *azureSearchResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", r.cfg.APIKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

func isTransient(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && retry.IsRetryableStatus(se.StatusCode)
}
