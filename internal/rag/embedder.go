// Package rag implements the retrieval capability port: per-domain document
// indexing and similarity search over a persistent vector store.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	sderrors "servicedesk/internal/errors"
)

// EmbedderConfig holds embedding configuration.
type EmbedderConfig struct {
	Model     string // default "text-embedding-3-small"
	APIKey    string
	BaseURL   string // defaults to OpenAI
	CacheSize int    // LRU cache size, default 4096
}

// Embedder generates text embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// openaiEmbedder implements Embedder against the OpenAI embeddings API.
type openaiEmbedder struct {
	config     EmbedderConfig
	httpClient *http.Client
	cache      *lru.Cache[string, []float32]
}

// NewEmbedder creates an OpenAI-backed embedder with an LRU cache.
func NewEmbedder(config EmbedderConfig) (Embedder, error) {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.CacheSize == 0 {
		config.CacheSize = 4096
	}

	cache, err := lru.New[string, []float32](config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &openaiEmbedder{
		config:     config,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		cache:      cache,
	}, nil
}

func (e *openaiEmbedder) Dimensions() int { return 1536 }

func (e *openaiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	payload := map[string]any{"model": e.config.Model, "input": []string{text}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, sderrors.CapabilityUnavailable("retrieval", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, sderrors.CapabilityUnavailable("retrieval", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, sderrors.CapabilityUnavailable("retrieval", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sderrors.CapabilityUnavailable("retrieval", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, sderrors.CapabilityUnavailable("retrieval",
			fmt.Errorf("embeddings API status %d", resp.StatusCode))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, sderrors.CapabilityUnavailable("retrieval", err)
	}
	if len(parsed.Data) == 0 {
		return nil, sderrors.CapabilityUnavailable("retrieval", fmt.Errorf("empty embedding response"))
	}

	e.cache.Add(text, parsed.Data[0].Embedding)
	return parsed.Data[0].Embedding, nil
}

// localEmbedder produces deterministic embeddings by hashing word features
// into a fixed-size vector. Retrieval quality is crude but stable, which
// keeps indexing and search fully operable with no credentials.
type localEmbedder struct {
	dims int
}

// NewLocalEmbedder returns the deterministic zero-credential embedder.
func NewLocalEmbedder() Embedder {
	return &localEmbedder{dims: 256}
}

func (e *localEmbedder) Dimensions() int { return e.dims }

func (e *localEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	words := strings.Fields(strings.ToLower(text))
	for i, word := range words {
		features := []string{word}
		if i+1 < len(words) {
			features = append(features, word+" "+words[i+1])
		}
		for _, feat := range features {
			h := fnv.New32a()
			_, _ = h.Write([]byte(feat))
			vec[h.Sum32()%uint32(e.dims)]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}
