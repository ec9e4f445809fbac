package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/germanamz/agentry/pkg/modeladapter"
)

// DefaultEmbeddingModel is used when no embedding model is configured.
const DefaultEmbeddingModel = "text-embedding-3-small"

const embeddingsPath = "/embeddings"

// ErrEmbeddingCount is returned when the API answers with a different
// number of vectors than inputs.
var ErrEmbeddingCount = errors.New("rag: embedding count mismatch")

// Embedder turns texts into vectors, one per input in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	modeladapter.ModelAdapter
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder. baseURL must include the API
// version segment, for example "https://api.openai.com/v1".
func NewOpenAIEmbedder(baseURL, apiKey, model string) *OpenAIEmbedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}

	e := &OpenAIEmbedder{}
	e.BaseURL = strings.TrimRight(baseURL, "/")
	e.Auth = modeladapter.Auth{Key: apiKey}
	e.Name = model

	return e
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp embeddingResponse
	if err := e.PostJSON(ctx, embeddingsPath, embeddingRequest{Model: e.Name, Input: texts}, &resp); err != nil {
		return nil, fmt.Errorf("rag: embeddings: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d, got %d", ErrEmbeddingCount, len(texts), len(resp.Data))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}

	return out, nil
}
