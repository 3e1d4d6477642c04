package embedding

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"paperbase/internal/providers"
)

// ErrEmbedding marks an embedding failure: provider unreachable, a vector of
// unexpected dimension, or a batch whose result count does not match its
// input count. A count mismatch is total failure for the batch, never partial
// success.
var ErrEmbedding = errors.New("embedding failed")

const cacheSize = 1024

// Port normalizes single-text and batch embedding calls onto one provider
// and holds the whole corpus to one vector dimension.
type Port struct {
	provider providers.EmbeddingProvider
	dim      int
	cache    *lru.Cache[string, []float32]
}

func NewPort(provider providers.EmbeddingProvider, dim int) (*Port, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("build embedding cache: %w", err)
	}
	return &Port{provider: provider, dim: dim, cache: cache}, nil
}

func (p *Port) Dimension() int {
	return p.dim
}

// Embed returns the vector for one text. Query texts repeat, so results are
// cached.
func (p *Port) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := p.cache.Get(text); ok {
		return vec, nil
	}
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	p.cache.Add(text, vecs[0])
	return vecs[0], nil
}

// EmbedBatch embeds texts in order. The result has exactly one vector of the
// configured dimension per input or the whole call fails.
func (p *Port) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	vecs, info, err := p.provider.Embed(ctx, providers.EmbedRequest{
		Operation: "embed",
		Inputs:    texts,
		Dimension: p.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("provider %s: %v: %w", info.Name, err, ErrEmbedding)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("provider %s returned %d vectors for %d inputs: %w", info.Name, len(vecs), len(texts), ErrEmbedding)
	}
	for i, v := range vecs {
		if len(v) != p.dim {
			return nil, fmt.Errorf("provider %s returned dimension %d for input %d, want %d: %w", info.Name, len(v), i, p.dim, ErrEmbedding)
		}
	}
	return vecs, nil
}
