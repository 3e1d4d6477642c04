package retrieval

import (
	"context"
	"fmt"
	"sort"

	"paperbase/internal/models"
	"paperbase/internal/storage"
	"paperbase/internal/vector"
)

// ChunkSource supplies the scorable corpus.
type ChunkSource interface {
	ListEmbedded(ctx context.Context) ([]storage.EmbeddedChunk, error)
}

// Retriever ranks the whole embedded corpus against a query vector by cosine
// similarity. The scan is brute force; corpus sizes here are personal-library
// scale and stay comfortably in memory.
type Retriever struct {
	chunks ChunkSource
}

func NewRetriever(chunks ChunkSource) *Retriever {
	return &Retriever{chunks: chunks}
}

// TopK returns the k best-scoring chunks, highest first. Ties break toward
// the lower chunk id so results are stable across runs. k larger than the
// corpus is clamped; an empty corpus returns an empty slice, not an error.
func (r *Retriever) TopK(ctx context.Context, queryVec []float32, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", k)
	}
	corpus, err := r.chunks.ListEmbedded(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embedded corpus: %w", err)
	}
	if len(corpus) == 0 {
		return []models.RetrievedChunk{}, nil
	}

	scored := make([]models.RetrievedChunk, 0, len(corpus))
	for _, ec := range corpus {
		scored = append(scored, models.RetrievedChunk{
			Chunk:      ec.Chunk,
			PaperTitle: ec.PaperTitle,
			Score:      vector.Cosine(queryVec, ec.Chunk.Embedding),
		})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}
