package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperbase/internal/models"
	"paperbase/internal/storage"
)

func newCorpus(t *testing.T) (*storage.DB, *storage.ChunkRepo, int64) {
	t.Helper()
	db, err := storage.OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { db.SQL.Close() })

	papers := storage.NewPaperRepo(db)
	paperID, err := papers.Insert(context.Background(), models.Paper{
		Title:    "Attention Is All You Need",
		FilePath: "/papers/attention.pdf",
	})
	require.NoError(t, err)
	return db, storage.NewChunkRepo(db), paperID
}

func unitX(dim int) []float32 {
	v := make([]float32, dim)
	v[0] = 1
	return v
}

func TestTopKRanksByCosine(t *testing.T) {
	_, chunks, paperID := newCorpus(t)
	ctx := context.Background()

	// Five chunks at decreasing alignment with the x axis.
	vecs := [][]float32{
		{1, 0, 0, 0, 0, 0, 0, 0},
		{1, 1, 0, 0, 0, 0, 0, 0},
		{1, 3, 0, 0, 0, 0, 0, 0},
		{0, 1, 0, 0, 0, 0, 0, 0},
		{-1, 0, 0, 0, 0, 0, 0, 0},
	}
	batch := make([]models.Chunk, len(vecs))
	for i, v := range vecs {
		batch[i] = models.Chunk{
			PaperID:    paperID,
			Content:    "chunk",
			PageNumber: i + 1,
			Embedding:  v,
		}
	}
	require.NoError(t, chunks.InsertBatch(ctx, batch))

	r := NewRetriever(chunks)
	got, err := r.TopK(ctx, unitX(8), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 1, got[0].PageNumber)
	assert.Equal(t, 2, got[1].PageNumber)
	assert.Equal(t, 3, got[2].PageNumber)
	assert.InDelta(t, 1.0, got[0].Score, 1e-6)
	assert.Greater(t, got[1].Score, got[2].Score)
	assert.Equal(t, "Attention Is All You Need", got[0].PaperTitle)
}

func TestTopKTieBreaksOnLowerChunkID(t *testing.T) {
	_, chunks, paperID := newCorpus(t)
	ctx := context.Background()

	same := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	require.NoError(t, chunks.InsertBatch(ctx, []models.Chunk{
		{PaperID: paperID, Content: "first", PageNumber: 1, Embedding: same},
		{PaperID: paperID, Content: "second", PageNumber: 2, Embedding: same},
	}))

	r := NewRetriever(chunks)
	got, err := r.TopK(ctx, unitX(8), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Less(t, got[0].ID, got[1].ID)
}

func TestTopKSkipsChunksWithoutEmbeddings(t *testing.T) {
	_, chunks, paperID := newCorpus(t)
	ctx := context.Background()

	require.NoError(t, chunks.InsertBatch(ctx, []models.Chunk{
		{PaperID: paperID, Content: "embedded", PageNumber: 1, Embedding: unitX(8)},
		{PaperID: paperID, Content: "bare", PageNumber: 2},
	}))

	r := NewRetriever(chunks)
	got, err := r.TopK(ctx, unitX(8), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "embedded", got[0].Content)
}

func TestTopKClampsToCorpusSize(t *testing.T) {
	_, chunks, paperID := newCorpus(t)
	ctx := context.Background()

	require.NoError(t, chunks.InsertBatch(ctx, []models.Chunk{
		{PaperID: paperID, Content: "only", PageNumber: 1, Embedding: unitX(8)},
	}))

	r := NewRetriever(chunks)
	got, err := r.TopK(ctx, unitX(8), 50)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestTopKEmptyCorpus(t *testing.T) {
	_, chunks, _ := newCorpus(t)

	r := NewRetriever(chunks)
	got, err := r.TopK(context.Background(), unitX(8), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTopKRejectsNonPositiveK(t *testing.T) {
	_, chunks, _ := newCorpus(t)

	r := NewRetriever(chunks)
	_, err := r.TopK(context.Background(), unitX(8), 0)
	require.Error(t, err)
}
