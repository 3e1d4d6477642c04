package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"paperbase/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertTestPaper(t *testing.T, db *DB, filePath string) int64 {
	t.Helper()
	id, err := NewPaperRepo(db).Insert(context.Background(), models.Paper{
		Title:           "Attention Is All You Need",
		Authors:         "Vaswani et al.",
		PublicationYear: 2017,
		Abstract:        "We propose the Transformer.",
		FilePath:        filePath,
	})
	require.NoError(t, err)
	return id
}

func TestPaperInsertDuplicateFilePath(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPaperRepo(db)

	first := insertTestPaper(t, db, "/papers/transformer.pdf")

	_, err := repo.Insert(ctx, models.Paper{Title: "Other", FilePath: "/papers/transformer.pdf"})
	require.ErrorIs(t, err, ErrDuplicate)

	existing, err := repo.GetByFilePath(ctx, "/papers/transformer.pdf")
	require.NoError(t, err)
	require.Equal(t, first, existing.ID)

	papers, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, papers, 1)
}

func TestPaperGetMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPaperRepo(db)

	_, err := repo.GetByID(ctx, 12345)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByFilePath(ctx, "/nope.pdf")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, repo.Delete(ctx, 12345), ErrNotFound)
	require.ErrorIs(t, repo.UpdateSummary(ctx, 12345, "x"), ErrNotFound)
}

func TestPaperSummaryUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPaperRepo(db)
	id := insertTestPaper(t, db, "/papers/a.pdf")

	require.NoError(t, repo.UpdateSummary(ctx, id, "A model built on attention."))
	p, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.True(t, p.IsSummarized)
	require.Equal(t, "A model built on attention.", p.SummaryText)
}

func TestChunkRoundTripAndOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := insertTestPaper(t, db, "/papers/a.pdf")
	chunks := NewChunkRepo(db)

	require.NoError(t, chunks.InsertBatch(ctx, []models.Chunk{
		{PaperID: id, SectionTitle: "Page 2 Chunk 1", Content: "second page", PageNumber: 2, Embedding: []float32{1, 0}},
		{PaperID: id, SectionTitle: "Page 1 Chunk 1", Content: "first page", PageNumber: 1, Embedding: []float32{0.5, 0.25}},
		{PaperID: id, SectionTitle: "Page 1 Chunk 2", Content: "first page again", PageNumber: 1},
	}))

	got, err := chunks.ListByPaper(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "Page 1 Chunk 1", got[0].SectionTitle)
	require.Equal(t, "Page 1 Chunk 2", got[1].SectionTitle)
	require.Equal(t, "Page 2 Chunk 1", got[2].SectionTitle)
	require.Equal(t, []float32{0.5, 0.25}, got[0].Embedding)
	require.Nil(t, got[1].Embedding)
}

func TestListEmbeddedSkipsNullEmbeddings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := insertTestPaper(t, db, "/papers/a.pdf")
	chunks := NewChunkRepo(db)

	require.NoError(t, chunks.InsertBatch(ctx, []models.Chunk{
		{PaperID: id, Content: "embedded", PageNumber: 1, Embedding: []float32{1, 2, 3}},
		{PaperID: id, Content: "not embedded", PageNumber: 1},
	}))

	embedded, err := chunks.ListEmbedded(ctx)
	require.NoError(t, err)
	require.Len(t, embedded, 1)
	require.Equal(t, "embedded", embedded[0].Chunk.Content)
	require.Equal(t, "Attention Is All You Need", embedded[0].PaperTitle)
}

func TestChunkInsertForMissingPaper(t *testing.T) {
	db := newTestDB(t)
	err := NewChunkRepo(db).InsertBatch(context.Background(), []models.Chunk{
		{PaperID: 999, Content: "orphan", PageNumber: 1},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTagEnsureAttachDetach(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := insertTestPaper(t, db, "/papers/a.pdf")
	tags := NewTagRepo(db)

	tag, err := tags.Ensure(ctx, "transformers")
	require.NoError(t, err)
	again, err := tags.Ensure(ctx, "transformers")
	require.NoError(t, err)
	require.Equal(t, tag.ID, again.ID)

	require.NoError(t, tags.Attach(ctx, id, tag.ID))
	require.NoError(t, tags.Attach(ctx, id, tag.ID)) // idempotent

	list, err := tags.ListForPaper(ctx, id)
	require.NoError(t, err)
	require.Len(t, list, 1)

	byTag, err := tags.PapersByTag(ctx, "transformers")
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	require.Equal(t, id, byTag[0].ID)

	require.NoError(t, tags.Detach(ctx, id, tag.ID))
	require.ErrorIs(t, tags.Detach(ctx, id, tag.ID), ErrNotFound)

	// Detaching never deletes the shared tag itself.
	_, err = tags.GetByName(ctx, "transformers")
	require.NoError(t, err)
}

func TestCascadeDeleteRemovesAllDependents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	papers := NewPaperRepo(db)
	chunks := NewChunkRepo(db)
	tags := NewTagRepo(db)
	refs := NewReferenceRepo(db)

	id := insertTestPaper(t, db, "/papers/a.pdf")

	batch := make([]models.Chunk, 0, 4)
	for i := 0; i < 4; i++ {
		batch = append(batch, models.Chunk{PaperID: id, Content: "c", PageNumber: i + 1, Embedding: []float32{float32(i)}})
	}
	require.NoError(t, chunks.InsertBatch(ctx, batch))

	for _, name := range []string{"nlp", "attention"} {
		tag, err := tags.Ensure(ctx, name)
		require.NoError(t, err)
		require.NoError(t, tags.Attach(ctx, id, tag.ID))
	}
	for i := 0; i < 3; i++ {
		_, err := refs.Insert(ctx, models.Reference{CitingPaperID: id, CitedTitle: "ref", CitedYear: 2000 + i})
		require.NoError(t, err)
	}

	require.NoError(t, papers.Delete(ctx, id))

	_, err := papers.GetByID(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	remaining, err := chunks.ListByPaper(ctx, id)
	require.NoError(t, err)
	require.Empty(t, remaining)

	tagList, err := tags.ListForPaper(ctx, id)
	require.NoError(t, err)
	require.Empty(t, tagList)

	refList, err := refs.ListForPaper(ctx, id)
	require.NoError(t, err)
	require.Empty(t, refList)

	// Tags themselves survive the cascade.
	all, err := tags.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestReferenceInLibraryFlag(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	id := insertTestPaper(t, db, "/papers/a.pdf")
	refs := NewReferenceRepo(db)

	refID, err := refs.Insert(ctx, models.Reference{CitingPaperID: id, CitedTitle: "BERT", CitedYear: 2019})
	require.NoError(t, err)

	require.NoError(t, refs.SetInLibrary(ctx, refID, true))
	list, err := refs.ListForPaper(ctx, id)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].IsInLibrary)

	require.ErrorIs(t, refs.SetInLibrary(ctx, 999, true), ErrNotFound)
}
