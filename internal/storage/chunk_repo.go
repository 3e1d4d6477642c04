package storage

import (
	"context"
	"fmt"

	"paperbase/internal/models"
	"paperbase/internal/vector"
)

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// EmbeddedChunk is a scorable chunk joined with its owning paper's title.
type EmbeddedChunk struct {
	Chunk      models.Chunk
	PaperTitle string
}

// InsertBatch stores a paper's chunks in one transaction, preserving the
// given order. Chunks with a nil embedding are stored with a NULL blob.
func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chunks (paper_id, section_title, content, page_number, embedding)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		var blob []byte
		if c.Embedding != nil {
			blob = vector.Encode(c.Embedding)
		}
		if _, err := stmt.ExecContext(ctx, c.PaperID, c.SectionTitle, c.Content, c.PageNumber, blob); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("insert chunk for paper %d: %w", c.PaperID, ErrNotFound)
			}
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

// ListByPaper returns a paper's chunks in page order, then insertion order.
func (r *ChunkRepo) ListByPaper(ctx context.Context, paperID int64) ([]models.Chunk, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
SELECT id, paper_id, COALESCE(section_title,''), content, COALESCE(page_number,0), embedding
FROM chunks
WHERE paper_id = ?
ORDER BY page_number ASC, id ASC`, paperID)
	if err != nil {
		return nil, fmt.Errorf("list chunks by paper: %w", err)
	}
	defer rows.Close()

	out := make([]models.Chunk, 0, 64)
	for rows.Next() {
		var c models.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.PaperID, &c.SectionTitle, &c.Content, &c.PageNumber, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if len(blob) > 0 {
			vec, err := vector.Decode(blob)
			if err != nil {
				return nil, fmt.Errorf("decode chunk %d embedding: %w", c.ID, err)
			}
			c.Embedding = vec
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

// ListEmbedded loads every chunk in the corpus that has an embedding, joined
// with its paper title. This is the full scan the ranker works from; chunks
// with a NULL embedding never appear here.
func (r *ChunkRepo) ListEmbedded(ctx context.Context) ([]EmbeddedChunk, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
SELECT c.id, c.paper_id, COALESCE(c.section_title,''), c.content, COALESCE(c.page_number,0), c.embedding,
       p.title
FROM chunks c
JOIN papers p ON p.id = c.paper_id
WHERE c.embedding IS NOT NULL
ORDER BY c.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list embedded chunks: %w", err)
	}
	defer rows.Close()

	out := make([]EmbeddedChunk, 0, 256)
	for rows.Next() {
		var ec EmbeddedChunk
		var blob []byte
		if err := rows.Scan(&ec.Chunk.ID, &ec.Chunk.PaperID, &ec.Chunk.SectionTitle, &ec.Chunk.Content,
			&ec.Chunk.PageNumber, &blob, &ec.PaperTitle); err != nil {
			return nil, fmt.Errorf("scan embedded chunk: %w", err)
		}
		vec, err := vector.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("decode chunk %d embedding: %w", ec.Chunk.ID, err)
		}
		ec.Chunk.Embedding = vec
		out = append(out, ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embedded chunks: %w", err)
	}
	return out, nil
}

func (r *ChunkRepo) CountByPaper(ctx context.Context, paperID int64) (int, error) {
	var n int
	err := r.db.SQL.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE paper_id = ?`, paperID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
