package storage

import (
	"context"
	"fmt"

	"paperbase/internal/models"
)

type ReferenceRepo struct {
	db *DB
}

func NewReferenceRepo(db *DB) *ReferenceRepo {
	return &ReferenceRepo{db: db}
}

func (r *ReferenceRepo) Insert(ctx context.Context, ref models.Reference) (int64, error) {
	res, err := r.db.SQL.ExecContext(ctx, `
INSERT INTO "references" (citing_paper_id, cited_title, cited_authors, cited_year, cited_doi, cited_url, is_in_library)
VALUES (?, NULLIF(?,''), NULLIF(?,''), ?, NULLIF(?,''), NULLIF(?,''), ?)`,
		ref.CitingPaperID, ref.CitedTitle, ref.CitedAuthors, ref.CitedYear, ref.CitedDOI, ref.CitedURL, boolToInt(ref.IsInLibrary),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("insert reference for paper %d: %w", ref.CitingPaperID, ErrNotFound)
		}
		return 0, fmt.Errorf("insert reference: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reference insert id: %w", err)
	}
	return id, nil
}

func (r *ReferenceRepo) ListForPaper(ctx context.Context, citingPaperID int64) ([]models.Reference, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
SELECT id, citing_paper_id, COALESCE(cited_title,''), COALESCE(cited_authors,''), COALESCE(cited_year,0),
       COALESCE(cited_doi,''), COALESCE(cited_url,''), is_in_library
FROM "references"
WHERE citing_paper_id = ?
ORDER BY cited_title ASC`, citingPaperID)
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer rows.Close()

	out := make([]models.Reference, 0)
	for rows.Next() {
		var ref models.Reference
		var inLib int
		if err := rows.Scan(&ref.ID, &ref.CitingPaperID, &ref.CitedTitle, &ref.CitedAuthors, &ref.CitedYear,
			&ref.CitedDOI, &ref.CitedURL, &inLib); err != nil {
			return nil, fmt.Errorf("scan reference: %w", err)
		}
		ref.IsInLibrary = inLib != 0
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}
	return out, nil
}

// SetInLibrary marks whether the cited work is itself present in the library.
func (r *ReferenceRepo) SetInLibrary(ctx context.Context, refID int64, inLibrary bool) error {
	res, err := r.db.SQL.ExecContext(ctx,
		`UPDATE "references" SET is_in_library = ? WHERE id = ?`, boolToInt(inLibrary), refID)
	if err != nil {
		return fmt.Errorf("update reference: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reference rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reference %d: %w", refID, ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
