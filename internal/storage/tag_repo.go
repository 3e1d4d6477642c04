package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paperbase/internal/models"
)

type TagRepo struct {
	db *DB
}

func NewTagRepo(db *DB) *TagRepo {
	return &TagRepo{db: db}
}

// Ensure returns the tag named name, creating it if needed. Tags are shared
// across papers.
func (r *TagRepo) Ensure(ctx context.Context, name string) (models.Tag, error) {
	tag, err := r.GetByName(ctx, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Tag{}, err
	}
	res, err := r.db.SQL.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race on the unique name, the row exists now.
			return r.GetByName(ctx, name)
		}
		return models.Tag{}, fmt.Errorf("insert tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Tag{}, fmt.Errorf("tag insert id: %w", err)
	}
	return models.Tag{ID: id, Name: name}, nil
}

func (r *TagRepo) GetByName(ctx context.Context, name string) (models.Tag, error) {
	var t models.Tag
	err := r.db.SQL.QueryRowContext(ctx, `SELECT id, name FROM tags WHERE name = ?`, name).Scan(&t.ID, &t.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Tag{}, fmt.Errorf("tag %q: %w", name, ErrNotFound)
		}
		return models.Tag{}, fmt.Errorf("get tag: %w", err)
	}
	return t, nil
}

// Attach associates a tag with a paper. Attaching twice is a no-op.
func (r *TagRepo) Attach(ctx context.Context, paperID, tagID int64) error {
	_, err := r.db.SQL.ExecContext(ctx,
		`INSERT OR IGNORE INTO paper_tags (paper_id, tag_id) VALUES (?, ?)`, paperID, tagID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("attach tag %d to paper %d: %w", tagID, paperID, ErrNotFound)
		}
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

func (r *TagRepo) Detach(ctx context.Context, paperID, tagID int64) error {
	res, err := r.db.SQL.ExecContext(ctx,
		`DELETE FROM paper_tags WHERE paper_id = ? AND tag_id = ?`, paperID, tagID)
	if err != nil {
		return fmt.Errorf("detach tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("detach tag rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("paper %d has no tag %d: %w", paperID, tagID, ErrNotFound)
	}
	return nil
}

func (r *TagRepo) ListForPaper(ctx context.Context, paperID int64) ([]models.Tag, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
SELECT t.id, t.name
FROM tags t
JOIN paper_tags pt ON pt.tag_id = t.id
WHERE pt.paper_id = ?
ORDER BY t.name ASC`, paperID)
	if err != nil {
		return nil, fmt.Errorf("list tags for paper: %w", err)
	}
	defer rows.Close()

	out := make([]models.Tag, 0)
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return out, nil
}

func (r *TagRepo) ListAll(ctx context.Context) ([]models.Tag, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	out := make([]models.Tag, 0)
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}
	return out, nil
}

// PapersByTag returns every paper carrying the named tag.
func (r *TagRepo) PapersByTag(ctx context.Context, name string) ([]models.Paper, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `
SELECT p.id, p.title, COALESCE(p.authors,''), COALESCE(p.publication_year,0), COALESCE(p.abstract,''),
       p.file_path, p.added_date, COALESCE(p.doi,''), COALESCE(p.url,''), COALESCE(p.summary_text,''), p.is_summarized
FROM papers p
JOIN paper_tags pt ON pt.paper_id = p.id
JOIN tags t ON t.id = pt.tag_id
WHERE t.name = ?
ORDER BY p.title ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("list papers by tag: %w", err)
	}
	defer rows.Close()

	out := make([]models.Paper, 0)
	for rows.Next() {
		p, err := scanPaperRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers by tag: %w", err)
	}
	return out, nil
}
