package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"paperbase/internal/models"
)

type PaperRepo struct {
	db *DB
}

func NewPaperRepo(db *DB) *PaperRepo {
	return &PaperRepo{db: db}
}

// Insert stores a new paper and returns its id. A file_path collision yields
// ErrDuplicate so the caller can re-resolve the existing row.
func (r *PaperRepo) Insert(ctx context.Context, p models.Paper) (int64, error) {
	added := p.AddedDate
	if added.IsZero() {
		added = time.Now().UTC()
	}
	res, err := r.db.SQL.ExecContext(ctx, `
INSERT INTO papers (title, authors, publication_year, abstract, file_path, added_date, doi, url)
VALUES (?, NULLIF(?,''), ?, NULLIF(?,''), ?, ?, NULLIF(?,''), NULLIF(?,''))`,
		p.Title, p.Authors, p.PublicationYear, p.Abstract, p.FilePath, added.Format(time.RFC3339), p.DOI, p.URL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert paper %s: %w", p.FilePath, ErrDuplicate)
		}
		return 0, fmt.Errorf("insert paper: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("paper insert id: %w", err)
	}
	return id, nil
}

const paperColumns = `
id, title, COALESCE(authors,''), COALESCE(publication_year,0), COALESCE(abstract,''),
file_path, added_date, COALESCE(doi,''), COALESCE(url,''), COALESCE(summary_text,''), is_summarized`

func (r *PaperRepo) GetByID(ctx context.Context, id int64) (models.Paper, error) {
	row := r.db.SQL.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, id)
	return scanPaper(row)
}

func (r *PaperRepo) GetByFilePath(ctx context.Context, filePath string) (models.Paper, error) {
	row := r.db.SQL.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE file_path = ?`, filePath)
	return scanPaper(row)
}

func (r *PaperRepo) List(ctx context.Context) ([]models.Paper, error) {
	rows, err := r.db.SQL.QueryContext(ctx, `SELECT `+paperColumns+` FROM papers ORDER BY added_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
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
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	return out, nil
}

// UpdateSummary persists the generated summary and flips is_summarized.
func (r *PaperRepo) UpdateSummary(ctx context.Context, id int64, summary string) error {
	res, err := r.db.SQL.ExecContext(ctx,
		`UPDATE papers SET summary_text = ?, is_summarized = 1 WHERE id = ?`, summary, id)
	if err != nil {
		return fmt.Errorf("update paper summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update paper summary rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update summary for paper %d: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes the paper; chunks, tag associations and references go with
// it via the schema's ON DELETE CASCADE.
func (r *PaperRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.SQL.ExecContext(ctx, `DELETE FROM papers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete paper rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete paper %d: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(row *sql.Row) (models.Paper, error) {
	p, err := scanPaperRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Paper{}, ErrNotFound
		}
		return models.Paper{}, err
	}
	return p, nil
}

func scanPaperRow(row rowScanner) (models.Paper, error) {
	var p models.Paper
	var added string
	var summarized int
	if err := row.Scan(&p.ID, &p.Title, &p.Authors, &p.PublicationYear, &p.Abstract,
		&p.FilePath, &added, &p.DOI, &p.URL, &p.SummaryText, &summarized); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Paper{}, err
		}
		return models.Paper{}, fmt.Errorf("scan paper: %w", err)
	}
	p.IsSummarized = summarized != 0
	if t, err := time.Parse(time.RFC3339, added); err == nil {
		p.AddedDate = t
	}
	return p, nil
}
