package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"

	_ "modernc.org/sqlite"

	"paperbase/internal/util"
)

const schema = `
CREATE TABLE IF NOT EXISTS papers (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    title            TEXT NOT NULL,
    authors          TEXT,
    publication_year INTEGER,
    abstract         TEXT,
    file_path        TEXT NOT NULL UNIQUE,
    added_date       TEXT NOT NULL,
    doi              TEXT,
    url              TEXT,
    summary_text     TEXT,
    is_summarized    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chunks (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    paper_id      INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
    section_title TEXT,
    content       TEXT NOT NULL,
    page_number   INTEGER,
    embedding     BLOB
);
CREATE INDEX IF NOT EXISTS idx_chunks_paper ON chunks(paper_id);

CREATE TABLE IF NOT EXISTS tags (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS paper_tags (
    paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
    tag_id   INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    UNIQUE(paper_id, tag_id)
);

CREATE TABLE IF NOT EXISTS "references" (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    citing_paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
    cited_title     TEXT,
    cited_authors   TEXT,
    cited_year      INTEGER,
    cited_doi       TEXT,
    cited_url       TEXT,
    is_in_library   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_references_citing ON "references"(citing_paper_id);
`

type DB struct {
	SQL *sql.DB
}

// Open creates (if needed) the database directory and file under dir/name and
// ensures the schema. Foreign keys must be enabled per connection for the
// cascade deletes to fire.
func Open(ctx context.Context, dir, name string) (*DB, error) {
	if err := util.EnsureDir(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name)
	dsn := "file:" + url.PathEscape(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return openDSN(ctx, dsn, 0)
}

// OpenMemory opens a private in-memory database, used by tests. The pool is
// capped at one connection so every caller sees the same database.
func OpenMemory(ctx context.Context) (*DB, error) {
	return openDSN(ctx, "file::memory:?_pragma=foreign_keys(1)", 1)
}

func openDSN(ctx context.Context, dsn string, maxConns int) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{SQL: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.SQL == nil {
		return nil
	}
	return d.SQL.Close()
}
