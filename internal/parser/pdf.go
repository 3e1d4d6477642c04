package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"paperbase/internal/util"
)

// ErrExtraction marks a source document that cannot be read or parsed.
// Ingestion aborts for that file without creating a paper.
var ErrExtraction = errors.New("text extraction failed")

// Page is one page of extracted text, 1-indexed. Text may be empty for pages
// the extractor cannot render.
type Page struct {
	Number int
	Text   string
}

// FileMetadata carries the fields read from the PDF Info dictionary. Dates
// keep the raw provider format (commonly "D:YYYYMMDD...").
type FileMetadata struct {
	Title        string
	Author       string
	CreationDate string
}

// PDFParser extracts per-page plain text and document metadata.
type PDFParser struct{}

func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// ExtractPages returns the plain text of every page in page order. The
// underlying reader panics on some malformed cross-reference tables, so the
// panic is converted into the extraction error the caller expects.
func (p *PDFParser) ExtractPages(path string) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parse pdf %s: %v: %w", path, r, ErrExtraction)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %v: %w", path, err, ErrExtraction)
	}
	defer f.Close()

	total := r.NumPage()
	pages = make([]Page, 0, total)
	empty := true
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page is not fatal; it just yields no chunks.
			pages = append(pages, Page{Number: i})
			continue
		}
		text = util.SanitizeText(text)
		if text != "" {
			empty = false
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	if empty {
		return nil, fmt.Errorf("no extractable text in %s: %w", path, ErrExtraction)
	}
	return pages, nil
}

// Metadata reads the Info dictionary. Missing fields come back empty; only a
// completely unreadable file is an error.
func (p *PDFParser) Metadata(path string) (meta FileMetadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta = FileMetadata{}
			err = fmt.Errorf("parse pdf metadata %s: %v: %w", path, r, ErrExtraction)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("open pdf %s: %v: %w", path, err, ErrExtraction)
	}
	defer f.Close()

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return FileMetadata{}, nil
	}
	return FileMetadata{
		Title:        stringValue(info.Key("Title")),
		Author:       stringValue(info.Key("Author")),
		CreationDate: stringValue(info.Key("CreationDate")),
	}, nil
}

func stringValue(v pdf.Value) string {
	if v.Kind() != pdf.String {
		return ""
	}
	return v.RawString()
}

// FirstPagesText concatenates the text of the first n pages, the slice of the
// document metadata extraction prompts over.
func FirstPagesText(pages []Page, n int) string {
	if n <= 0 || n > len(pages) {
		n = len(pages)
	}
	var b strings.Builder
	for _, pg := range pages[:n] {
		if pg.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pg.Text)
	}
	return b.String()
}

// YearFromCreationDate parses the publication year out of a PDF CreationDate
// value. The "D:YYYYMMDD..." form is provider-specific and not guaranteed, so
// anything that does not look exactly like it is rejected.
func YearFromCreationDate(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "D:") || len(raw) < 6 {
		return 0, false
	}
	year, err := strconv.Atoi(raw[2:6])
	if err != nil || year < 1000 || year > 2999 {
		return 0, false
	}
	return year, true
}
