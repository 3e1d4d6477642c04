package models

import "time"

type Paper struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Authors         string    `json:"authors,omitempty"`
	PublicationYear int       `json:"publication_year,omitempty"`
	Abstract        string    `json:"abstract,omitempty"`
	FilePath        string    `json:"file_path"`
	AddedDate       time.Time `json:"added_date"`
	DOI             string    `json:"doi,omitempty"`
	URL             string    `json:"url,omitempty"`
	SummaryText     string    `json:"summary_text,omitempty"`
	IsSummarized    bool      `json:"is_summarized"`
}

// Chunk is one bounded slice of a paper's extracted text. Embedding is nil
// when the chunk was stored without a vector (embedding failure at ingest).
type Chunk struct {
	ID           int64     `json:"id"`
	PaperID      int64     `json:"paper_id"`
	SectionTitle string    `json:"section_title"`
	Content      string    `json:"content"`
	PageNumber   int       `json:"page_number"`
	Embedding    []float32 `json:"-"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Reference struct {
	ID            int64  `json:"id"`
	CitingPaperID int64  `json:"citing_paper_id"`
	CitedTitle    string `json:"cited_title,omitempty"`
	CitedAuthors  string `json:"cited_authors,omitempty"`
	CitedYear     int    `json:"cited_year,omitempty"`
	CitedDOI      string `json:"cited_doi,omitempty"`
	CitedURL      string `json:"cited_url,omitempty"`
	IsInLibrary   bool   `json:"is_in_library"`
}

// RetrievedChunk is a ranked search hit enriched with the owning paper title.
type RetrievedChunk struct {
	Chunk
	PaperTitle string  `json:"paper_title"`
	Score      float64 `json:"score"`
}

type QueryResult struct {
	QueryID   string           `json:"query_id"`
	Query     string           `json:"query"`
	Answer    string           `json:"answer"`
	Retrieved []RetrievedChunk `json:"retrieved_sections"`
}

type PaperDetails struct {
	Paper
	Tags       []Tag       `json:"tags"`
	References []Reference `json:"references"`
}
