package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"paperbase/internal/providers"
)

// PaperMetadata is what the LLM extracts from a paper's opening pages.
type PaperMetadata struct {
	Title           string `json:"title"`
	Authors         string `json:"authors"`
	Abstract        string `json:"abstract"`
	PublicationYear int    `json:"publication_year"`
}

const metadataPrompt = `Extract bibliographic metadata from the following opening pages of an academic paper.
Respond with a single JSON object and nothing else, using exactly these keys:
{"title": string, "authors": string, "abstract": string, "publication_year": number}
Use an empty string for fields you cannot determine and 0 for an unknown year.

Paper text:
---
%s
---`

// maxMetadataRunes caps how much opening-page text goes into the prompt.
const maxMetadataRunes = 6000

// MetadataExtractor asks the generation provider for structured metadata.
type MetadataExtractor struct {
	llm providers.LLMProvider
}

func NewMetadataExtractor(llm providers.LLMProvider) *MetadataExtractor {
	return &MetadataExtractor{llm: llm}
}

func (m *MetadataExtractor) Extract(ctx context.Context, firstPagesText string) (PaperMetadata, error) {
	text := strings.TrimSpace(firstPagesText)
	if text == "" {
		return PaperMetadata{}, fmt.Errorf("no text to extract metadata from: %w", ErrExtraction)
	}
	// Cap on a rune boundary so the prompt stays valid UTF-8.
	if runes := []rune(text); len(runes) > maxMetadataRunes {
		text = string(runes[:maxMetadataRunes])
	}

	resp, _, err := m.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   "metadata",
		Prompt:      fmt.Sprintf(metadataPrompt, text),
		MaxTokens:   500,
		Temperature: 0,
	})
	if err != nil {
		return PaperMetadata{}, fmt.Errorf("metadata generation: %w", err)
	}

	meta, err := parseMetadataJSON(resp.Text)
	if err != nil {
		return PaperMetadata{}, err
	}
	return meta, nil
}

// parseMetadataJSON tolerates the usual LLM decoration around a JSON object:
// code fences and prose before or after the braces.
func parseMetadataJSON(s string) (PaperMetadata, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return PaperMetadata{}, fmt.Errorf("no JSON object in metadata response: %q", truncateForError(s))
	}
	var meta PaperMetadata
	if err := json.Unmarshal([]byte(s[start:end+1]), &meta); err != nil {
		return PaperMetadata{}, fmt.Errorf("decode metadata response: %w", err)
	}
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Authors = strings.TrimSpace(meta.Authors)
	meta.Abstract = strings.TrimSpace(meta.Abstract)
	return meta, nil
}

func truncateForError(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
