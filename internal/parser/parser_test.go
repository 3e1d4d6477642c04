package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"paperbase/internal/providers"
)

type stubLLM struct {
	text       string
	err        error
	lastPrompt string
}

func (s *stubLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	s.lastPrompt = req.Prompt
	if s.err != nil {
		return providers.GenerateResponse{}, providers.ProviderInfo{Name: "stub"}, s.err
	}
	return providers.GenerateResponse{Text: s.text}, providers.ProviderInfo{Name: "stub"}, nil
}

func TestYearFromCreationDate(t *testing.T) {
	cases := []struct {
		in   string
		year int
		ok   bool
	}{
		{"D:20230101120000Z", 2023, true},
		{"D:19991231", 1999, true},
		{"D:2023", 2023, true},
		{"20230101", 0, false},
		{"D:20ab", 0, false},
		{"D:0001", 0, false},
		{"D:99990101", 0, false},
		{"", 0, false},
		{"garbage", 0, false},
	}
	for _, c := range cases {
		year, ok := YearFromCreationDate(c.in)
		require.Equal(t, c.ok, ok, "input %q", c.in)
		require.Equal(t, c.year, year, "input %q", c.in)
	}
}

func TestFirstPagesText(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "first"},
		{Number: 2, Text: ""},
		{Number: 3, Text: "third"},
	}
	require.Equal(t, "first\n\nthird", FirstPagesText(pages, 3))
	require.Equal(t, "first", FirstPagesText(pages, 1))
	require.Equal(t, "first\n\nthird", FirstPagesText(pages, 0))
	require.Equal(t, "first\n\nthird", FirstPagesText(pages, 99))
}

func TestExtractPagesMissingFile(t *testing.T) {
	p := NewPDFParser()
	_, err := p.ExtractPages("/definitely/not/here.pdf")
	require.ErrorIs(t, err, ErrExtraction)
}

func TestMetadataExtractorParsesPlainJSON(t *testing.T) {
	ex := NewMetadataExtractor(&stubLLM{text: `{"title":"A Paper","authors":"A. Uthor","abstract":"About things.","publication_year":2021}`})
	meta, err := ex.Extract(context.Background(), "some opening text")
	require.NoError(t, err)
	require.Equal(t, "A Paper", meta.Title)
	require.Equal(t, "A. Uthor", meta.Authors)
	require.Equal(t, 2021, meta.PublicationYear)
}

func TestMetadataExtractorStripsCodeFences(t *testing.T) {
	ex := NewMetadataExtractor(&stubLLM{text: "Here you go:\n```json\n{\"title\":\"Fenced\",\"authors\":\"\",\"abstract\":\"\",\"publication_year\":0}\n```"})
	meta, err := ex.Extract(context.Background(), "text")
	require.NoError(t, err)
	require.Equal(t, "Fenced", meta.Title)
	require.Zero(t, meta.PublicationYear)
}

func TestMetadataExtractorCapsPromptOnRuneBoundary(t *testing.T) {
	stub := &stubLLM{text: `{"title":"Long","authors":"","abstract":"","publication_year":0}`}
	ex := NewMetadataExtractor(stub)

	_, err := ex.Extract(context.Background(), strings.Repeat("é", maxMetadataRunes+500))
	require.NoError(t, err)
	require.True(t, utf8.ValidString(stub.lastPrompt), "capping must not split a rune")
	require.LessOrEqual(t, utf8.RuneCountInString(stub.lastPrompt), maxMetadataRunes+utf8.RuneCountInString(metadataPrompt))
}

func TestMetadataExtractorFailures(t *testing.T) {
	ex := NewMetadataExtractor(&stubLLM{err: errors.New("provider down")})
	_, err := ex.Extract(context.Background(), "text")
	require.Error(t, err)

	ex = NewMetadataExtractor(&stubLLM{text: "not json at all"})
	_, err = ex.Extract(context.Background(), "text")
	require.Error(t, err)

	ex = NewMetadataExtractor(&stubLLM{text: "{}"})
	_, err = ex.Extract(context.Background(), "")
	require.ErrorIs(t, err, ErrExtraction)
}
