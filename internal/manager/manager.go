package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"paperbase/internal/chunker"
	"paperbase/internal/config"
	"paperbase/internal/models"
	"paperbase/internal/parser"
	"paperbase/internal/providers"
	"paperbase/internal/storage"
)

// metadataPageCount is how many leading pages feed bibliographic extraction.
const metadataPageCount = 2

// summaryTruncationMarker closes a summary context that was cut at the
// configured character budget.
const summaryTruncationMarker = "\n\n[...truncated for brevity...]"

const summaryTemperature = 0.5

// TextExtractor pulls page text and file-level metadata out of a PDF.
type TextExtractor interface {
	ExtractPages(path string) ([]parser.Page, error)
	Metadata(path string) (parser.FileMetadata, error)
}

// MetadataExtractor derives bibliographic fields from opening-page text.
type MetadataExtractor interface {
	Extract(ctx context.Context, firstPagesText string) (parser.PaperMetadata, error)
}

// Embedder is the vectorization port used at ingest and query time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever ranks the embedded corpus against a query vector.
type Retriever interface {
	TopK(ctx context.Context, queryVec []float32, k int) ([]models.RetrievedChunk, error)
}

// Generator produces a grounded answer from retrieved chunks.
type Generator interface {
	Synthesize(ctx context.Context, question string, retrieved []models.RetrievedChunk) string
}

// Chunker splits one page of text into bounded pieces. It matches
// chunker.Chunk so tests can substitute a failing splitter.
type Chunker func(pageText string, pageNumber, chunkSize, overlap int) ([]chunker.Piece, error)

// PaperManager coordinates the full paper lifecycle: ingest, summarize,
// query, tagging, references, and deletion. All operations are synchronous.
type PaperManager struct {
	papers     *storage.PaperRepo
	chunks     *storage.ChunkRepo
	tags       *storage.TagRepo
	references *storage.ReferenceRepo

	extractor TextExtractor
	metadata  MetadataExtractor
	embedder  Embedder
	retriever Retriever
	generator Generator
	llm       providers.LLMProvider
	chunk     Chunker

	cfg config.Config
	log *zap.Logger
	now func() time.Time
}

type Deps struct {
	Papers     *storage.PaperRepo
	Chunks     *storage.ChunkRepo
	Tags       *storage.TagRepo
	References *storage.ReferenceRepo
	Extractor  TextExtractor
	Metadata   MetadataExtractor
	Embedder   Embedder
	Retriever  Retriever
	Generator  Generator
	LLM        providers.LLMProvider
	Chunk      Chunker
	Config     config.Config
	Log        *zap.Logger
}

func New(d Deps) *PaperManager {
	return &PaperManager{
		papers:     d.Papers,
		chunks:     d.Chunks,
		tags:       d.Tags,
		references: d.References,
		extractor:  d.Extractor,
		metadata:   d.Metadata,
		embedder:   d.Embedder,
		retriever:  d.Retriever,
		generator:  d.Generator,
		llm:        d.LLM,
		chunk:      d.Chunk,
		cfg:        d.Config,
		log:        d.Log,
		now:        time.Now,
	}
}

// Ingest adds the PDF at path to the library. Re-ingesting a path that is
// already stored returns the existing paper untouched, even if the file has
// changed on disk since.
func (m *PaperManager) Ingest(ctx context.Context, path string) (models.Paper, error) {
	existing, err := m.papers.GetByFilePath(ctx, path)
	if err == nil {
		m.log.Info("paper already ingested, returning stored record",
			zap.String("path", path), zap.Int64("paper_id", existing.ID))
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Paper{}, fmt.Errorf("check existing paper: %w", err)
	}

	pages, err := m.extractor.ExtractPages(path)
	if err != nil {
		return models.Paper{}, fmt.Errorf("extract %s: %w", path, err)
	}

	meta, err := m.metadata.Extract(ctx, parser.FirstPagesText(pages, metadataPageCount))
	if err != nil {
		return models.Paper{}, fmt.Errorf("extract metadata for %s: %w", path, err)
	}
	year := m.resolveYear(meta.PublicationYear, path)

	paper := models.Paper{
		Title:           meta.Title,
		Authors:         meta.Authors,
		PublicationYear: year,
		Abstract:        meta.Abstract,
		FilePath:        path,
		AddedDate:       m.now().UTC(),
	}
	id, err := m.papers.Insert(ctx, paper)
	if errors.Is(err, storage.ErrDuplicate) {
		// Lost an insert race with a concurrent ingest of the same path.
		return m.papers.GetByFilePath(ctx, path)
	}
	if err != nil {
		return models.Paper{}, fmt.Errorf("store paper %s: %w", path, err)
	}
	paper.ID = id

	if err := m.storeChunks(ctx, id, pages); err != nil {
		return models.Paper{}, err
	}

	m.log.Info("paper ingested",
		zap.Int64("paper_id", id),
		zap.String("title", paper.Title),
		zap.Int("pages", len(pages)))
	return paper, nil
}

// storeChunks splits every page, embeds the pieces in one batch, and writes
// them. An embedding failure downgrades to NULL-embedding storage so the
// text survives; those chunks are invisible to retrieval until re-ingested.
func (m *PaperManager) storeChunks(ctx context.Context, paperID int64, pages []parser.Page) error {
	var chunks []models.Chunk
	for _, pg := range pages {
		pieces, err := m.chunk(pg.Text, pg.Number, m.cfg.ChunkSize, m.cfg.ChunkOverlap)
		if err != nil {
			return fmt.Errorf("chunk page %d: %w", pg.Number, err)
		}
		for _, p := range pieces {
			chunks = append(chunks, models.Chunk{
				PaperID:      paperID,
				SectionTitle: p.Label,
				Content:      p.Content,
				PageNumber:   p.PageNumber,
			})
		}
	}
	if len(chunks) == 0 {
		m.log.Warn("no chunks produced", zap.Int64("paper_id", paperID))
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		m.log.Warn("embedding failed, storing chunks without vectors",
			zap.Int64("paper_id", paperID), zap.Error(err))
	} else {
		for i := range chunks {
			chunks[i].Embedding = vecs[i]
		}
	}

	if err := m.chunks.InsertBatch(ctx, chunks); err != nil {
		return fmt.Errorf("store chunks for paper %d: %w", paperID, err)
	}
	return nil
}

// resolveYear falls back from the LLM-extracted year to the PDF CreationDate
// and finally to the current year.
func (m *PaperManager) resolveYear(metaYear int, path string) int {
	if metaYear > 0 {
		return metaYear
	}
	fileMeta, err := m.extractor.Metadata(path)
	if err == nil {
		if y, ok := parser.YearFromCreationDate(fileMeta.CreationDate); ok {
			return y
		}
	}
	return m.now().Year()
}

// Summarize returns the paper's summary, generating and caching it on first
// use. Later calls return the stored text without touching the provider.
func (m *PaperManager) Summarize(ctx context.Context, paperID int64) (string, error) {
	paper, err := m.papers.GetByID(ctx, paperID)
	if err != nil {
		return "", fmt.Errorf("summarize paper %d: %w", paperID, err)
	}
	if paper.IsSummarized && paper.SummaryText != "" {
		return paper.SummaryText, nil
	}

	contextText, err := m.summaryContext(ctx, paper)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(
		"Summarize the following research paper in a few concise paragraphs. Cover the problem, the approach, and the key findings.\n\nTitle: %s\n\n%s",
		paper.Title, contextText)
	resp, info, err := m.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   "summary",
		Prompt:      prompt,
		MaxTokens:   m.cfg.Summary.MaxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate summary via %s: %w", info.Name, err)
	}
	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return "", fmt.Errorf("generate summary via %s: %w", info.Name, providers.ErrGeneration)
	}

	if err := m.papers.UpdateSummary(ctx, paperID, summary); err != nil {
		return "", fmt.Errorf("cache summary for paper %d: %w", paperID, err)
	}
	return summary, nil
}

// summaryContext assembles the text the summary is generated from: stored
// chunks first, the abstract when no chunks exist, a placeholder line when
// neither is available. The result is capped at the configured budget.
func (m *PaperManager) summaryContext(ctx context.Context, paper models.Paper) (string, error) {
	chunks, err := m.chunks.ListByPaper(ctx, paper.ID)
	if err != nil {
		return "", fmt.Errorf("load chunks for paper %d: %w", paper.ID, err)
	}

	var contextText string
	switch {
	case len(chunks) > 0:
		parts := make([]string, len(chunks))
		for i, c := range chunks {
			parts[i] = c.Content
		}
		contextText = strings.Join(parts, "\n\n")
	case paper.Abstract != "":
		contextText = paper.Abstract
	default:
		contextText = "(no extracted text is available for this paper)"
	}

	// The budget counts characters, not bytes; cutting mid-rune would hand
	// the provider invalid UTF-8.
	limit := m.cfg.Summary.MaxContextChars
	if runes := []rune(contextText); limit > 0 && len(runes) > limit {
		contextText = string(runes[:limit]) + summaryTruncationMarker
	}
	return contextText, nil
}

// Query answers a natural-language question from the library. Retrieval or
// generation shortfalls degrade to fixed answers inside the generator; only
// infrastructure failures surface as errors.
func (m *PaperManager) Query(ctx context.Context, question string) (models.QueryResult, error) {
	result := models.QueryResult{
		QueryID: uuid.NewString(),
		Query:   question,
	}

	queryVec, err := m.embedder.Embed(ctx, question)
	if err != nil {
		return models.QueryResult{}, fmt.Errorf("embed query: %w", err)
	}
	retrieved, err := m.retriever.TopK(ctx, queryVec, m.cfg.TopK)
	if err != nil {
		return models.QueryResult{}, fmt.Errorf("retrieve context: %w", err)
	}

	result.Retrieved = retrieved
	result.Answer = m.generator.Synthesize(ctx, question, retrieved)

	m.log.Info("query answered",
		zap.String("query_id", result.QueryID),
		zap.Int("retrieved", len(retrieved)))
	return result, nil
}

// Delete removes the paper and, through the schema's cascades, its chunks,
// tag links, and references.
func (m *PaperManager) Delete(ctx context.Context, paperID int64) error {
	if err := m.papers.Delete(ctx, paperID); err != nil {
		return fmt.Errorf("delete paper %d: %w", paperID, err)
	}
	m.log.Info("paper deleted", zap.Int64("paper_id", paperID))
	return nil
}

func (m *PaperManager) List(ctx context.Context) ([]models.Paper, error) {
	return m.papers.List(ctx)
}

// Details returns the paper with its tags and references attached.
func (m *PaperManager) Details(ctx context.Context, paperID int64) (models.PaperDetails, error) {
	paper, err := m.papers.GetByID(ctx, paperID)
	if err != nil {
		return models.PaperDetails{}, fmt.Errorf("load paper %d: %w", paperID, err)
	}
	tags, err := m.tags.ListForPaper(ctx, paperID)
	if err != nil {
		return models.PaperDetails{}, fmt.Errorf("load tags for paper %d: %w", paperID, err)
	}
	refs, err := m.references.ListForPaper(ctx, paperID)
	if err != nil {
		return models.PaperDetails{}, fmt.Errorf("load references for paper %d: %w", paperID, err)
	}
	return models.PaperDetails{Paper: paper, Tags: tags, References: refs}, nil
}

// TagPaper attaches the named tag to the paper, creating the tag on first
// use. Attaching an already-attached tag is a no-op.
func (m *PaperManager) TagPaper(ctx context.Context, paperID int64, name string) (models.Tag, error) {
	tag, err := m.tags.Ensure(ctx, name)
	if err != nil {
		return models.Tag{}, fmt.Errorf("ensure tag %q: %w", name, err)
	}
	if err := m.tags.Attach(ctx, paperID, tag.ID); err != nil {
		return models.Tag{}, fmt.Errorf("tag paper %d with %q: %w", paperID, name, err)
	}
	return tag, nil
}

// UntagPaper removes the named tag from the paper. The tag itself survives
// for reuse on other papers.
func (m *PaperManager) UntagPaper(ctx context.Context, paperID int64, name string) error {
	tag, err := m.tags.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("untag paper %d: %w", paperID, err)
	}
	if err := m.tags.Detach(ctx, paperID, tag.ID); err != nil {
		return fmt.Errorf("untag paper %d: %w", paperID, err)
	}
	return nil
}

func (m *PaperManager) PapersByTag(ctx context.Context, name string) ([]models.Paper, error) {
	return m.tags.PapersByTag(ctx, name)
}

func (m *PaperManager) ListTags(ctx context.Context) ([]models.Tag, error) {
	return m.tags.ListAll(ctx)
}

func (m *PaperManager) AddReference(ctx context.Context, ref models.Reference) (int64, error) {
	id, err := m.references.Insert(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("add reference to paper %d: %w", ref.CitingPaperID, err)
	}
	return id, nil
}

func (m *PaperManager) ListReferences(ctx context.Context, paperID int64) ([]models.Reference, error) {
	return m.references.ListForPaper(ctx, paperID)
}

func (m *PaperManager) MarkReferenceInLibrary(ctx context.Context, refID int64, inLibrary bool) error {
	return m.references.SetInLibrary(ctx, refID, inLibrary)
}
