package generation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"paperbase/internal/models"
	"paperbase/internal/providers"
)

// Fixed answers returned in place of an error. Query answering degrades to
// these strings rather than failing the caller.
const (
	NoContextAnswer        = "I couldn't find any relevant information in your papers to answer that question."
	GenerationFailedAnswer = "I apologize, but I encountered an error while trying to generate an answer."
)

const (
	answerMaxTokens   = 500
	answerTemperature = 0.2
)

// Generator turns a question plus retrieved chunks into a grounded answer.
type Generator struct {
	llm providers.LLMProvider
	log *zap.Logger
}

func NewGenerator(llm providers.LLMProvider, log *zap.Logger) *Generator {
	return &Generator{llm: llm, log: log}
}

// Synthesize answers the question from the retrieved chunks only. It never
// returns an error: with no context it answers NoContextAnswer without
// touching the provider, and a provider failure yields
// GenerationFailedAnswer.
func (g *Generator) Synthesize(ctx context.Context, question string, retrieved []models.RetrievedChunk) string {
	if len(retrieved) == 0 {
		return NoContextAnswer
	}

	prompt := buildPrompt(question, retrieved)
	resp, info, err := g.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   "answer",
		Prompt:      prompt,
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		g.log.Warn("answer generation failed",
			zap.String("provider", info.Name),
			zap.String("model", info.Model),
			zap.Error(err))
		return GenerationFailedAnswer
	}
	answer := strings.TrimSpace(resp.Text)
	if answer == "" {
		g.log.Warn("answer generation returned empty text",
			zap.String("provider", info.Name))
		return GenerationFailedAnswer
	}
	return answer
}

func buildPrompt(question string, retrieved []models.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("You are a research assistant answering questions about a personal paper library.\n")
	b.WriteString("Answer the question using ONLY the documents below. ")
	b.WriteString("If they do not contain the answer, say so. Cite papers by title.\n\n")

	for i, rc := range retrieved {
		fmt.Fprintf(&b, "--- Document %d ---\n", i+1)
		fmt.Fprintf(&b, "Paper: %s\n", rc.PaperTitle)
		if rc.SectionTitle != "" {
			fmt.Fprintf(&b, "Section: %s\n", rc.SectionTitle)
		}
		b.WriteString(rc.Content)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}
