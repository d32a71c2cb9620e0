// Package answer turns a condensed query plus retrieved passages into a
// grounded response. The persona prompt constrains the model to the supplied
// context and defines two refusal classes: off-domain questions and
// in-domain questions the context cannot support.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coax-rag-be/internal/pkg/logger"
	"coax-rag-be/pkg/llm"
	"coax-rag-be/pkg/store"
)

// Fixed refusal responses. The prompt instructs the model to answer with
// these verbatim; callers can also compare against them.
const (
	OffDomainRefusal = "Beklager, jeg kan kun svare på spørsmål om COAX varmtvannsberedere."
	NoContextRefusal = "Beklager, jeg kan ikke svare på dette spørsmålet basert på tilgjengelig informasjon."
)

const personaPrompt = `Du er Flux, den digitale assistenten for COAX AS.
COAX utvikler og selger elektriske vannvarmere som varmer vann direkte på forespørsel uten lagringstank.
Du skal kun svare på spørsmål relatert til COAX varmtvannsberedere, deres funksjoner, installasjon, tekniske spesifikasjoner eller bruk (f.eks. i boliger, hytter eller industribygg).
Bruk informasjonen i konteksten nedenfor, som er på norsk, og svar på norsk.
Du kan svare på høflige introduksjonsspørsmål som "hei", "hvem er du" og "hva gjør du" ut fra din egen rolle.
Utover din egen identitet skal du ikke bruke kunnskap som ikke finnes i konteksten.

Hvis spørsmålet er utenfor temaet COAX varmtvannsberedere, svar:
"` + OffDomainRefusal + `"

Hvis konteksten ikke inneholder relevant informasjon, svar:
"` + NoContextRefusal + `"`

// Generator produces grounded answers from retrieved context.
type Generator struct {
	llmProvider llm.LLMProvider
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      logger.ILogger
}

func NewGenerator(llmProvider llm.LLMProvider, temperature float64, maxTokens int, timeout time.Duration, log logger.ILogger) *Generator {
	if maxTokens <= 0 {
		maxTokens = 300
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{
		llmProvider: llmProvider,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
		logger:      log,
	}
}

// buildPrompt assembles the generation request in fixed order: persona,
// concatenated context (may be empty), query.
func buildPrompt(query string, passages []store.Passage) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	var b strings.Builder
	b.WriteString(personaPrompt)
	b.WriteString("\n\nKontekstinformasjon fra dokumenter:\n---------------------\n")
	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString("\n---------------------\n\nBrukermelding:\n")
	b.WriteString(query)
	b.WriteString("\n\nSvar:")
	return b.String()
}

// Answer generates a single-shot grounded response. Empty generated content
// on the success path is an error, never an empty message.
func (g *Generator) Answer(ctx context.Context, query string, passages []store.Passage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	content, err := g.llmProvider.Generate(ctx, buildPrompt(query, passages),
		llm.WithTemperature(g.temperature),
		llm.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("generate answer: model returned empty content")
	}

	g.logger.Info("answer", "generated grounded answer", map[string]interface{}{
		"passages":       len(passages),
		"content_length": len(content),
	})

	return content, nil
}

// AnswerStream generates the grounded response as a token stream. The stream
// is finite and single-pass; closing it cancels the generation timeout.
func (g *Generator) AnswerStream(ctx context.Context, query string, passages []store.Passage) (llm.TokenStream, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)

	stream, err := g.llmProvider.GenerateStream(ctx, buildPrompt(query, passages),
		llm.WithTemperature(g.temperature),
		llm.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("generate answer stream: %w", err)
	}

	return &timedStream{inner: stream, cancel: cancel}, nil
}

// timedStream ties the generation timeout to the stream's lifetime.
type timedStream struct {
	inner  llm.TokenStream
	cancel context.CancelFunc
}

func (s *timedStream) Recv() (string, error) {
	return s.inner.Recv()
}

func (s *timedStream) Close() error {
	s.cancel()
	return s.inner.Close()
}
