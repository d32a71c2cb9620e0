// Package retrieve runs similarity search against the knowledge index and
// maps the results into provider-agnostic passages.
package retrieve

import (
	"context"
	"fmt"

	"coax-rag-be/internal/pkg/logger"
	"coax-rag-be/internal/repository"
	"coax-rag-be/pkg/embedding"
	"coax-rag-be/pkg/store"
)

// Retriever embeds a query and searches the vector index.
type Retriever struct {
	embeddingProvider embedding.EmbeddingProvider
	passages          repository.PassageRepository
	logger            logger.ILogger
}

func NewRetriever(embeddingProvider embedding.EmbeddingProvider, passages repository.PassageRepository, log logger.ILogger) *Retriever {
	return &Retriever{
		embeddingProvider: embeddingProvider,
		passages:          passages,
		logger:            log,
	}
}

// Retrieve returns the top-k passages most similar to the query, descending
// by similarity. When minScore is set, passages below the cutoff are dropped
// post-hoc; filtering only truncates the already-sorted sequence, it never
// re-ranks. An empty result is a valid outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, minScore *float64) ([]store.Passage, error) {
	embeddingRes, err := r.embeddingProvider.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	// Cutoff filtering happens in application logic below, so the search
	// itself runs unfiltered.
	scored, err := r.passages.SearchSimilarWithScore(ctx, embeddingRes.Embedding.Values, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]store.Passage, 0, len(scored))
	for _, res := range scored {
		if minScore != nil && res.Similarity < *minScore {
			continue
		}
		score := res.Similarity
		results = append(results, store.Passage{
			ID:     res.Passage.Id.String(),
			Text:   res.Passage.Document,
			Score:  &score,
			Source: sourceMetadata(res),
		})
	}

	r.logger.Info("retrieve", "similarity search complete", map[string]interface{}{
		"query":    query,
		"raw_hits": len(scored),
		"kept":     len(results),
	})

	return results, nil
}

func sourceMetadata(res *repository.ScoredPassage) map[string]string {
	source := make(map[string]string)
	if res.Passage.Section != "" {
		source["section"] = res.Passage.Section
	}
	for key, value := range res.Passage.Metadata {
		if s, ok := value.(string); ok {
			source[key] = s
		}
	}
	return source
}
