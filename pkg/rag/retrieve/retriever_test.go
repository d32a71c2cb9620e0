package retrieve

import (
	"context"
	"errors"
	"testing"

	"coax-rag-be/internal/model"
	"coax-rag-be/internal/pkg/logger"
	"coax-rag-be/internal/repository"
	"coax-rag-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type fakeEmbedder struct {
	lastText string
	err      error
}

func (f *fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

type fakeRepo struct {
	scored    []*repository.ScoredPassage
	err       error
	lastLimit int
}

func (f *fakeRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*repository.ScoredPassage, error) {
	f.lastLimit = limit
	return f.scored, f.err
}

func (f *fakeRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(f.scored)), nil
}

func (f *fakeRepo) Create(ctx context.Context, passages []*model.KnowledgePassage) error {
	return nil
}

func (f *fakeRepo) DeleteBySection(ctx context.Context, section string) error {
	return nil
}

func scoredPassage(doc, section string, score float64) *repository.ScoredPassage {
	return &repository.ScoredPassage{
		Passage: &model.KnowledgePassage{
			Id:       uuid.New(),
			Document: doc,
			Section:  section,
			Metadata: datatypes.JSONMap{"tags": "effekt", "chunk": float64(2)},
		},
		Similarity: score,
	}
}

func TestRetrievePreservesOrder(t *testing.T) {
	repo := &fakeRepo{scored: []*repository.ScoredPassage{
		scoredPassage("COAX varmer vann direkte.", "produkter", 0.91),
		scoredPassage("Ingen lagringstank trengs.", "fordeler", 0.84),
		scoredPassage("Montering gjøres av elektriker.", "installasjon", 0.71),
	}}
	r := NewRetriever(&fakeEmbedder{}, repo, logger.NoopLogger{})

	got, err := r.Retrieve(context.Background(), "fordeler med COAX", 5, nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 5, repo.lastLimit)
	assert.Equal(t, "COAX varmer vann direkte.", got[0].Text)
	assert.Equal(t, 0.91, *got[0].Score)
	assert.Equal(t, "fordeler", got[1].Source["section"])
	assert.Equal(t, "effekt", got[0].Source["tags"])
}

func TestRetrieveMinScoreTruncates(t *testing.T) {
	repo := &fakeRepo{scored: []*repository.ScoredPassage{
		scoredPassage("a", "s", 0.9),
		scoredPassage("b", "s", 0.72),
		scoredPassage("c", "s", 0.4),
	}}
	r := NewRetriever(&fakeEmbedder{}, repo, logger.NoopLogger{})

	cutoff := 0.7
	got, err := r.Retrieve(context.Background(), "q", 3, &cutoff)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "b", got[1].Text)
}

func TestRetrieveNilMinScoreKeepsNegativeSimilarity(t *testing.T) {
	repo := &fakeRepo{scored: []*repository.ScoredPassage{
		scoredPassage("a", "s", 0.2),
		scoredPassage("b", "s", -0.3),
	}}
	r := NewRetriever(&fakeEmbedder{}, repo, logger.NoopLogger{})

	// A disabled cutoff means no filtering at all, negative scores included.
	got, err := r.Retrieve(context.Background(), "q", 5, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, -0.3, *got[1].Score)
}

func TestRetrieveEmptyResultIsNotError(t *testing.T) {
	repo := &fakeRepo{scored: nil}
	r := NewRetriever(&fakeEmbedder{}, repo, logger.NoopLogger{})

	got, err := r.Retrieve(context.Background(), "utenfor tema", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{err: errors.New("api down")}, &fakeRepo{}, logger.NoopLogger{})

	_, err := r.Retrieve(context.Background(), "q", 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding generation failed")
}

func TestRetrieveSearchFailure(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeRepo{err: errors.New("db unavailable")}, logger.NoopLogger{})

	_, err := r.Retrieve(context.Background(), "q", 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector search failed")
}
