package repository

import (
	"context"

	"coax-rag-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// ScoredPassage wraps a KnowledgePassage with its similarity score
type ScoredPassage struct {
	Passage    *model.KnowledgePassage
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type PassageRepository interface {
	// SearchSimilarWithScore returns the top-k passages nearest to the query
	// embedding, descending by cosine similarity. No score filtering happens
	// here; callers apply their own cutoff.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*ScoredPassage, error)
	Count(ctx context.Context) (int64, error)
	// Create inserts passages in one batch. Used by the offline ingestion
	// command only.
	Create(ctx context.Context, passages []*model.KnowledgePassage) error
	// DeleteBySection clears a section before re-ingesting it.
	DeleteBySection(ctx context.Context, section string) error
}

type passageRepository struct {
	db *gorm.DB
}

func NewPassageRepository(db *gorm.DB) PassageRepository {
	return &passageRepository{db: db}
}

func (r *passageRepository) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*ScoredPassage, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector is: 1 - cosine_similarity
	// So we compute: 1 - (embedding_value <=> query_vector) = cosine_similarity
	type result struct {
		model.KnowledgePassage
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("knowledge_passages").
		Select("knowledge_passages.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*ScoredPassage, len(results))
	for i, res := range results {
		passage := res.KnowledgePassage
		scored[i] = &ScoredPassage{
			Passage:    &passage,
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (r *passageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.KnowledgePassage{}).Count(&count).Error
	return count, err
}

func (r *passageRepository) Create(ctx context.Context, passages []*model.KnowledgePassage) error {
	if len(passages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(passages, 100).Error
}

func (r *passageRepository) DeleteBySection(ctx context.Context, section string) error {
	return r.db.WithContext(ctx).
		Where("section = ?", section).
		Delete(&model.KnowledgePassage{}).Error
}
