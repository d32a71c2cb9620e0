package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// KnowledgePassage is one retrievable chunk of the knowledge base. Rows are
// written by the offline ingestion pipeline and read-only at request time.
type KnowledgePassage struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Document       string            `gorm:"type:text"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector(768)"`
	Section        string            `gorm:"type:text;index"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"` // tags, source file, keywords
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime"`
}

func (KnowledgePassage) TableName() string {
	return "knowledge_passages"
}
