package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"coax-rag-be/internal/config"
	"coax-rag-be/internal/model"
	"coax-rag-be/internal/repository"
	"coax-rag-be/pkg/database"
	"coax-rag-be/pkg/embedding"
	"coax-rag-be/pkg/embedding/jina"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ingestEntry is one knowledge chunk in the input file.
type ingestEntry struct {
	Document string                 `json:"document"`
	Section  string                 `json:"section"`
	Metadata map[string]interface{} `json:"metadata"`
}

func main() {
	filePath := flag.String("file", "knowledge.json", "path to the knowledge JSON file")
	replace := flag.Bool("replace", false, "delete existing rows per section before inserting")
	flag.Parse()

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	repo := repository.NewPassageRepository(db)

	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaEmbeddingModel)
	} else {
		embeddingProvider = jina.NewJinaProvider(cfg.Keys.Jina)
	}

	raw, err := os.ReadFile(*filePath)
	if err != nil {
		log.Fatal("Error: Failed to read input file:", err)
	}
	var entries []ingestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Fatal("Error: Failed to parse input file:", err)
	}
	log.Printf("Ingesting %d passages from %s...", len(entries), *filePath)

	ctx := context.Background()

	if *replace {
		seen := make(map[string]bool)
		for _, entry := range entries {
			if entry.Section == "" || seen[entry.Section] {
				continue
			}
			seen[entry.Section] = true
			if err := repo.DeleteBySection(ctx, entry.Section); err != nil {
				log.Fatalf("Error: Failed to clear section %q: %v", entry.Section, err)
			}
		}
	}

	passages := make([]*model.KnowledgePassage, 0, len(entries))
	for i, entry := range entries {
		res, err := embeddingProvider.Generate(entry.Document, "RETRIEVAL_DOCUMENT")
		if err != nil {
			log.Fatalf("Error: Embedding failed for entry %d: %v", i, err)
		}
		passages = append(passages, &model.KnowledgePassage{
			Id:             uuid.New(),
			Document:       entry.Document,
			EmbeddingValue: pgvector.NewVector(res.Embedding.Values),
			Section:        entry.Section,
			Metadata:       datatypes.JSONMap(entry.Metadata),
		})
		if (i+1)%25 == 0 {
			log.Printf("Embedded %d/%d...", i+1, len(entries))
		}
	}

	if err := repo.Create(ctx, passages); err != nil {
		log.Fatal("Error: Failed to insert passages:", err)
	}

	total, err := repo.Count(ctx)
	if err != nil {
		log.Fatal("Error: Failed to count passages:", err)
	}
	log.Printf("✅ Success: Inserted %d passages, index now holds %d.", len(passages), total)
}
