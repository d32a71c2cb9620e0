package bootstrap

import (
	"log"

	"coax-rag-be/internal/config"
	"coax-rag-be/internal/controller"
	"coax-rag-be/internal/pkg/logger"
	"coax-rag-be/internal/repository"
	"coax-rag-be/internal/service"
	"coax-rag-be/pkg/embedding"
	"coax-rag-be/pkg/embedding/jina"
	"coax-rag-be/pkg/llm/factory"
	"coax-rag-be/pkg/rag/answer"
	"coax-rag-be/pkg/rag/condense"
	"coax-rag-be/pkg/rag/retrieve"
	"coax-rag-be/pkg/rag/session"

	"gorm.io/gorm"
)

type Container struct {
	ChatController controller.IChatController
	Logger         logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Embedding provider based on config
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaEmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbeddingModel)
	} else {
		embeddingProvider = jina.NewJinaProvider(cfg.Keys.Jina)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	}

	// LLM provider based on config
	llmBaseURL := cfg.Ai.OpenAIBaseURL
	if cfg.Ai.LLMProvider == "ollama" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		llmBaseURL,
		cfg.Keys.OpenAI,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Pipeline stages
	passageRepo := repository.NewPassageRepository(db)
	condenser := condense.NewCondenser(llmProvider, cfg.Ai.CondenseTimeout, sysLogger)
	retriever := retrieve.NewRetriever(embeddingProvider, passageRepo, sysLogger)
	generator := answer.NewGenerator(llmProvider, cfg.Ai.Temperature, cfg.Ai.MaxTokens, cfg.Ai.GenerateTimeout, sysLogger)
	sessions := session.NewStore(cfg.Ai.HistoryCapacity, cfg.Ai.SessionTTL)

	chatService := service.NewChatService(condenser, retriever, generator, sessions, service.Options{
		TopK:             cfg.Ai.TopK,
		SimilarityCutoff: cfg.Ai.SimilarityCutoff,
		HistoryCapacity:  cfg.Ai.HistoryCapacity,
	}, sysLogger)

	return &Container{
		ChatController: controller.NewChatController(chatService, cfg.Keys.ChatAPIKey, sysLogger),
		Logger:         sysLogger,
	}
}
