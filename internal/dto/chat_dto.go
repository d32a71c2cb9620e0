package dto

import "coax-rag-be/pkg/rag/response"

// ChatMessage is one turn of the client-supplied transcript.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required,max=4096"`
}

// ChatRequest is the POST /chat payload. The last user message is the active
// query; earlier messages are condensation context.
type ChatRequest struct {
	Messages       []ChatMessage `json:"messages" validate:"required,min=1,max=50,dive"`
	NResults       int           `json:"n_results" validate:"omitempty,min=1,max=20"`
	Stream         bool          `json:"stream"`
	ConversationId string        `json:"conversation_id" validate:"omitempty,max=128"`
}

// ChatResponse is the single-shot success envelope.
type ChatResponse struct {
	Message  response.AssistantMessage `json:"message"`
	Metadata []response.Provenance     `json:"metadata"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}
