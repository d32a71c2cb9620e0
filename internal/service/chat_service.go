package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"coax-rag-be/internal/dto"
	"coax-rag-be/internal/pkg/logger"
	"coax-rag-be/internal/pkg/sse"
	"coax-rag-be/pkg/llm"
	"coax-rag-be/pkg/rag/conversation"
	"coax-rag-be/pkg/rag/response"
	"coax-rag-be/pkg/rag/session"
	"coax-rag-be/pkg/store"
)

// ICondenser rewrites a follow-up question into a standalone one.
type ICondenser interface {
	Condense(ctx context.Context, history *conversation.History, latestQuery string) (string, error)
}

// IRetriever returns the passages most similar to a query.
type IRetriever interface {
	Retrieve(ctx context.Context, query string, k int, minScore *float64) ([]store.Passage, error)
}

// IGenerator produces a grounded answer from retrieved context.
type IGenerator interface {
	Answer(ctx context.Context, query string, passages []store.Passage) (string, error)
	AnswerStream(ctx context.Context, query string, passages []store.Passage) (llm.TokenStream, error)
}

// IChatService runs the full pipeline for one chat request.
type IChatService interface {
	Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error)
	ChatStream(ctx context.Context, req *dto.ChatRequest, w *sse.Writer)
}

// Options carries the pipeline tuning knobs.
type Options struct {
	TopK             int
	SimilarityCutoff float64 // <= 0 disables the cutoff
	HistoryCapacity  int
}

type ChatService struct {
	condenser ICondenser
	retriever IRetriever
	generator IGenerator
	sessions  *session.Store
	options   Options
	logger    logger.ILogger
}

func NewChatService(condenser ICondenser, retriever IRetriever, generator IGenerator, sessions *session.Store, options Options, log logger.ILogger) *ChatService {
	if options.TopK <= 0 {
		options.TopK = 5
	}
	if options.HistoryCapacity <= 0 {
		options.HistoryCapacity = 10
	}
	return &ChatService{
		condenser: condenser,
		retriever: retriever,
		generator: generator,
		sessions:  sessions,
		options:   options,
		logger:    log,
	}
}

// Chat runs condense, retrieve and generate for a single-shot response.
func (s *ChatService) Chat(ctx context.Context, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	query, history, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	standalone, passages, err := s.condenseAndRetrieve(ctx, req, query, history)
	if err != nil {
		return nil, err
	}

	content, err := s.generator.Answer(ctx, standalone, passages)
	if err != nil {
		return nil, err
	}

	s.recordExchange(req.ConversationId, query, content)

	metadata := response.BuildMetadata(passages)
	if metadata == nil {
		metadata = []response.Provenance{}
	}
	return &dto.ChatResponse{
		Message:  response.NewAssistantMessage(content),
		Metadata: metadata,
	}, nil
}

// ChatStream runs the same pipeline but emits the answer as token frames.
// Any failure, before or during generation, becomes a single terminal error
// frame; a completed stream ends with exactly one done frame.
func (s *ChatService) ChatStream(ctx context.Context, req *dto.ChatRequest, w *sse.Writer) {
	query, history, err := s.prepare(req)
	if err != nil {
		s.writeStreamError(w, err)
		return
	}

	standalone, passages, err := s.condenseAndRetrieve(ctx, req, query, history)
	if err != nil {
		s.writeStreamError(w, err)
		return
	}

	stream, err := s.generator.AnswerStream(ctx, standalone, passages)
	if err != nil {
		s.writeStreamError(w, err)
		return
	}
	defer stream.Close()

	var content strings.Builder
	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.writeStreamError(w, err)
			return
		}
		content.WriteString(token)
		if err := w.WriteToken(token); err != nil {
			// Client gone; nothing further can be delivered.
			s.logger.Warn("chat", "aborting stream, client write failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
	}

	final := strings.TrimSpace(content.String())
	if final == "" {
		s.writeStreamError(w, fmt.Errorf("stream produced empty content"))
		return
	}

	s.recordExchange(req.ConversationId, query, final)

	if err := w.WriteDone(response.NewAssistantMessage(final), response.BuildMetadata(passages)); err != nil {
		s.logger.Warn("chat", "failed to write done frame", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// prepare extracts the active query and the condensation history from the
// request transcript. Only messages before the last user message count as
// history, and only user/assistant turns are retained.
func (s *ChatService) prepare(req *dto.ChatRequest) (string, *conversation.History, error) {
	lastUser := -1
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUser = i
			break
		}
	}
	if lastUser == -1 {
		return "", nil, fmt.Errorf("no user message in request")
	}

	query := strings.TrimSpace(req.Messages[lastUser].Content)
	if query == "" {
		return "", nil, fmt.Errorf("last user message is empty")
	}

	history := conversation.NewHistory(s.options.HistoryCapacity)
	for _, msg := range req.Messages[:lastUser] {
		switch msg.Role {
		case "user":
			history.Add(conversation.NewTurn(conversation.RoleUser, msg.Content))
		case "assistant":
			history.Add(conversation.NewTurn(conversation.RoleAssistant, msg.Content))
		}
	}

	// Stateless clients resend the transcript; clients that only send the
	// latest message fall back to the server-side session for context.
	if history.Empty() && req.ConversationId != "" {
		history = s.sessions.Get(req.ConversationId).ContextHistory(s.options.HistoryCapacity)
	}

	return query, history, nil
}

func (s *ChatService) condenseAndRetrieve(ctx context.Context, req *dto.ChatRequest, query string, history *conversation.History) (string, []store.Passage, error) {
	standalone, err := s.condenser.Condense(ctx, history, query)
	if err != nil {
		return "", nil, err
	}

	k := req.NResults
	if k <= 0 {
		k = s.options.TopK
	}

	var minScore *float64
	if s.options.SimilarityCutoff > 0 {
		cutoff := s.options.SimilarityCutoff
		minScore = &cutoff
	}

	passages, err := s.retriever.Retrieve(ctx, standalone, k, minScore)
	if err != nil {
		return "", nil, err
	}

	return standalone, passages, nil
}

func (s *ChatService) recordExchange(conversationId, userInput, botResponse string) {
	if conversationId == "" {
		return
	}
	s.sessions.RecordExchange(conversationId, userInput, botResponse)
}

func (s *ChatService) writeStreamError(w *sse.Writer, err error) {
	s.logger.Error("chat", "stream pipeline failed", map[string]interface{}{
		"error": err.Error(),
	})
	if writeErr := w.WriteError("Internal server error"); writeErr != nil {
		s.logger.Warn("chat", "failed to write error frame", map[string]interface{}{
			"error": writeErr.Error(),
		})
	}
}
