package controller

import (
	"bufio"
	"context"
	"strings"
	"time"

	"coax-rag-be/internal/dto"
	"coax-rag-be/internal/pkg/logger"
	"coax-rag-be/internal/pkg/serverutils"
	"coax-rag-be/internal/pkg/sse"
	"coax-rag-be/internal/service"
	"coax-rag-be/pkg/guard"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	Health(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
	RegisterRoutes(router fiber.Router)
}

type ChatController struct {
	chatService service.IChatService
	apiKey      string
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, apiKey string, log logger.ILogger) IChatController {
	return &ChatController{
		chatService: chatService,
		apiKey:      apiKey,
		logger:      log,
	}
}

func (c *ChatController) RegisterRoutes(router fiber.Router) {
	router.Get("/", c.Health)
	router.Options("/chat", func(ctx *fiber.Ctx) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	})
	router.Post("/chat", serverutils.APIKeyMiddleware(c.apiKey), c.Chat)
}

func (c *ChatController) Health(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusOK).JSON(dto.HealthResponse{
		Status:    "ok",
		Service:   "coax-rag-be",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Chat validates the request, screens the active query for prompt injection
// and dispatches to the single-shot or streaming pipeline. All rejection
// happens here, before any model or index work starts.
func (c *ChatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.NewValidationError("Invalid request body")
	}

	if err := serverutils.ValidateRequest(&req); err != nil {
		return err
	}

	query, found := lastUserMessage(&req)
	if !found {
		return serverutils.NewValidationError("messages must contain at least one user message")
	}
	if strings.TrimSpace(query) == "" {
		return serverutils.NewValidationError("last user message must not be blank")
	}

	if guard.Check(query) {
		c.logger.Warn("chat", "rejected query matching injection pattern", map[string]interface{}{
			"ip": ctx.IP(),
		})
		return serverutils.NewValidationError("Invalid request")
	}

	if req.Stream {
		return c.streamChat(ctx, &req)
	}

	res, err := c.chatService.Chat(ctx.UserContext(), &req)
	if err != nil {
		c.logger.Error("chat", "pipeline failed", map[string]interface{}{
			"error": err.Error(),
		})
		return serverutils.NewInternalError()
	}

	return ctx.Status(fiber.StatusOK).JSON(res)
}

// streamChat hands the response body over to a stream writer. The fiber
// context is not valid inside the writer callback, so the pipeline runs on a
// detached context.
func (c *ChatController) streamChat(ctx *fiber.Ctx, req *dto.ChatRequest) error {
	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		c.chatService.ChatStream(context.Background(), req, sse.NewWriter(w))
	}))
	return nil
}

func lastUserMessage(req *dto.ChatRequest) (string, bool) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content, true
		}
	}
	return "", false
}
