package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"guardian/pkg/assistant"
	"guardian/pkg/bus"
	"guardian/pkg/channel"
	"guardian/pkg/config"
	"guardian/pkg/httpserver"
	"guardian/pkg/session"
	"guardian/pkg/session/runtime"
)

const (
	channelName         = "web"
	messagePreviewLimit = 240
	requestTimeout      = 10 * time.Second
)

// HistoryFunc returns the conversation stored under a session key.
type HistoryFunc func(sessionKey string) ([]session.ChatMessage, bool)

// Adapter serves the chat assistant over HTTP.
type Adapter struct {
	cfg      config.WebConfig
	rulebook *assistant.Rulebook
	limiter  *httpserver.RateLimiter
	history  HistoryFunc
	validate *validator.Validate
	log      *slog.Logger
}

type Option func(*Adapter)

func WithHistory(history HistoryFunc) Option {
	return func(a *Adapter) {
		a.history = history
	}
}

type messageRequest struct {
	Session  string `json:"session" validate:"required,max=128"`
	Text     string `json:"text" validate:"required,max=2000"`
	Language string `json:"language" validate:"omitempty,max=16"`
}

type messageResponse struct {
	Session   string `json:"session"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
	Language  string `json:"language"`
	SentAt    string `json:"sent_at"`
}

type quickQuestionsResponse struct {
	Language  string   `json:"language"`
	Questions []string `json:"questions"`
}

type historyResponse struct {
	Session  string                `json:"session"`
	Messages []session.ChatMessage `json:"messages"`
}

// NewAdapter validates web channel configuration and constructs an adapter.
func NewAdapter(cfg config.WebConfig, rulebook *assistant.Rulebook, log *slog.Logger, opts ...Option) (*Adapter, error) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("channels.web.port %d out of range", cfg.Port)
	}
	if rulebook == nil {
		rulebook = assistant.Default()
	}
	if log == nil {
		log = slog.Default()
	}

	a := &Adapter{
		cfg:      cfg,
		rulebook: rulebook,
		limiter:  httpserver.NewRateLimiter(cfg.RatePerMinute, cfg.Burst),
		validate: validator.New(),
		log:      log.With("component", "channel.web"),
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Name returns the channel identifier used in bus metadata and logs.
func (a *Adapter) Name() string {
	return channelName
}

func (a *Adapter) Addr() string {
	host := strings.TrimSpace(a.cfg.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, strconv.Itoa(a.cfg.Port))
}

// Run serves the chat API until ctx ends.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	return httpserver.Serve(ctx, a.App(handler), a.Addr(), a.log)
}

// App builds the fiber routes for the chat API.
func (a *Adapter) App(handler channel.Handler) *fiber.App {
	app := httpserver.NewApp("guardian web chat")
	app.Use(httpserver.RequestID(), httpserver.AccessLog(a.log))

	chat := app.Group("/api/v1/chat")
	chat.Post("/messages", func(c *fiber.Ctx) error {
		return a.handleMessage(c, handler)
	})
	chat.Get("/quick-questions", a.handleQuickQuestions)
	chat.Get("/sessions/:session/messages", a.handleHistory)

	return app
}

func (a *Adapter) handleMessage(c *fiber.Ctx, handler channel.Handler) error {
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return httpserver.Error(c, fiber.StatusBadRequest, session.ErrEmptyMessage.Error())
	}
	if err := a.validate.Struct(req); err != nil {
		return httpserver.Error(c, fiber.StatusBadRequest, err.Error())
	}

	sessionKey := SessionKey(req.Session)
	if !a.limiter.Allow(sessionKey) {
		a.log.Warn("Rate limit exceeded", "session_key", sessionKey)
		return httpserver.Error(c, fiber.StatusTooManyRequests, "too many requests")
	}

	lang, source := assistant.DetectLanguage(req.Text), bus.LanguageDetected
	if req.Language != "" {
		parsed, err := assistant.ParseLanguage(req.Language)
		if err != nil {
			return httpserver.Error(c, fiber.StatusBadRequest, err.Error())
		}
		lang, source = parsed, bus.LanguageFromRequest
	}

	requestID := httpserver.GetRequestID(c)
	inbound := bus.InboundMessage{
		Channel:    channelName,
		SenderID:   c.IP(),
		ChatID:     req.Session,
		SessionKey: sessionKey,
		Content:    req.Text,
		Language:   lang.String(),
		Metadata: map[string]string{
			bus.RequestIDKey:      requestID,
			bus.LanguageSourceKey: source,
		},
	}
	a.log.Info("Received message", "session_key", sessionKey, "language", lang, "content", previewText(req.Text))

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	outbound, err := handler(ctx, inbound)
	if err != nil {
		a.log.Error("Failed to process inbound message", "session_key", sessionKey, "error", err)
		switch {
		case errors.Is(err, session.ErrEmptyMessage):
			return httpserver.Error(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			return httpserver.Error(c, fiber.StatusGatewayTimeout, "reply timed out")
		default:
			return httpserver.Error(c, fiber.StatusInternalServerError, "failed to process message")
		}
	}

	reply := runtime.MessageFromOutbound(outbound)
	return c.JSON(messageResponse{
		Session:   req.Session,
		MessageID: reply.ID,
		Text:      reply.Text,
		Language:  reply.Language.String(),
		SentAt:    reply.SentAt.UTC().Format(time.RFC3339Nano),
	})
}

func (a *Adapter) handleQuickQuestions(c *fiber.Ctx) error {
	lang := assistant.English
	if raw := c.Query("language"); raw != "" {
		parsed, err := assistant.ParseLanguage(raw)
		if err != nil {
			return httpserver.Error(c, fiber.StatusBadRequest, err.Error())
		}
		lang = parsed
	}

	return c.JSON(quickQuestionsResponse{
		Language:  lang.String(),
		Questions: a.rulebook.QuickQuestions(lang),
	})
}

func (a *Adapter) handleHistory(c *fiber.Ctx) error {
	if a.history == nil {
		return httpserver.Error(c, fiber.StatusNotFound, "history is not available")
	}

	id := c.Params("session")
	messages, ok := a.history(SessionKey(id))
	if !ok {
		return httpserver.Error(c, fiber.StatusNotFound, "session not found")
	}

	return c.JSON(historyResponse{Session: id, Messages: messages})
}

// SessionKey maps one web client session to one assistant session namespace.
func SessionKey(id string) string {
	return channelName + ":" + strings.TrimSpace(id)
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= messagePreviewLimit {
		return string(runes)
	}

	return string(runes[:messagePreviewLimit]) + "..."
}
