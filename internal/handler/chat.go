package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"storyboard/internal/config"
	"storyboard/internal/domain/services"
	"storyboard/internal/handler/sse"
	"storyboard/internal/httputil"
)

// ChatHandler streams assistant turns over SSE
type ChatHandler struct {
	chatService       services.ChatService
	keepAliveInterval time.Duration
	logger            *slog.Logger
}

// NewChatHandler creates a new chat handler. A non-positive keepAlive falls
// back to config.ChatKeepAliveInterval.
func NewChatHandler(chatService services.ChatService, keepAlive time.Duration, logger *slog.Logger) *ChatHandler {
	if keepAlive <= 0 {
		keepAlive = config.ChatKeepAliveInterval
	}
	return &ChatHandler{
		chatService:       chatService,
		keepAliveInterval: keepAlive,
		logger:            logger,
	}
}

// StreamChat runs one conversation turn and streams its events.
// Errors found before the first event (bad request, unknown project,
// unconfigured provider) are answered as problem responses; later failures
// arrive as an "error" event inside the stream.
// POST /api/chat
func (h *ChatHandler) StreamChat(w http.ResponseWriter, r *http.Request) {
	var req services.ChatRequest
	if !parseBody(w, r, &req) {
		return
	}
	req.UserID = httputil.GetUserID(r)

	stream, err := sse.NewStream(w)
	if err != nil {
		h.logger.Error("streaming unsupported", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	pingCtx, stopPings := context.WithCancel(r.Context())
	pingsDone := sse.KeepAlive(pingCtx, stream, h.keepAliveInterval, h.logger)

	err = h.chatService.StreamTurn(r.Context(), &req, func(event services.ChatEvent) error {
		return stream.WriteEvent(event)
	})
	stopPings()
	<-pingsDone

	if err != nil {
		if !stream.Started() {
			handleError(w, err)
			return
		}
		if errors.Is(err, context.Canceled) {
			h.logger.Info("chat stream closed by client", "project_id", req.ProjectID)
		} else {
			h.logger.Warn("chat turn ended with error", "project_id", req.ProjectID, "error", err)
		}
		return
	}

	if err := stream.WriteDone(); err != nil {
		h.logger.Debug("write done marker failed", "error", err)
	}
}
