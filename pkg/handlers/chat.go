// Package handlers exposes the chat pipeline over HTTP: the chat
// endpoint, the Excel export endpoint, and health/ping.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/cladtek/dbchat-engine/pkg/chat"
)

// ChatRequest is the body for POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	Mode      string `json:"mode"`
}

// ChatHandler handles chat HTTP requests.
type ChatHandler struct {
	svc    *chat.Service
	logger *zap.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *chat.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Chat)
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Body harus berupa JSON.")
		return
	}

	resp, err := h.svc.Ask(r.Context(), chat.Request{
		Question:  req.Message,
		SessionID: req.SessionID,
		Mode:      req.Mode,
	})
	if err != nil {
		h.logger.Warn("chat request failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		_ = WriteError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode chat response", zap.Error(err))
	}
}
