// Package handlers exposes the scheduling engine over HTTP: the
// conversational chat endpoint and direct read/write scheduling endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduler/internal/agent"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// ChatHandler serves the conversational surface.
type ChatHandler struct {
	agent  *agent.Agent
	logger *logging.Logger
}

func NewChatHandler(a *agent.Agent, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{agent: a, logger: logger}
}

// ChatRequest is the request body for a conversational turn.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse carries the agent's single response action.
type ChatResponse struct {
	SessionID string          `json:"session_id"`
	Response  *agent.Response `json:"response"`
}

// Message handles one conversational turn.
// POST /chat/message
func (h *ChatHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		jsonError(w, "message is required", http.StatusBadRequest)
		return
	}

	// Session ids are minted server-side so clients cannot collide.
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resp, err := h.agent.HandleMessage(r.Context(), sessionID, req.Message)
	if err != nil {
		h.logger.Error("chat turn failed", "session_id", sessionID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{SessionID: sessionID, Response: resp})
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
