// Package webchat serves the browser chat widget: a WebSocket endpoint for
// real-time turns plus HTTP fallbacks for message posting and history.
package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/clinic-scheduler/internal/agent"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

const historyLimit = 50

// Handler manages web chat connections and messages.
type Handler struct {
	agent    *agent.Agent
	logger   *logging.Logger
	widgetJS []byte

	mu       sync.RWMutex
	sessions map[string]*wsConn          // session id -> active connection
	history  map[string][]HistoryMessage // session id -> recent transcript
}

type wsConn struct {
	conn *websocket.Conn
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"` // "assistant" or "user"
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Response  *agent.Response  `json:"response,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler.
func NewHandler(a *agent.Agent, widgetJS []byte, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		agent:    a,
		logger:   logger,
		widgetJS: widgetJS,
		sessions: make(map[string]*wsConn),
		history:  make(map[string][]HistoryMessage),
	}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time turns.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})

	if msgs := h.recentHistory(sessionID); len(msgs) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: msgs})
	}

	wsc := &wsConn{conn: conn}
	h.mu.Lock()
	h.sessions[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == wsc {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		h.sendToSession(sessionID, OutboundMessage{Type: "typing"})
		resp := h.takeTurn(r.Context(), sessionID, msg.Text)
		h.sendToSession(sessionID, resp)
	}
}

// takeTurn runs one agent turn and records both sides in the transcript.
func (h *Handler) takeTurn(ctx context.Context, sessionID, text string) OutboundMessage {
	now := time.Now().UTC().Format(time.RFC3339)
	h.appendHistory(sessionID, HistoryMessage{Role: "user", Text: text, Timestamp: now})

	resp, err := h.agent.HandleMessage(ctx, sessionID, text)
	if err != nil {
		h.logger.Error("webchat: turn failed", "session_id", sessionID, "error", err)
		return OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."}
	}

	h.appendHistory(sessionID, HistoryMessage{
		Role:      "assistant",
		Text:      resp.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      resp.Message,
		Response:  resp,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (h *Handler) appendHistory(sessionID string, msg HistoryMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msgs := append(h.history[sessionID], msg)
	if len(msgs) > historyLimit {
		msgs = msgs[len(msgs)-historyLimit:]
	}
	h.history[sessionID] = msgs
}

func (h *Handler) recentHistory(sessionID string) []HistoryMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msgs := h.history[sessionID]
	out := make([]HistoryMessage, len(msgs))
	copy(out, msgs)
	return out
}

func (h *Handler) sendToSession(sessionID string, msg OutboundMessage) {
	h.mu.RLock()
	wsc, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = websocket.JSON.Send(wsc.conn, msg)
}

// HandleMessage is the HTTP fallback for clients without WebSocket support.
// POST /webchat/message
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	out := h.takeTurn(r.Context(), req.SessionID, req.Text)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": req.SessionID,
		"message":    out,
	})
}

// HandleHistory returns the recent transcript for a session.
// GET /webchat/history?session=
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": h.recentHistory(sessionID)})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}
